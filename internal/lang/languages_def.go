package lang

import "github.com/codanna/codanna/internal/symbol"

// registerBuiltins wires the eight languages spec.md §4.A names into the
// registry. Node-kind coverage is intentionally uneven across languages,
// the way the teacher's own symbols.go was: Go gets the widest coverage;
// Python covers function and class definitions only; the remaining
// languages cover the declaration forms that matter most for resolution
// (functions, types, calls, imports). Constructs the node tables don't
// list are skipped without a ParseGap; the parser records a ParseGap
// only when tree-sitter returns no tree for a file.
func registerBuiltins(r *Registry) {
	r.Register(goDefinition())
	r.Register(pythonDefinition())
	r.Register(typeScriptDefinition())
	r.Register(rustDefinition())
	r.Register(cDefinition())
	r.Register(cppDefinition())
	r.Register(phpDefinition())
	r.Register(csharpDefinition())
}

func goDefinition() *Definition {
	spec := languageSpec{
		id:             "go",
		sitterLanguage: goLanguage,
		nodeSpecs: map[string]nodeSpec{
			"function_declaration": {kind: symbol.KindFunction, nameKinds: []string{"identifier"}},
			"method_declaration":   {kind: symbol.KindMethod, nameKinds: []string{"field_identifier"}},
			"type_spec":            {kind: symbol.KindStruct, nameKinds: []string{"type_identifier"}, createsScope: true},
			"const_spec":           {kind: symbol.KindConstant, nameKinds: []string{"identifier"}},
			"var_spec":             {kind: symbol.KindVariable, nameKinds: []string{"identifier"}},
		},
		callSites:         []refSpec{{nodeKind: "call_expression", nameKinds: []string{"identifier", "field_identifier"}}},
		importSites:       []refSpec{{nodeKind: "import_spec", nameKinds: []string{"interpreted_string_literal"}}},
		lineCommentPrefix: "//",
		modulePathSep:     ".",
	}
	return &Definition{
		ID:               "go",
		Name:             "Go",
		Extensions:       []string{".go"},
		NewParser:        func(Settings) (Parser, error) { return newTreeSitterParser(spec), nil },
		NewBehavior:      newGenericBehavior("go", "/", capitalizedIsPublic),
		EnabledByDefault: true,
	}
}

func pythonDefinition() *Definition {
	spec := languageSpec{
		id:             "python",
		sitterLanguage: pythonLanguage,
		nodeSpecs: map[string]nodeSpec{
			"function_definition": {kind: symbol.KindFunction, nameKinds: []string{"identifier"}, docFromFirstStatement: true},
			"class_definition":    {kind: symbol.KindClass, nameKinds: []string{"identifier"}, createsScope: true, docFromFirstStatement: true},
		},
		callSites:         []refSpec{{nodeKind: "call", nameKinds: []string{"identifier", "attribute"}}},
		importSites:       []refSpec{{nodeKind: "import_statement", nameKinds: []string{"dotted_name"}}, {nodeKind: "import_from_statement", nameKinds: []string{"dotted_name"}}},
		lineCommentPrefix: "#",
		modulePathSep:     ".",
	}
	return &Definition{
		ID:               "python",
		Name:             "Python",
		Extensions:       []string{".py", ".pyi", ".pyx"},
		NewParser:        func(Settings) (Parser, error) { return newTreeSitterParser(spec), nil },
		NewBehavior:      newGenericBehavior("python", ".", keywordVisibility(true)),
		EnabledByDefault: true,
	}
}

func typeScriptDefinition() *Definition {
	spec := languageSpec{
		id:             "typescript",
		sitterLanguage: typescriptLanguage,
		nodeSpecs: map[string]nodeSpec{
			"function_declaration": {kind: symbol.KindFunction, nameKinds: []string{"identifier"}},
			"class_declaration":    {kind: symbol.KindClass, nameKinds: []string{"type_identifier"}, createsScope: true},
			"interface_declaration": {kind: symbol.KindInterface, nameKinds: []string{"type_identifier"}, createsScope: true},
			"method_definition":    {kind: symbol.KindMethod, nameKinds: []string{"property_identifier"}},
		},
		callSites:         []refSpec{{nodeKind: "call_expression", nameKinds: []string{"identifier", "property_identifier"}}},
		importSites:       []refSpec{{nodeKind: "import_statement", nameKinds: []string{"string"}}},
		lineCommentPrefix: "//",
		modulePathSep:     ".",
	}
	return &Definition{
		ID:         "typescript",
		Name:       "TypeScript",
		Extensions: []string{".ts", ".tsx", ".d.ts"},
		NewParser:  func(Settings) (Parser, error) { return newTreeSitterParser(spec), nil },
		NewBehavior: func() (Behavior, error) { return newTypeScriptBehavior() },
		EnabledByDefault: true,
	}
}

func rustDefinition() *Definition {
	spec := languageSpec{
		id:             "rust",
		sitterLanguage: rustLanguage,
		nodeSpecs: map[string]nodeSpec{
			"function_item": {kind: symbol.KindFunction, nameKinds: []string{"identifier"}},
			"struct_item":   {kind: symbol.KindStruct, nameKinds: []string{"type_identifier"}, createsScope: true},
			"trait_item":    {kind: symbol.KindInterface, nameKinds: []string{"type_identifier"}, createsScope: true},
			"enum_item":     {kind: symbol.KindEnum, nameKinds: []string{"type_identifier"}, createsScope: true},
		},
		callSites:         []refSpec{{nodeKind: "call_expression", nameKinds: []string{"identifier", "field_identifier", "scoped_identifier"}}},
		importSites:       []refSpec{{nodeKind: "use_declaration", nameKinds: []string{"scoped_identifier", "identifier"}}},
		lineCommentPrefix: "///",
		modulePathSep:     "::",
	}
	return &Definition{
		ID:               "rust",
		Name:             "Rust",
		Extensions:       []string{".rs"},
		NewParser:        func(Settings) (Parser, error) { return newTreeSitterParser(spec), nil },
		NewBehavior:      newGenericBehavior("rust", "::", keywordVisibility(false)),
		EnabledByDefault: true,
	}
}

func cDefinition() *Definition {
	spec := languageSpec{
		id:             "c",
		sitterLanguage: cLanguage,
		nodeSpecs: map[string]nodeSpec{
			"function_definition": {kind: symbol.KindFunction, nameKinds: []string{"identifier"}},
			"struct_specifier":    {kind: symbol.KindStruct, nameKinds: []string{"type_identifier"}, createsScope: true},
		},
		callSites:         []refSpec{{nodeKind: "call_expression", nameKinds: []string{"identifier"}}},
		importSites:       []refSpec{{nodeKind: "preproc_include", nameKinds: []string{"string_literal", "system_lib_string"}}},
		lineCommentPrefix: "//",
		modulePathSep:     ".",
	}
	return &Definition{
		ID:               "c",
		Name:             "C",
		Extensions:       []string{".c", ".h"},
		NewParser:        func(Settings) (Parser, error) { return newTreeSitterParser(spec), nil },
		NewBehavior:      newGenericBehavior("c", ".", keywordVisibility(true)),
		EnabledByDefault: true,
	}
}

func cppDefinition() *Definition {
	spec := languageSpec{
		id:             "cpp",
		sitterLanguage: cppLanguage,
		nodeSpecs: map[string]nodeSpec{
			"function_definition": {kind: symbol.KindFunction, nameKinds: []string{"identifier", "field_identifier"}},
			"class_specifier":     {kind: symbol.KindClass, nameKinds: []string{"type_identifier"}, createsScope: true},
			"struct_specifier":    {kind: symbol.KindStruct, nameKinds: []string{"type_identifier"}, createsScope: true},
		},
		callSites:         []refSpec{{nodeKind: "call_expression", nameKinds: []string{"identifier", "field_identifier"}}},
		importSites:       []refSpec{{nodeKind: "preproc_include", nameKinds: []string{"string_literal", "system_lib_string"}}},
		lineCommentPrefix: "//",
		modulePathSep:     "::",
	}
	return &Definition{
		ID:               "cpp",
		Name:             "C++",
		Extensions:       []string{".cpp", ".cc", ".cxx", ".hpp", ".hxx"},
		NewParser:        func(Settings) (Parser, error) { return newTreeSitterParser(spec), nil },
		NewBehavior:      newGenericBehavior("cpp", "::", keywordVisibility(true)),
		EnabledByDefault: true,
	}
}

func phpDefinition() *Definition {
	spec := languageSpec{
		id:             "php",
		sitterLanguage: phpLanguage,
		nodeSpecs: map[string]nodeSpec{
			"function_definition": {kind: symbol.KindFunction, nameKinds: []string{"name"}},
			"method_declaration":  {kind: symbol.KindMethod, nameKinds: []string{"name"}},
			"class_declaration":   {kind: symbol.KindClass, nameKinds: []string{"name"}, createsScope: true},
			"interface_declaration": {kind: symbol.KindInterface, nameKinds: []string{"name"}, createsScope: true},
		},
		callSites:         []refSpec{{nodeKind: "function_call_expression", nameKinds: []string{"name"}}},
		importSites:       []refSpec{{nodeKind: "namespace_use_clause", nameKinds: []string{"qualified_name", "name"}}},
		lineCommentPrefix: "//",
		modulePathSep:     "\\",
	}
	return &Definition{
		ID:               "php",
		Name:             "PHP",
		Extensions:       []string{".php"},
		NewParser:        func(Settings) (Parser, error) { return newTreeSitterParser(spec), nil },
		NewBehavior:      newGenericBehavior("php", "\\", keywordVisibility(true)),
		EnabledByDefault: true,
	}
}

func csharpDefinition() *Definition {
	spec := languageSpec{
		id:             "csharp",
		sitterLanguage: csharpLanguage,
		nodeSpecs: map[string]nodeSpec{
			"method_declaration":    {kind: symbol.KindMethod, nameKinds: []string{"identifier"}},
			"class_declaration":     {kind: symbol.KindClass, nameKinds: []string{"identifier"}, createsScope: true},
			"interface_declaration": {kind: symbol.KindInterface, nameKinds: []string{"identifier"}, createsScope: true},
			"struct_declaration":    {kind: symbol.KindStruct, nameKinds: []string{"identifier"}, createsScope: true},
		},
		callSites:         []refSpec{{nodeKind: "invocation_expression", nameKinds: []string{"identifier", "member_access_expression"}}},
		importSites:       []refSpec{{nodeKind: "using_directive", nameKinds: []string{"qualified_name", "identifier"}}},
		lineCommentPrefix: "///",
		modulePathSep:     ".",
	}
	return &Definition{
		ID:               "csharp",
		Name:             "C#",
		Extensions:       []string{".cs"},
		NewParser:        func(Settings) (Parser, error) { return newTreeSitterParser(spec), nil },
		NewBehavior:      newGenericBehavior("csharp", ".", keywordVisibility(false)),
		EnabledByDefault: true,
	}
}
