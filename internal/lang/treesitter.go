package lang

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/codanna/codanna/internal/graph"
	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/symbol"
)

// nodeSpec maps one AST node kind to the symbol.Kind it produces and the
// child node kinds that carry its name, mirroring the teacher's
// goNodeToSymbol/pythonNodeToSymbol-style switches but data-driven so the
// same walker serves all eight languages.
type nodeSpec struct {
	kind         symbol.Kind
	nameKinds    []string // child node kinds to search for the declaration's name
	createsScope bool     // true for class/struct/module-like containers

	// docFromFirstStatement is set for languages where the canonical doc
	// comment is the first-statement string literal inside the body
	// (Python's triple-quoted docstrings), rather than a comment
	// immediately preceding the declaration (spec.md §4.D rule 4).
	docFromFirstStatement bool
}

// refSpec describes how to recognize call/import sites
// generically: by node kind plus the child kind holding the referenced name.
type refSpec struct {
	nodeKind  string
	nameKinds []string
}

// languageSpec is everything the shared tree-sitter driver needs for one
// language: its grammar, which node kinds become symbols, which become
// call/import sites, and how its line comments look for doc extraction.
type languageSpec struct {
	id                ids.LanguageID
	sitterLanguage    func() *sitter.Language
	nodeSpecs         map[string]nodeSpec
	callSites         []refSpec
	importSites       []refSpec
	lineCommentPrefix string
	modulePathSep     string
}

// treeSitterParser is the shared Parser implementation for every
// tree-sitter-backed language. A fresh *sitter.Parser is created per
// call and closed before returning, matching the teacher's ParseFile.
type treeSitterParser struct {
	spec languageSpec
}

func newTreeSitterParser(spec languageSpec) Parser {
	return &treeSitterParser{spec: spec}
}

func (p *treeSitterParser) Parse(source []byte, fileID ids.FileID, gen *ids.IDGenerator) (ParseResult, error) {
	var result ParseResult

	parser := sitter.NewParser()
	defer parser.Close()

	language := p.spec.sitterLanguage()
	if language != nil {
		if err := parser.SetLanguage(language); err != nil {
			return result, err
		}
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		result.Gaps = append(result.Gaps, ParseGap{Note: "tree-sitter returned no tree; file skipped"})
		return result, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	var walk func(node *sitter.Node, parent *symbol.Symbol)
	walk = func(node *sitter.Node, parent *symbol.Symbol) {
		if node == nil {
			return
		}
		kind := node.Kind()

		if spec, ok := p.spec.nodeSpecs[kind]; ok {
			if sym := p.nodeToSymbol(node, kind, spec, source, fileID, gen, parent); sym != nil {
				result.Symbols = append(result.Symbols, sym)
				if spec.createsScope {
					parent = sym
				}
			}
		}

		for _, site := range p.spec.callSites {
			if site.nodeKind == kind {
				if name, rng := childName(node, site.nameKinds, source); name != "" {
					result.Calls = append(result.Calls, graph.PendingEdge{Kind: graph.KindCalls, Name: name, Range: rng})
				}
			}
		}
		for _, site := range p.spec.importSites {
			if site.nodeKind == kind {
				if name, rng := childName(node, site.nameKinds, source); name != "" {
					result.Imports = append(result.Imports, graph.Import{FileID: fileID, Path: name, Range: rng})
				}
			}
		}

		for i := uint(0); i < node.ChildCount(); i++ {
			walk(node.Child(i), parent)
		}
	}
	walk(root, nil)

	return result, nil
}

func (p *treeSitterParser) nodeToSymbol(node *sitter.Node, kind string, spec nodeSpec, source []byte,
	fileID ids.FileID, gen *ids.IDGenerator, parent *symbol.Symbol) *symbol.Symbol {

	nameNode := locateName(node, spec.nameKinds)
	if nameNode == nil {
		return nil
	}
	name := nodeText(nameNode, source)
	if name == "" {
		return nil
	}

	start, end := node.StartPosition(), node.EndPosition()
	rng := ids.Range{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column) + 1,
	}

	doc := extractPrecedingLineComment(source, rng.StartLine, p.spec.lineCommentPrefix)
	if doc == "" && spec.docFromFirstStatement {
		doc = extractFirstStatementDocString(node, source)
	}

	sym := &symbol.Symbol{
		ID:        gen.NextSymbolID(),
		FileID:    fileID,
		Name:      name,
		Kind:      spec.kind,
		Range:     rng,
		Language:  p.spec.id,
		DocString: doc,
	}
	if parent != nil {
		sym.Parent = parent.ID
		sym.Scope = symbol.Scope{Kind: symbol.ScopeClassMember, Owner: parent.ID}
	} else {
		sym.Scope = symbol.Scope{Kind: symbol.ScopeTopLevel}
	}
	return sym
}

// findChildOfKind returns the first direct child whose Kind() is in kinds.
func findChildOfKind(node *sitter.Node, kinds []string) *sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		for _, k := range kinds {
			if child.Kind() == k {
				return child
			}
		}
	}
	return nil
}

// locateName searches node's direct children, then its grandchildren, for
// the first node whose Kind() is in kinds. Declarations in C-family
// grammars nest their name one level deeper than Go/Python do (the
// identifier lives inside a declarator), so the generic walker needs both
// depths to cover all eight languages with one table-driven pass.
func locateName(node *sitter.Node, kinds []string) *sitter.Node {
	if target := findChildOfKind(node, kinds); target != nil {
		return target
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			if t := findChildOfKind(child, kinds); t != nil {
				return t
			}
		}
	}
	return nil
}

// childName locates the name child per nameKinds and returns its text
// and range, used for call/import sites.
func childName(node *sitter.Node, kinds []string, source []byte) (string, ids.Range) {
	target := locateName(node, kinds)
	if target == nil {
		return "", ids.Range{}
	}
	start, end := target.StartPosition(), target.EndPosition()
	return nodeText(target, source), ids.Range{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column) + 1,
	}
}

func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	s, e := node.StartByte(), node.EndByte()
	if s >= uint(len(source)) || e > uint(len(source)) || s >= e {
		return ""
	}
	return string(source[s:e])
}

// extractPrecedingLineComment mirrors the teacher's extractPrecedingComment:
// only the comment block immediately preceding the declaration is
// attached (spec.md §4.D rule 4), not any comment earlier in the file.
func extractPrecedingLineComment(source []byte, declLine int, prefix string) string {
	if prefix == "" || declLine <= 1 {
		return ""
	}
	lines := strings.Split(string(source), "\n")
	if declLine-2 >= len(lines) || declLine-2 < 0 {
		return ""
	}
	var collected []string
	for i := declLine - 2; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, prefix) {
			break
		}
		collected = append([]string{strings.TrimSpace(strings.TrimPrefix(line, prefix))}, collected...)
	}
	return strings.Join(collected, "\n")
}

// extractFirstStatementDocString reads node's "body" block and, if its
// first named statement is a bare string expression, returns the string
// with its quote delimiters stripped — the canonical docstring form
// spec.md §4.D rule 4 names ("the first-statement string, for languages
// where that is canonical"), as opposed to extractPrecedingLineComment's
// preceding-comment model.
func extractFirstStatementDocString(node *sitter.Node, source []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil {
		return ""
	}
	if body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first == nil || first.Kind() != "expression_statement" {
		return ""
	}
	if first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str == nil || str.Kind() != "string" {
		return ""
	}
	return stripStringDelimiters(nodeText(str, source))
}

// stripStringDelimiters trims the surrounding quote marks off a raw
// source string-literal token, preferring triple quotes before single
// ones since a triple-quoted literal's text also matches the
// single-quote prefix/suffix check.
func stripStringDelimiters(s string) string {
	for _, q := range []string{`"""`, "'''"} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return strings.TrimSpace(s[len(q) : len(s)-len(q)])
		}
	}
	for _, q := range []string{`"`, "'"} {
		if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// language grammar accessors. Each is a thin, panic-free adaptor over the
// generated Go bindings the pack ships for that grammar.
func goLanguage() *sitter.Language         { return sitter.NewLanguage(tree_sitter_go.Language()) }
func pythonLanguage() *sitter.Language     { return sitter.NewLanguage(tree_sitter_python.Language()) }
func typescriptLanguage() *sitter.Language { return sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()) }
func rustLanguage() *sitter.Language       { return sitter.NewLanguage(tree_sitter_rust.Language()) }
func cLanguage() *sitter.Language          { return sitter.NewLanguage(tree_sitter_c.Language()) }
func cppLanguage() *sitter.Language        { return sitter.NewLanguage(tree_sitter_cpp.Language()) }
func phpLanguage() *sitter.Language        { return sitter.NewLanguage(tree_sitter_php.LanguagePHP()) }
func csharpLanguage() *sitter.Language     { return sitter.NewLanguage(tree_sitter_csharp.Language()) }
