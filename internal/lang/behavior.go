package lang

import (
	"strings"
	"unicode"

	"github.com/codanna/codanna/internal/graph"
	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/symbol"
)

// visibilityRule decides a symbol's visibility from its raw modifier
// list and, for languages like Go where visibility is carried by
// identifier case rather than a keyword, from the name itself.
type visibilityRule func(name string, modifiers []string) symbol.Visibility

// genericBehavior implements lang.Behavior for every language in terms
// of a small set of per-language knobs, generalizing the teacher's
// inferGoProperties/inferPythonProperties/inferJSProperties/
// inferRustProperties switch functions (symbols.go) into data instead of
// one hand-written function per language.
type genericBehavior struct {
	lang          ids.LanguageID
	pathSeparator string
	visibility    visibilityRule
}

func capitalizedIsPublic(name string, _ []string) symbol.Visibility {
	if name == "" {
		return symbol.VisibilityPrivate
	}
	r := []rune(name)[0]
	if unicode.IsUpper(r) {
		return symbol.VisibilityPublic
	}
	return symbol.VisibilityPrivate
}

func keywordVisibility(publicByDefault bool) visibilityRule {
	return func(_ string, modifiers []string) symbol.Visibility {
		for _, m := range modifiers {
			switch strings.ToLower(m) {
			case "public", "pub", "export", "exported":
				return symbol.VisibilityPublic
			case "private":
				return symbol.VisibilityPrivate
			case "protected", "internal", "module":
				return symbol.VisibilityModule
			}
		}
		if publicByDefault {
			return symbol.VisibilityPublic
		}
		return symbol.VisibilityPrivate
	}
}

func newGenericBehavior(id ids.LanguageID, sep string, rule visibilityRule) func() (Behavior, error) {
	return func() (Behavior, error) {
		return &genericBehavior{lang: id, pathSeparator: sep, visibility: rule}, nil
	}
}

// ModulePathFor joins the file's directory-derived package path (the
// caller supplies it via s.ModulePath already seeded by the pipeline from
// the file's location) with the symbol's own name using this language's
// separator. The pipeline is responsible for seeding s.ModulePath with
// the file-level package/module prefix before calling this.
func (b *genericBehavior) ModulePathFor(fileID ids.FileID, s *symbol.Symbol) string {
	if s.ModulePath != "" {
		return s.ModulePath + b.pathSeparator + s.Name
	}
	return s.Name
}

func (b *genericBehavior) VisibilityOf(s *symbol.Symbol, rawModifiers []string) symbol.Visibility {
	return b.visibility(s.Name, rawModifiers)
}

// IsResolvable filters out symbols that never participate in name
// resolution: bare parameters and anonymous/lambda bindings with no name.
func (b *genericBehavior) IsResolvable(s *symbol.Symbol) bool {
	if s.Name == "" {
		return false
	}
	switch s.Kind {
	case symbol.KindParameter:
		return false
	default:
		return true
	}
}

// BuildResolutionScope builds the ordered stack spec.md §3/§4.F names:
// module scope seeded with nothing extra (names are looked up globally
// via SymbolLookup), then an imports layer populated by ResolveImport,
// then (left for the pipeline to push) type-member/function-local/
// parameter layers as it descends into each symbol's own subtree.
func (b *genericBehavior) BuildResolutionScope(fileID ids.FileID, imports []graph.Import, lookup graph.SymbolLookup) (*graph.ScopeStack, error) {
	scope := graph.NewScopeStack()
	scope.Push("module")
	scope.Push("imports")
	return scope, nil
}

// ResolveImport looks the import path up by module path first (treating
// it as already-canonical), then by trailing name component, classifying
// the result the way spec.md §4.E's resolve_import does: resolved,
// external, not-yet-indexed, or ambiguous.
func (b *genericBehavior) ResolveImport(imp graph.Import, lookup graph.SymbolLookup) (ids.SymbolID, graph.ImportResolution) {
	if matches := lookup.ByModulePath(imp.Path); len(matches) == 1 {
		return matches[0].ID, graph.ImportResolved
	} else if len(matches) > 1 {
		return ids.NoSymbol, graph.ImportAmbiguous
	}

	trailing := imp.Path
	if idx := strings.LastIndexAny(imp.Path, "./\\:"); idx >= 0 && idx+1 < len(imp.Path) {
		trailing = imp.Path[idx+1:]
	}
	matches := lookup.ByName(trailing)
	switch len(matches) {
	case 0:
		return ids.NoSymbol, graph.ImportExternal
	case 1:
		return matches[0].ID, graph.ImportResolved
	default:
		return ids.NoSymbol, graph.ImportAmbiguous
	}
}

// typeScriptBehavior layers tsconfig paths resolution (spec.md §4.E,
// scenario S4) on top of the generic behavior. The stored baseURL is not
// applied: a path-map target is looked up as a module path exactly as
// written, with its "*" replaced by the matched suffix. Settings carrying
// the tsconfig-derived path map are supplied by the pipeline/workspace
// when it constructs the behavior for a TypeScript file's project.
type typeScriptBehavior struct {
	genericBehavior
	baseURL string
	paths   map[string][]string // e.g. "@app/*" -> ["src/app/*"]
}

func newTypeScriptBehavior() (Behavior, error) {
	return &typeScriptBehavior{
		genericBehavior: genericBehavior{lang: ids.LangTypeScript, pathSeparator: ".", visibility: keywordVisibility(true)},
		paths:           map[string][]string{},
	}, nil
}

// ConfigurePaths lets the workspace install a project's tsconfig
// baseUrl/paths before resolution runs, per spec.md §4.E.
func (b *typeScriptBehavior) ConfigurePaths(baseURL string, paths map[string][]string) {
	b.baseURL = baseURL
	b.paths = paths
}

func (b *typeScriptBehavior) ResolveImport(imp graph.Import, lookup graph.SymbolLookup) (ids.SymbolID, graph.ImportResolution) {
	for pattern, targets := range b.paths {
		prefix := strings.TrimSuffix(pattern, "*")
		if !strings.HasSuffix(pattern, "*") || !strings.HasPrefix(imp.Path, prefix) {
			continue
		}
		suffix := strings.TrimPrefix(imp.Path, prefix)
		for _, target := range targets {
			candidatePath := strings.TrimSuffix(target, "*") + suffix
			if matches := lookup.ByModulePath(candidatePath); len(matches) >= 1 {
				if len(matches) > 1 {
					return ids.NoSymbol, graph.ImportAmbiguous
				}
				return matches[0].ID, graph.ImportResolved
			}
		}
	}
	return b.genericBehavior.ResolveImport(imp, lookup)
}
