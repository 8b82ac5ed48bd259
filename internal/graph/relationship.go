// Package graph assembles cross-file meaning: relationships between
// symbols, and the resolver that turns parser-local unresolved names into
// closed edges.
package graph

import "github.com/codanna/codanna/internal/ids"

// Kind is the closed set of relationship kinds.
type Kind uint8

const (
	KindCalls Kind = iota
	KindImplements
	KindExtends
	KindDefines
	KindUses
	KindImports
	KindReferences
)

func (k Kind) String() string {
	switch k {
	case KindCalls:
		return "calls"
	case KindImplements:
		return "implements"
	case KindExtends:
		return "extends"
	case KindDefines:
		return "defines"
	case KindUses:
		return "uses"
	case KindImports:
		return "imports"
	default:
		return "references"
	}
}

// Relationship is a directed edge. A resolved relationship has To set; a
// pending or external one has To zero. Unresolved holds the original
// source text on both kinds, so it is not empty on a resolved edge.
type Relationship struct {
	From       ids.SymbolID
	To         ids.SymbolID
	Unresolved string // the original source text, kept even for External edges
	Kind       Kind
	Range      ids.Range
	External   bool // set once the resolver gives up looking and marks it explicit
	Ambiguous  bool // ResolutionAmbiguity warning attached, never fatal
}

// IsResolved reports whether the edge points at a live symbol.
func (r Relationship) IsResolved() bool {
	return r.To.Valid()
}

// PendingEdge is what a parser emits before resolution: a name that still
// needs to be looked up against a resolution scope.
type PendingEdge struct {
	From  ids.SymbolID
	Name  string // callee name, interface/trait name, or import path
	Kind  Kind
	Range ids.Range

	// ReceiverHint preserves syntactic receiver context when available
	// (Self::m, self.m, obj.m) so the resolver can restrict lookup to the
	// receiver's ClassMember scope.
	ReceiverHint string
	// ReceiverIsStatic distinguishes Type::m (static) from obj.m (instance).
	ReceiverIsStatic bool
}

// Import is what a parser's find_imports pass emits, before the
// language's behavior resolves it to a symbol or an external marker.
type Import struct {
	FileID ids.FileID
	Path   string // raw import text, language-specific syntax
	Alias  string // local binding name, if any
	Range  ids.Range
}
