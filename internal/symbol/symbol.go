// Package symbol defines the central record of codanna: the Symbol, its
// closed enumerations, and the scope context that locates it without
// storing a full parent chain.
package symbol

import "github.com/codanna/codanna/internal/ids"

// Kind is the closed set of symbol kinds a parser can emit.
type Kind uint8

const (
	KindOther Kind = iota
	KindFunction
	KindMethod
	KindClass
	KindStruct
	KindInterface // also covers Rust/Go traits
	KindEnum
	KindEnumMember
	KindField
	KindProperty
	KindConstant
	KindVariable
	KindModule
	KindNamespace
	KindTypeAlias
	KindMacro
	KindConstructor
	KindParameter
	KindLambda
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	case KindClass:
		return "class"
	case KindStruct:
		return "struct"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindEnumMember:
		return "enum_member"
	case KindField:
		return "field"
	case KindProperty:
		return "property"
	case KindConstant:
		return "constant"
	case KindVariable:
		return "variable"
	case KindModule:
		return "module"
	case KindNamespace:
		return "namespace"
	case KindTypeAlias:
		return "type_alias"
	case KindMacro:
		return "macro"
	case KindConstructor:
		return "constructor"
	case KindParameter:
		return "parameter"
	case KindLambda:
		return "lambda"
	default:
		return "other"
	}
}

// Visibility is the closed set of visibilities a symbol may have.
type Visibility uint8

const (
	VisibilityPublic Visibility = iota
	VisibilityModule
	VisibilityPrivate
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "public"
	case VisibilityModule:
		return "module"
	default:
		return "private"
	}
}

// ScopeKind is the closed set of syntactic scopes a symbol may live in.
type ScopeKind uint8

const (
	ScopeTopLevel ScopeKind = iota
	ScopeClassMember
	ScopeModuleMember
	ScopeFunctionLocal
	ScopeParameter
)

// Scope captures enough to distinguish Type::method, module::item, and
// function-local bindings without storing the full parent chain. Owner
// is only meaningful when Kind == ScopeClassMember.
type Scope struct {
	Kind  ScopeKind
	Owner ids.SymbolID
}

// Flags is a bitset of modifiers that do not warrant their own field.
type Flags uint16

const (
	FlagAsync Flags = 1 << iota
	FlagAbstract
	FlagStatic
	FlagGeneric
	FlagExported // language's own export marker, distinct from Visibility
)

func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

// Symbol is the central record extracted from source. Name, signature,
// and doc-comment text are stored out-of-band (in the document index and
// string arena) rather than inline, keeping the in-memory header compact;
// this struct is what the parser and behavior layers pass around before
// the pipeline hands it to storage.
type Symbol struct {
	ID       ids.SymbolID
	FileID   ids.FileID
	Name     string
	Kind     Kind
	Range    ids.Range
	Language ids.LanguageID

	ModulePath string
	Visibility Visibility
	Scope      Scope
	Parent     ids.SymbolID // optional; zero if none

	Signature string
	DocString string
	Flags     Flags
}

// HasDoc reports whether the symbol carries a non-empty doc comment and
// therefore is eligible for embedding (spec: one embedding per symbol
// with a non-empty doc comment).
func (s *Symbol) HasDoc() bool {
	return s.DocString != ""
}

// Key is the (FileID, Range.StartLine, Range.StartCol) uniqueness key a
// store uses to detect duplicate inserts within one file.
type Key struct {
	File      ids.FileID
	StartLine int
	StartCol  int
}

// KeyOf returns the uniqueness key for s.
func KeyOf(s *Symbol) Key {
	return Key{File: s.FileID, StartLine: s.Range.StartLine, StartCol: s.Range.StartCol}
}
