// Package model defines the neutral data types shared by the parser,
// extractor, symbol store, rule framework, and formatter.
package model

// Position is a zero-based row/column pair plus the absolute byte offset
// it corresponds to. User-facing reports convert Row to 1-based.
type Position struct {
	Row    int
	Column int
	Byte   int
}

// Range is an inclusive-start, exclusive-end byte span with the
// corresponding start/end positions.
type Range struct {
	StartByte int
	EndByte   int
	Start     Position
	End       Position
}

// Len returns the byte length of the range.
func (r Range) Len() int { return r.EndByte - r.StartByte }

// Overlaps reports whether r and other share any byte.
func (r Range) Overlaps(other Range) bool {
	return r.StartByte < other.EndByte && other.StartByte < r.EndByte
}

// DeclaredScope describes where a symbol's declaration sits structurally.
type DeclaredScope string

const (
	ScopeGlobalVariablesBlock DeclaredScope = "global_variables_block"
	ScopeLocalBlock           DeclaredScope = "local_block"
	ScopeTopLevel             DeclaredScope = "top_level"
	ScopeInsideBlock          DeclaredScope = "inside_block"
)

// SymbolKind enumerates the neutral facts the extractor recognizes.
type SymbolKind string

const (
	KindVariable      SymbolKind = "variable"
	KindFunction      SymbolKind = "function"
	KindEventHandler  SymbolKind = "event_handler"
	KindTestcase      SymbolKind = "testcase"
	KindEnum          SymbolKind = "enum"
	KindEnumMember    SymbolKind = "enum_member"
	KindStruct        SymbolKind = "struct"
	KindStructMember  SymbolKind = "struct_member"
	KindTimer         SymbolKind = "timer"
	KindMessage       SymbolKind = "message"
	KindIncludeTarget SymbolKind = "include_target"
)

// Symbol is a single neutral fact recorded by the extractor. It carries no
// judgment about whether the fact is a violation of any rule.
type Symbol struct {
	Name                    string
	Kind                    SymbolKind
	DefiningFile            string
	Range                   Range
	DeclaredInScope         DeclaredScope
	TypeText                string
	HasBody                 bool
	ParamCount              int
	IsForwardDeclaration    bool
	ParentSymbol            string // enclosing function/testcase/handler name, if any
	StatementsBeforeInBlock int    // for local_block vars: executable statements preceding the declaration
}

// Include records a single #include directive.
type Include struct {
	SourceFile   string
	TargetText   string
	ResolvedPath string // empty when unresolved
	Range        Range
	LineNumber   int // 1-based, for reporting
}

// Resolved reports whether the include target was found on disk.
func (i Include) Resolved() bool { return i.ResolvedPath != "" }

// VisibilityEdge is a transitive reachability edge in the include DAG.
type VisibilityEdge struct {
	From    string
	To      string
	InCycle bool
}

// ReferenceContext describes how a symbol is used at a reference site.
type ReferenceContext string

const (
	ContextCall         ReferenceContext = "call"
	ContextRead         ReferenceContext = "read"
	ContextWrite        ReferenceContext = "write"
	ContextMemberAccess ReferenceContext = "member_access"
	ContextTimerSet     ReferenceContext = "timer_set"
)

// Reference is a symbol usage site.
type Reference struct {
	File            string
	Range           Range
	ReferencedName  string
	Context         ReferenceContext
	EnclosingSymbol string // enclosing function/handler/testcase name, if any
}

// Severity is a rule attribute, never a user preference.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityStyle   Severity = "style"
)

// Issue is a single detected violation.
type Issue struct {
	RuleID       string
	Severity     Severity
	File         string
	PrimaryRange Range
	Message      string
	AutoFixable  bool
	FixHint      string
}

// Line returns the 1-based line number of the issue for reporting.
func (i Issue) Line() int { return i.PrimaryRange.Start.Row + 1 }

// Transformation is the atomic unit of every rewrite: within
// [StartByte, EndByte), replace with exactly Replacement.
type Transformation struct {
	StartByte       int
	EndByte         int
	Replacement     []byte
	Priority        int
	OriginatingRule string
}

// Range returns the transformation's byte span as a Range (positions unset).
func (t Transformation) Range() Range {
	return Range{StartByte: t.StartByte, EndByte: t.EndByte}
}
