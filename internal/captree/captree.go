// Package captree wraps the tree-sitter C grammar to provide parsing,
// s-expression querying, and AST walking over an immutable source buffer.
// CAPL-specific keywords (variables, on, message, timer, testcase, ...) are
// not part of the C grammar; callers recognize them positionally by
// inspecting node text and sibling structure, as described by the fact
// extractor built on top of this package.
package captree

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	"github.com/capl-tools/capllint/internal/model"
)

// Language returns the shared tree-sitter C grammar.
func Language() *sitter.Language {
	return c.GetLanguage()
}

// NewParser creates a fresh parser bound to the C grammar. Parsers are not
// safe for concurrent use; callers analyzing files in parallel must create
// one Parser per goroutine.
func NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(Language())
	return p
}

// ParseResult is the immutable outcome of parsing one source buffer.
type ParseResult struct {
	Tree          *sitter.Tree
	Source        []byte
	ErrorsPresent bool
	lineStarts    []int // byte offset of the start of each line
}

// Close releases the underlying tree-sitter tree. Safe to call on a nil
// receiver.
func (r *ParseResult) Close() {
	if r != nil && r.Tree != nil {
		r.Tree.Close()
	}
}

// RootNode returns the tree's root node.
func (r *ParseResult) RootNode() *sitter.Node {
	return r.Tree.RootNode()
}

// Parse parses source with a fresh parser and returns the resulting tree.
// Failure to construct a tree at all is a hard error; a tree with ERROR
// subtrees (ErrorsPresent=true) is still returned as a best-effort result.
func Parse(source []byte) (*ParseResult, error) {
	return ParseWithParser(NewParser(), source)
}

// ParseWithParser parses source using an already-constructed parser,
// avoiding the cost of allocating one per call in hot loops (the auto-fix
// and formatter convergence loops re-parse after every applied pass).
func ParseWithParser(parser *sitter.Parser, source []byte) (*ParseResult, error) {
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing source: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parsing source: grammar produced no tree")
	}

	return &ParseResult{
		Tree:          tree,
		Source:        source,
		ErrorsPresent: tree.RootNode().HasError(),
		lineStarts:    buildLineStarts(source),
	}, nil
}

func buildLineStarts(source []byte) []int {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// PositionForByte converts an absolute byte offset into a zero-based
// (row, column) position via O(log n) binary search over the line-start
// table.
func (r *ParseResult) PositionForByte(offset int) model.Position {
	// sort.Search finds the first line start strictly greater than offset;
	// the line containing offset is the one before it.
	row := sort.Search(len(r.lineStarts), func(i int) bool {
		return r.lineStarts[i] > offset
	}) - 1
	if row < 0 {
		row = 0
	}
	return model.Position{
		Row:    row,
		Column: offset - r.lineStarts[row],
		Byte:   offset,
	}
}

// OffsetForRow returns the byte offset of the start of row (O(1)).
func (r *ParseResult) OffsetForRow(row int) int {
	if row < 0 {
		return 0
	}
	if row >= len(r.lineStarts) {
		return len(r.Source)
	}
	return r.lineStarts[row]
}

// RangeFor builds a model.Range from a node's byte span.
func (r *ParseResult) RangeFor(n *sitter.Node) model.Range {
	start := int(n.StartByte())
	end := int(n.EndByte())
	return model.Range{
		StartByte: start,
		EndByte:   end,
		Start:     r.PositionForByte(start),
		End:       r.PositionForByte(end),
	}
}

// Text returns the source text spanned by a node.
func (r *ParseResult) Text(n *sitter.Node) string {
	return string(r.Source[n.StartByte():n.EndByte()])
}

// Capture binds one query capture name to its matched node.
type Capture struct {
	Name string
	Node *sitter.Node
}

// Match is one query match: the pattern index and its captures in the
// order tree-sitter reported them.
type Match struct {
	PatternIndex int
	Captures     []Capture
}

// Get returns the first capture bound to name, or nil.
func (m Match) Get(name string) *sitter.Node {
	for _, c := range m.Captures {
		if c.Name == name {
			return c.Node
		}
	}
	return nil
}

// All returns every capture bound to name, in match order.
func (m Match) All(name string) []*sitter.Node {
	var nodes []*sitter.Node
	for _, c := range m.Captures {
		if c.Name == name {
			nodes = append(nodes, c.Node)
		}
	}
	return nodes
}

// Query compiles and runs an s-expression query against node, returning
// every match with its captures bound to names. Query compilation is not
// cached here; callers that run the same query repeatedly (rules do) should
// compile once via CompileQuery and call RunQuery per file.
func Query(node *sitter.Node, sExpression string) ([]Match, error) {
	q, err := CompileQuery(sExpression)
	if err != nil {
		return nil, err
	}
	return RunQuery(q, node), nil
}

// CompileQuery compiles an s-expression query against the C grammar once,
// for reuse across many files.
func CompileQuery(sExpression string) (*sitter.Query, error) {
	q, err := sitter.NewQuery([]byte(sExpression), Language())
	if err != nil {
		return nil, fmt.Errorf("compiling query: %w", err)
	}
	return q, nil
}

// RunQuery executes a pre-compiled query over node's subtree.
func RunQuery(q *sitter.Query, node *sitter.Node) []Match {
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, node)

	var matches []Match
	for {
		m, ok := cursor.NextMatch()
		if !ok {
			break
		}
		captures := make([]Capture, 0, len(m.Captures))
		for _, c := range m.Captures {
			captures = append(captures, Capture{
				Name: q.CaptureNameForId(c.Index),
				Node: c.Node,
			})
		}
		matches = append(matches, Match{PatternIndex: int(m.PatternIndex), Captures: captures})
	}
	return matches
}

// Walk returns a range-over-func iterator that yields every node in node's
// subtree in document (pre-order, depth-first) order along with its depth
// relative to node (which is depth 0). Rules iterate this explicitly rather
// than having traversal hidden inside a callback, per the "no hidden yield
// surface" convention: each rule owns its own filtering logic.
func Walk(node *sitter.Node) func(yield func(n *sitter.Node, depth int) bool) {
	return func(yield func(n *sitter.Node, depth int) bool) {
		var visit func(n *sitter.Node, depth int) bool
		visit = func(n *sitter.Node, depth int) bool {
			if !yield(n, depth) {
				return false
			}
			for i := 0; i < int(n.ChildCount()); i++ {
				if !visit(n.Child(i), depth+1) {
					return false
				}
			}
			return true
		}
		visit(node, 0)
	}
}

// Children returns the direct children of node as a slice, a convenience
// over repeated ChildCount/Child calls.
func Children(node *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, node.ChildCount())
	for i := range out {
		out[i] = node.Child(i)
	}
	return out
}

// FindChildOfType returns the first direct child of node with the given
// grammar type, or nil.
func FindChildOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if c := node.Child(i); c.Type() == nodeType {
			return c
		}
	}
	return nil
}

// FindParentOfType walks up from node looking for the first ancestor with
// the given grammar type.
func FindParentOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == nodeType {
			return p
		}
	}
	return nil
}

// FindAllByType returns every descendant of node (node itself included)
// with the given grammar type, in document order.
func FindAllByType(node *sitter.Node, nodeType string) []*sitter.Node {
	var out []*sitter.Node
	for n, _ := range Walk(node) {
		if n.Type() == nodeType {
			out = append(out, n)
		}
	}
	return out
}

// FirstLine returns the first line of node's text, trimmed. Used
// positionally to recognize CAPL constructs (on message/timer/start, etc.)
// that the C grammar sees only as identifiers or ERROR regions.
func (r *ParseResult) FirstLine(n *sitter.Node) string {
	text := r.Text(n)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			return trimSpace(text[:i])
		}
	}
	return trimSpace(text)
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
