package rule

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/rewrite"
)

// TopLevelOrderingRule reorders top-level declarations into: includes
// (.cin group then .can group, alphabetical within each, de-duplicated),
// the variables block, testcases in source order, event handlers
// alphabetically by (kind, subject), then user functions alphabetically.
// A comment directly attached above a node (no blank line between them)
// travels with it. Gated behind config.ReorderTopLevel; Apply returns
// nil immediately when that's off.
type TopLevelOrderingRule struct{}

func (TopLevelOrderingRule) RuleID() string { return "FMT_TOP_LEVEL_ORDER" }

type topLevelUnit struct {
	header *sitter.Node // nil if no attached comment
	node   *sitter.Node
	kind   string
	key    string
	order  int // stable source order, used for testcases and as a tiebreaker
}

func (rl TopLevelOrderingRule) Apply(file *FormatFile) []model.Transformation {
	if !file.Config.ReorderTopLevel {
		return nil
	}

	units := collectTopLevelUnits(file.Result, file.Root())
	if len(units) < 2 {
		return nil
	}

	reordered := append([]topLevelUnit{}, units...)
	sort.SliceStable(reordered, func(i, j int) bool {
		return orderKey(reordered[i]) < orderKey(reordered[j])
	})

	same := true
	for i := range units {
		if units[i].node != reordered[i].node {
			same = false
			break
		}
	}
	if same {
		return nil
	}

	source := file.Result.Source
	b := rewrite.NewBuilder()
	ruleID := TopLevelOrderingRule{}.RuleID()

	var ranges []model.Range
	for _, u := range units {
		ranges = append(ranges, unitRange(u))
	}
	target := ranges[0].StartByte

	var out []byte
	for i, u := range reordered {
		r := unitRange(u)
		out = append(out, source[r.StartByte:r.EndByte]...)
		if i < len(reordered)-1 {
			out = append(out, '\n', '\n')
		}
	}
	for _, r := range ranges {
		b.Delete(r.StartByte, r.EndByte, ruleID)
	}
	b.Insert(target, out, ruleID)
	return b.Transformations()
}

func unitRange(u topLevelUnit) model.Range {
	start := int(u.node.StartByte())
	if u.header != nil {
		start = int(u.header.StartByte())
	}
	return model.Range{StartByte: start, EndByte: int(u.node.EndByte())}
}

const (
	bucketIncludeCin = 0
	bucketIncludeCan = 1
	bucketVariables  = 2
	bucketTestcase   = 3
	bucketHandler    = 4
	bucketFunction   = 5
	bucketOther      = 6
)

func orderKey(u topLevelUnit) string {
	bucket := bucketFor(u)
	return string([]byte{byte('0' + bucket)}) + "\x00" + u.key
}

func bucketFor(u topLevelUnit) int {
	switch u.kind {
	case "include_cin":
		return bucketIncludeCin
	case "include_can":
		return bucketIncludeCan
	case "variables":
		return bucketVariables
	case "testcase":
		return bucketTestcase
	case "handler":
		return bucketHandler
	case "function":
		return bucketFunction
	default:
		return bucketOther
	}
}

func collectTopLevelUnits(result *captree.ParseResult, root *sitter.Node) []topLevelUnit {
	var units []topLevelUnit
	var pendingComment *sitter.Node
	order := 0

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() == "comment" {
			if isAttachableHeader(result, child) {
				pendingComment = child
			} else {
				pendingComment = nil
			}
			continue
		}

		header := pendingComment
		pendingComment = nil
		if header != nil && !headerAdjacent(result, header, child) {
			header = nil
		}

		kind, key := classifyTopLevelNode(result, child)
		units = append(units, topLevelUnit{header: header, node: child, kind: kind, key: key, order: order})
		order++
	}
	return units
}

func isAttachableHeader(result *captree.ParseResult, comment *sitter.Node) bool {
	return !strings.Contains(result.Text(comment), "\n\n")
}

func headerAdjacent(result *captree.ParseResult, comment, node *sitter.Node) bool {
	gap := int(node.StartPoint().Row) - int(comment.EndPoint().Row)
	return gap <= 1
}

func classifyTopLevelNode(result *captree.ParseResult, n *sitter.Node) (kind, key string) {
	firstLine := result.FirstLine(n)
	text := result.Text(n)

	switch {
	case n.Type() == "preproc_include":
		target := includeSortKey(text)
		if strings.HasSuffix(strings.ToLower(target), ".cin\"") || strings.HasSuffix(strings.ToLower(target), ".cin") {
			return "include_cin", target
		}
		return "include_can", target
	case strings.HasPrefix(firstLine, "variables") && strings.Contains(text, "{"):
		return "variables", ""
	case strings.HasPrefix(firstLine, "testcase"):
		return "testcase", ""
	case strings.HasPrefix(firstLine, "on "):
		return "handler", handlerSortKey(firstLine)
	default:
		return "function", functionSortKey(firstLine)
	}
}

func includeSortKey(text string) string {
	idx := strings.IndexAny(text, "\"<")
	if idx < 0 {
		return text
	}
	return text[idx:]
}

func handlerSortKey(firstLine string) string {
	fields := strings.Fields(firstLine)
	if len(fields) < 2 {
		return firstLine
	}
	return strings.Join(fields[1:], " ")
}

func functionSortKey(firstLine string) string {
	fields := strings.Fields(firstLine)
	for _, f := range fields {
		if idx := strings.Index(f, "("); idx > 0 {
			return f[:idx]
		}
	}
	return firstLine
}
