package rewrite

import (
	"strings"
	"testing"

	"github.com/capl-tools/capllint/internal/model"
)

func TestApplyReplace(t *testing.T) {
	t.Parallel()
	source := []byte("a->b;")
	b := NewBuilder()
	b.Replace(1, 3, []byte("."), "E008")

	got, err := Apply(source, b.Transformations())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if string(got) != "a.b;" {
		t.Errorf("got %q, want %q", got, "a.b;")
	}
}

func TestApplyInsertAndDelete(t *testing.T) {
	t.Parallel()
	source := []byte("int x;\n")
	b := NewBuilder()
	b.Delete(0, 4, "rule_a")
	b.Insert(4, []byte("long "), "rule_b")

	got, err := Apply(source, b.Transformations())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if string(got) != "long x;\n" {
		t.Errorf("got %q, want %q", got, "long x;\n")
	}
}

func TestApplyNoTransformations(t *testing.T) {
	t.Parallel()
	source := []byte("unchanged")
	got, err := Apply(source, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if string(got) != "unchanged" {
		t.Errorf("got %q, want unchanged copy", got)
	}
}

func TestApplyRejectsOverlap(t *testing.T) {
	t.Parallel()
	source := []byte("abcdef")
	transformations := []model.Transformation{
		{StartByte: 0, EndByte: 3, Replacement: []byte("x"), OriginatingRule: "r1"},
		{StartByte: 2, EndByte: 5, Replacement: []byte("y"), OriginatingRule: "r2"},
	}
	_, err := Apply(source, transformations)
	if err == nil {
		t.Fatal("expected an overlap error")
	}
	if _, ok := err.(*OverlapError); !ok {
		t.Errorf("expected *OverlapError, got %T: %v", err, err)
	}
}

func TestApplyAllowsAbuttingInsertsAtSamePoint(t *testing.T) {
	t.Parallel()
	source := []byte("ab")
	transformations := []model.Transformation{
		{StartByte: 1, EndByte: 1, Replacement: []byte("1"), Priority: 0, OriginatingRule: "r1"},
		{StartByte: 1, EndByte: 1, Replacement: []byte("2"), Priority: 1, OriginatingRule: "r2"},
	}
	got, err := Apply(source, transformations)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if string(got) != "a12b" {
		t.Errorf("got %q, want %q (priority-ordered inserts)", got, "a12b")
	}
}

func TestApplyRejectsOutOfBounds(t *testing.T) {
	t.Parallel()
	source := []byte("ab")
	transformations := []model.Transformation{
		{StartByte: 0, EndByte: 10, Replacement: nil, OriginatingRule: "r1"},
	}
	if _, err := Apply(source, transformations); err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}

func TestCollectRemoveInsert(t *testing.T) {
	t.Parallel()
	text := "on start\n{\n  int a;\n  func();\n  int b;\n}\n"
	source := []byte(text)

	declA := strings.Index(text, "  int a;\n")
	declB := strings.Index(text, "  int b;\n")
	target := strings.Index(text, "{\n") + len("{\n")

	items := []model.Range{
		{StartByte: declA, EndByte: declA + len("  int a;\n")},
		{StartByte: declB, EndByte: declB + len("  int b;\n")},
	}

	b := NewBuilder()
	CollectRemoveInsert(b, items, source, target, "E003")

	got, err := Apply(source, b.Transformations())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	countOccurrences := func(s, substr string) int {
		n, i := 0, 0
		for {
			j := strings.Index(s[i:], substr)
			if j < 0 {
				return n
			}
			n++
			i += j + len(substr)
		}
	}

	gotStr := string(got)
	if countOccurrences(gotStr, "int a;") != 1 {
		t.Errorf("expected exactly one surviving occurrence of 'int a;', got:\n%s", gotStr)
	}
	if countOccurrences(gotStr, "int b;") != 1 {
		t.Errorf("expected exactly one surviving occurrence of 'int b;', got:\n%s", gotStr)
	}
	if !strings.HasPrefix(gotStr[target:], "  int a;") {
		t.Errorf("expected moved declarations right after the insertion point, got:\n%s", gotStr)
	}
}

func TestBuilderLen(t *testing.T) {
	t.Parallel()
	b := NewBuilder()
	if b.Len() != 0 {
		t.Fatalf("new builder Len() = %d, want 0", b.Len())
	}
	b.Delete(0, 1, "r")
	b.Insert(2, []byte("x"), "r")
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
}
