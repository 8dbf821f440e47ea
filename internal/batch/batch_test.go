package batch

import (
	"errors"
	"testing"
)

func TestRunPreservesOrder(t *testing.T) {
	t.Parallel()
	paths := []string{"c.can", "a.can", "b.can"}
	results := Run(paths, func(path string) (string, error) {
		return "processed:" + path, nil
	})

	if len(results) != len(paths) {
		t.Fatalf("got %d results, want %d", len(results), len(paths))
	}
	for i, p := range paths {
		if results[i].Path != p {
			t.Errorf("result %d path = %q, want %q", i, results[i].Path, p)
		}
		if results[i].Value != "processed:"+p {
			t.Errorf("result %d value = %q", i, results[i].Value)
		}
	}
}

func TestRunCollectsPerPathErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	paths := []string{"good.can", "bad.can"}
	results := Run(paths, func(path string) (int, error) {
		if path == "bad.can" {
			return 0, boom
		}
		return len(path), nil
	})

	if results[0].Err != nil {
		t.Errorf("expected good.can to succeed, got %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, boom) {
		t.Errorf("expected bad.can to fail with boom, got %v", results[1].Err)
	}
}

func TestRunEmptyPaths(t *testing.T) {
	t.Parallel()
	results := Run[int](nil, func(path string) (int, error) {
		t.Fatal("work should never be called for an empty path list")
		return 0, nil
	})
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestRunSingleFile(t *testing.T) {
	t.Parallel()
	results := Run([]string{"only.can"}, func(path string) (string, error) {
		return path, nil
	})
	if len(results) != 1 || results[0].Value != "only.can" {
		t.Errorf("got %v", results)
	}
}
