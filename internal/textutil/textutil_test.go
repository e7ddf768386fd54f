package textutil

import (
	"reflect"
	"testing"
)

func TestStripMarkdownFences(t *testing.T) {
	fenced := "```text\nblack leather jacket, white sneakers\n```"
	want := "black leather jacket, white sneakers"
	if got := StripMarkdownFences(fenced); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestStripMarkdownFencesNoFences(t *testing.T) {
	plain := "black leather jacket, white sneakers"
	if got := StripMarkdownFences(plain); got != plain {
		t.Errorf("expected passthrough, got %q", got)
	}
}

func TestSplitCommaList(t *testing.T) {
	got := SplitCommaList(" black leather jacket , white sneakers,, silver hoop earrings ")
	want := []string{"black leather jacket", "white sneakers", "silver hoop earrings"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSplitCommaListEmpty(t *testing.T) {
	if got := SplitCommaList("  ,  , "); got != nil {
		t.Errorf("expected nil for all-empty tokens, got %v", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 4); got != "abcd..." {
		t.Errorf("expected abcd..., got %q", got)
	}
	if got := Truncate("abc", 4); got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
}
