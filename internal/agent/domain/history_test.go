package domain

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestHistoryAppendAndMessages(t *testing.T) {
	h := NewHistory(0)
	h.Append("user", "hello")
	h.Append("assistant", "hi there")

	msgs := h.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len = %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("roles = %s, %s", msgs[0].Role, msgs[1].Role)
	}

	// Messages returns a copy, not the backing slice.
	msgs[0].Content = "mutated"
	if h.Messages()[0].Content != "hello" {
		t.Error("Messages must return a copy")
	}
}

func TestHistoryEvictsOldestFirst(t *testing.T) {
	h := NewHistory(100)
	h.Append("user", strings.Repeat("alpha ", 40))
	h.Append("assistant", strings.Repeat("beta ", 40))
	h.Append("user", "latest")

	msgs := h.Messages()
	last := msgs[len(msgs)-1]
	if last.Content != "latest" {
		t.Errorf("newest message must survive, got %q", last.Content)
	}
	for _, m := range msgs[:len(msgs)-1] {
		if strings.Contains(m.Content, "alpha") && len(msgs) > 2 {
			t.Error("oldest message should be evicted first")
		}
	}
	if h.TokenCount() > 100 && h.Len() > 1 {
		t.Errorf("token count %d exceeds budget with %d messages", h.TokenCount(), h.Len())
	}
}

func TestTruncateMiddlePreservesEnds(t *testing.T) {
	content := strings.Repeat("0123456789", 1000)
	content = "PREFIX" + content + "SUFFIX"

	out := truncateMiddle(content, 100)
	if len(out) >= len(content) {
		t.Fatal("content should shrink")
	}
	if !strings.HasPrefix(out, "PREFIX") {
		t.Error("prefix lost")
	}
	if !strings.HasSuffix(out, "SUFFIX") {
		t.Error("suffix lost")
	}
	if !strings.Contains(out, "truncated") {
		t.Error("marker missing")
	}

	// Bounded: at most the budget plus the marker overhead.
	if tokenCount(out) > 100+tokenCount(truncationMarker)+8 {
		t.Errorf("truncated content still too large: %d tokens", tokenCount(out))
	}

	// Idempotent: small content passes through untouched.
	if truncateMiddle("short", 100) != "short" {
		t.Error("small content must pass through")
	}
	if again := truncateMiddle(out, 100); again != out {
		t.Error("truncation must be idempotent on already-truncated content")
	}
}

func TestTruncateMiddleKeepsValidUTF8(t *testing.T) {
	content := strings.Repeat("世界和平", 40000)

	out := truncateMiddle(content, 100)
	if len(out) >= len(content) {
		t.Fatal("content should shrink")
	}
	if !utf8.ValidString(out) {
		t.Fatal("truncated output is invalid UTF-8")
	}
	if !strings.Contains(out, "truncated") {
		t.Error("marker missing")
	}

	// Mixed-width content must not split a rune at either seam.
	mixed := "héllo " + strings.Repeat("日本語テキスト", 20000) + " wörld"
	out = truncateMiddle(mixed, 100)
	if !utf8.ValidString(out) {
		t.Fatal("mixed-width output is invalid UTF-8")
	}
	if strings.ContainsRune(out, utf8.RuneError) {
		t.Error("output contains a replacement character")
	}
}
