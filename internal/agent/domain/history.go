package domain

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"arlo/internal/agent/ports"
)

const (
	defaultHistoryBudget = 12000
	defaultMessageBudget = 4000
	truncationMarker     = "\n... [content truncated] ...\n"
	tokenEstimateDivisor = 4
	historyEncodingName  = "cl100k_base"
)

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// tokenCount measures text with the cl100k_base encoding. When the
// encoding cannot be loaded (offline, missing cache) it falls back to
// a bytes/4 estimate rather than failing the run.
func tokenCount(text string) int {
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(historyEncodingName)
		if err == nil {
			encoder = enc
		}
	})
	if encoder == nil {
		return len(text)/tokenEstimateDivisor + 1
	}
	return len(encoder.Encode(text, nil, nil))
}

// History is the append-only conversation context for one run. It
// enforces a token budget: an oversized single message is truncated in
// the middle (prefix and suffix preserved), and when the total exceeds
// the budget the oldest messages are evicted first.
type History struct {
	messages      []ports.Message
	maxTokens     int
	maxPerMessage int
}

// NewHistory creates a history with the given total token budget.
// Non-positive budgets fall back to the defaults.
func NewHistory(maxTokens int) *History {
	if maxTokens <= 0 {
		maxTokens = defaultHistoryBudget
	}
	perMessage := defaultMessageBudget
	if perMessage > maxTokens {
		perMessage = maxTokens
	}
	return &History{maxTokens: maxTokens, maxPerMessage: perMessage}
}

// Append adds one turn, truncating and evicting as needed.
func (h *History) Append(role, content string) {
	content = truncateMiddle(content, h.maxPerMessage)
	h.messages = append(h.messages, ports.Message{Role: role, Content: content})
	h.evict()
}

// Messages returns a copy of the current window.
func (h *History) Messages() []ports.Message {
	return append([]ports.Message(nil), h.messages...)
}

// Len returns the number of messages currently held.
func (h *History) Len() int { return len(h.messages) }

// TokenCount returns the total measured tokens of the window.
func (h *History) TokenCount() int {
	total := 0
	for _, m := range h.messages {
		total += tokenCount(m.Content)
	}
	return total
}

func (h *History) evict() {
	for len(h.messages) > 1 && h.TokenCount() > h.maxTokens {
		h.messages = h.messages[1:]
	}
}

// truncateMiddle bounds content to maxTokens plus the marker overhead
// by keeping a head and a tail and splicing a marker between them.
// Content already within the bound passes through untouched, so the
// operation is idempotent.
func truncateMiddle(content string, maxTokens int) string {
	markerTokens := tokenCount(truncationMarker)
	if tokenCount(content) <= maxTokens+markerTokens {
		return content
	}

	half := maxTokens * tokenEstimateDivisor / 2
	if half > len(content)/2 {
		half = len(content) / 2
	}
	out := splice(content, half)
	for half > 0 && tokenCount(out) > maxTokens+markerTokens {
		half /= 2
		out = splice(content, half)
	}
	return out
}

// splice keeps roughly n bytes from each end of content with the
// truncation marker between them. Cut points back up to rune
// boundaries so the seams stay valid UTF-8.
func splice(content string, n int) string {
	head := n
	for head > 0 && !utf8.RuneStart(content[head]) {
		head--
	}
	tail := len(content) - n
	for tail < len(content) && !utf8.RuneStart(content[tail]) {
		tail++
	}
	return content[:head] + truncationMarker + content[tail:]
}
