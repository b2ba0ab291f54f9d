package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"arlo/internal/agent/ports"
)

const (
	maxFetchBytes   = 512 * 1024
	maxFetchContent = 64 * 1024
	fetchTimeout    = 30 * time.Second
)

type webFetch struct {
	client *http.Client
}

func NewWebFetch(cfg Config) ports.ToolExecutor {
	return &webFetch{client: &http.Client{Timeout: fetchTimeout}}
}

func (t *webFetch) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	rawURL, ok := stringArg(call.Arguments, "url")
	if !ok || rawURL == "" {
		return failure(call, "missing 'url' argument"), nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return failure(call, "invalid url %q, only http and https are supported", rawURL), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return failure(call, "build request: %v", err), nil
	}
	req.Header.Set("User-Agent", "arlo-agent/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return failure(call, "fetch %s: %v", rawURL, err), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return failure(call, "read response from %s: %v", rawURL, err), nil
	}
	if resp.StatusCode >= 400 {
		return failure(call, "fetch %s: status %d", rawURL, resp.StatusCode), nil
	}

	contentType := resp.Header.Get("Content-Type")
	text := string(body)
	if strings.Contains(contentType, "text/html") {
		text = extractText(text)
	}
	truncated := false
	if len(text) > maxFetchContent {
		text = text[:maxFetchContent] + "\n... [truncated]"
		truncated = true
	}
	return &ports.ToolResult{
		CallID:  call.ID,
		Content: text,
		Metadata: map[string]any{
			"url":          rawURL,
			"status":       resp.StatusCode,
			"content_type": contentType,
			"truncated":    truncated,
		},
	}, nil
}

// extractText strips markup and collapses an HTML document to its
// readable text. On parse failure the raw body is returned instead.
func extractText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style, noscript, iframe").Remove()

	var b strings.Builder
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	text := body.Text()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// ApprovalMessage names the target URL so the user knows what leaves
// the machine.
func (t *webFetch) ApprovalMessage(call ports.ToolCall) string {
	rawURL, ok := stringArg(call.Arguments, "url")
	if !ok {
		return ""
	}
	return fmt.Sprintf("Fetch %s over the network", rawURL)
}

func (t *webFetch) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "web_fetch",
		Description: "Fetch a web page and return its readable text",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"url": {Type: "string", Description: "HTTP or HTTPS URL to fetch"},
			},
			Required: []string{"url"},
		},
	}
}

func (t *webFetch) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:             "web_fetch",
		Category:         "network",
		Permission:       ports.PermissionNetwork,
		RequiresApproval: true,
		Cacheable:        true,
	}
}
