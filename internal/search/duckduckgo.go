// Package search scrapes DuckDuckGo's HTML results page and, when it can,
// summarizes the top hit through the language model.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "log/slog"

	"golang.org/x/net/html"

	"lyra/internal/apperr"
	"lyra/internal/llm"
)

// maxResults is how many anchors are taken from the results page.
const maxResults = 3

// summarizeThreshold is the minimum page-text length worth summarizing.
const summarizeThreshold = 200

// Result is one scraped search hit.
type Result struct {
	Title string
	URL   string
}

// DuckDuckGo queries the html.duckduckgo.com endpoint, which needs no API key.
type DuckDuckGo struct {
	UserAgent string
	Timeout   time.Duration
	HTTP      *http.Client
	LLM       llm.Client
}

// NewDuckDuckGo builds the search adapter. llmClient is used to summarize
// the first result's page; httpClient may be nil.
func NewDuckDuckGo(userAgent string, timeout time.Duration, httpClient *http.Client, llmClient llm.Client) *DuckDuckGo {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DuckDuckGo{
		UserAgent: userAgent,
		Timeout:   timeout,
		HTTP:      httpClient,
		LLM:       llmClient,
	}
}

// Search scrapes the top results for query. When the first result's page
// yields enough text and the LLM is reachable, the reply is a summary;
// otherwise it is the formatted link list. Zero scraped results map to a
// fixed sentence, not an error.
func (d *DuckDuckGo) Search(ctx context.Context, query string) (string, error) {
	body, err := d.get(ctx, "https://duckduckgo.com/html/?q="+url.QueryEscape(query))
	if err != nil {
		return "", err
	}

	results, err := parseResults(body)
	if err != nil {
		return "", fmt.Errorf("search: parse results: %w", err)
	}
	if len(results) == 0 {
		return "I couldn't find anything relevant online.", nil
	}

	if summary := d.summarizeFirst(ctx, query, results[0].URL); summary != "" {
		return summary, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Top results for '%s':", query)
	for _, r := range results {
		fmt.Fprintf(&sb, "\n- %s: %s", r.Title, r.URL)
	}
	return sb.String(), nil
}

// summarizeFirst fetches the first hit and asks the LLM for a summary.
// Any failure along the way returns "" so the caller falls back to links.
func (d *DuckDuckGo) summarizeFirst(ctx context.Context, query, pageURL string) string {
	if d.LLM == nil {
		return ""
	}

	page, err := d.get(ctx, pageURL)
	if err != nil {
		log.Debug("page fetch failed", "url", pageURL, "err", err)
		return ""
	}

	text := pageText(page)
	if len(text) <= summarizeThreshold {
		return ""
	}
	if len(text) > 4000 {
		text = text[:4000]
	}

	prompt := fmt.Sprintf("Summarize the key points of this page for a user question '%s':\n\n%s", query, text)
	summary, err := d.LLM.Generate(ctx, prompt, "")
	if err != nil || strings.TrimSpace(summary) == "" {
		return ""
	}
	return summary
}

func (d *DuckDuckGo) get(ctx context.Context, rawURL string) ([]byte, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("search: build request: %w", err)
	}
	req.Header.Set("User-Agent", d.UserAgent)

	resp, err := d.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w: %v", apperr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: %w: status %s", apperr.ErrUnavailable, resp.Status)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

// parseResults extracts the result anchors (class "result__a") from the
// DuckDuckGo HTML endpoint.
func parseResults(body []byte) ([]Result, error) {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	var results []Result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			r := Result{
				Title: strings.TrimSpace(textContent(n)),
				URL:   attr(n, "href"),
			}
			if r.Title != "" && r.URL != "" {
				results = append(results, r)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

// pageText flattens a page into whitespace-collapsed visible text,
// skipping script, style, and noscript subtrees.
func pageText(body []byte) string {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
