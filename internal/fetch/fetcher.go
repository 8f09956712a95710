// Package fetch is the reference Page fetcher (SPEC_FULL.md §6.1):
// fetch(url, headers, timeout_ms) -> {status_code, body_bytes, final_url},
// with required browser-like headers and never identifying itself as a
// bot by default. Grounded on the teacher's internal/tools.FetchTool,
// reshaped into a typed Fetcher interface and extended with the
// configurable truncation cap and status taxonomy the Research
// subgraph's Read step needs.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"deepresearch/internal/errs"
)

// defaultMaxBodyBytes is used when NewHTTPFetcher is given a non-positive
// cap, matching SPEC_FULL.md §6 body_truncate_bytes' own default.
const defaultMaxBodyBytes = 50 * 1024

// documentExtensions are the URL suffixes the Read step routes through
// the plug-in document readers (SPEC_FULL.md §6.1) instead of HTML text
// extraction: their bodies are binary formats, not markup.
var documentExtensions = []string{".pdf", ".docx", ".xlsx", ".csv"}

// defaultUserAgent and defaultAcceptLanguage are browser-like by default;
// the core forbids identifying itself as a bot (SPEC_FULL.md §6).
const (
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultAcceptLanguage = "en-US,en;q=0.9"
)

// Result is the outcome of one fetch: status, body (extracted visible
// text for HTML, raw bytes for a recognized document format), the URL
// actually served (after redirects), and whether the body was truncated
// to the byte cap. DocumentExt is non-empty when Body holds an
// undecoded document body the Read step must hand to a document reader
// rather than treat as plain text.
type Result struct {
	StatusCode     int
	Body           string
	DocumentExt    string
	FinalURL       string
	BytesTruncated bool
	ContentLength  int
}

// Fetcher is the opaque page-fetch callable the core depends on.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (Result, error)
}

// HTTPFetcher implements Fetcher over net/http plus an HTML-to-text walk
// via golang.org/x/net/html, matching the teacher's extractText.
type HTTPFetcher struct {
	client       *http.Client
	maxBodyBytes int
}

// NewHTTPFetcher creates a fetcher; the timeout is set per call by Fetch's
// timeout argument, which Fetch applies as a ctx deadline (the Read step
// passes its fetch timeout, 10s by default).
// maxBodyBytes wires in SPEC_FULL.md §6's body_truncate_bytes config
// value; a non-positive value falls back to defaultMaxBodyBytes.
func NewHTTPFetcher(maxBodyBytes int) *HTTPFetcher {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &HTTPFetcher{client: &http.Client{}, maxBodyBytes: maxBodyBytes}
}

// documentExtFor reports the recognized document extension for rawURL's
// path, or "" if it looks like ordinary HTML.
func documentExtFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	path := rawURL
	if err == nil {
		path = u.Path
	}
	lower := strings.ToLower(path)
	for _, ext := range documentExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// Fetch retrieves url and extracts its visible text. Non-200 responses
// and network failures are never raised to the caller as a fatal error;
// they are reported through Result.StatusCode and a classified *errs.Error
// the Read step uses to set the page's status.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return Result{}, errs.PermanentProvider("build fetch request", err)
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Language", defaultAcceptLanguage)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, errs.TransientProvider("fetch failed for "+url, err)
	}
	defer resp.Body.Close()

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode != http.StatusOK {
		kind := errs.PermanentProvider
		if resp.StatusCode >= 500 {
			kind = errs.TransientProvider
		}
		return Result{StatusCode: resp.StatusCode, FinalURL: finalURL}, kind("fetch error", nil)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{StatusCode: resp.StatusCode, FinalURL: finalURL}, errs.TransientProvider("read body", err)
	}

	docExt := documentExtFor(finalURL)
	body := string(raw)
	if docExt == "" {
		body = extractText(body)
	}

	truncated := false
	if len(body) > f.maxBodyBytes {
		body = body[:f.maxBodyBytes]
		truncated = true
	}

	return Result{
		StatusCode:     resp.StatusCode,
		Body:           body,
		DocumentExt:    docExt,
		FinalURL:       finalURL,
		BytesTruncated: truncated,
		ContentLength:  len(body),
	}, nil
}

// extractText walks the HTML tree, skipping script/style/noscript
// subtrees, and returns cleaned visible text. Falls back to a regex tag
// strip if the document fails to parse.
func extractText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		re := regexp.MustCompile(`<[^>]*>`)
		return cleanWhitespace(re.ReplaceAllString(htmlContent, ""))
	}

	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
			text.WriteString(" ")
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(doc)

	return cleanWhitespace(text.String())
}

func cleanWhitespace(s string) string {
	re := regexp.MustCompile(`\s+`)
	return strings.TrimSpace(re.ReplaceAllString(s, " "))
}
