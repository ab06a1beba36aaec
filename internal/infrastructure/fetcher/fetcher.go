// Package fetcher downloads article pages and extracts their visible text.
// News sites linked from the reports are flaky, so requests rotate user
// agents and retry transient failures; a page that still fails yields an
// empty article rather than aborting the batch.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/sync/errgroup"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/domain"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/ports"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
}

// HTTPError marks a non-200 response so the retry policy can distinguish
// transient from permanent failures.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d fetching %s", e.StatusCode, e.URL)
}

// Options tunes scraping behavior.
type Options struct {
	Timeout      time.Duration
	MaxTextRunes int
	Workers      int
}

// Fetcher implements ports.ArticleSource over plain HTTP.
type Fetcher struct {
	client   *http.Client
	logger   *slog.Logger
	maxRunes int
	workers  int
}

var _ ports.ArticleSource = (*Fetcher)(nil)

// New wires an HTTP client; zero options fall back to the scraper defaults
// (30s timeout, 5000 runes, 10 workers).
func New(client *http.Client, opts Options, logger *slog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.MaxTextRunes <= 0 {
		opts.MaxTextRunes = 5000
	}
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, logger: logger, maxRunes: opts.MaxTextRunes, workers: opts.Workers}
}

// Fetch downloads every URL across the worker pool, preserving input order.
// Individual failures produce empty articles; only cancellation aborts.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) ([]domain.Article, error) {
	articles := make([]domain.Article, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, u := range urls {
		g.Go(func() error {
			text, err := f.fetchOne(gctx, u)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				f.logger.Warn("fetch failed", "url", u, "error", err)
			}
			articles[i] = domain.Article{URL: u, RawText: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return articles, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, pageURL string) (string, error) {
	return retry.DoWithData(
		func() (string, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
			if err != nil {
				return "", fmt.Errorf("build request: %w", err)
			}
			req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
			req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
			req.Header.Set("Accept-Language", "es-419,es;q=0.8,en;q=0.5")

			resp, err := f.client.Do(req)
			if err != nil {
				return "", fmt.Errorf("request page: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return "", &HTTPError{StatusCode: resp.StatusCode, URL: pageURL}
			}

			doc, err := goquery.NewDocumentFromReader(resp.Body)
			if err != nil {
				return "", fmt.Errorf("parse document: %w", err)
			}

			host := ""
			if resp.Request != nil && resp.Request.URL != nil {
				host = resp.Request.URL.Host
			}
			return f.extractText(doc, host), nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.MaxJitter(250*time.Millisecond),
		retry.RetryIf(isRetryableError),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Debug("retrying fetch", "attempt", n+1, "url", pageURL, "error", err)
		}),
	)
}

// extractText drops script/style subtrees, flattens the page to whitespace-
// collapsed text, caps it, and prefixes the source host for auditability.
func (f *Fetcher) extractText(doc *goquery.Document, host string) string {
	doc.Find("script, style, noscript").Remove()

	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	if runes := []rune(text); len(runes) > f.maxRunes {
		text = string(runes[:f.maxRunes])
	}
	if text == "" {
		return ""
	}
	if host != "" {
		return fmt.Sprintf("[Source: %s] %s", host, text)
	}
	return text
}

// isRetryableError is true for transient failures only; 4xx responses other
// than 429 are permanent.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	return true
}
