// Package edgar talks to the SEC EDGAR archives: the company
// submissions API and the per-filing document store. SEC's fair-access
// policy requires a descriptive User-Agent and no more than ten
// requests per second, so every request goes through a shared rate
// limiter and a capped retry loop.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"go.uber.org/ratelimit"
)

const (
	submissionsURL = "https://data.sec.gov/submissions/CIK%s.json"
	archivesURL    = "https://www.sec.gov/Archives/edgar/data/%s/%s/%s"

	defaultUserAgent = "InsiderScreener/1.0 (research@example.com)"
)

// TransportError reports a failed EDGAR request: a connection error,
// a timeout, or an HTTP status of 400 or above.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("edgar: %s returned HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("edgar: request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ClientConfig tunes identification, pacing and retries. The zero
// value gets sane defaults; UserAgent should be overridden with a real
// contact address for anything beyond local testing.
type ClientConfig struct {
	UserAgent         string
	RequestsPerSecond int
	Timeout           time.Duration
	MaxRetries        uint64
	RetryWait         time.Duration
}

// Client is an SEC EDGAR client. All methods are safe for concurrent
// use; the rate limiter is shared across goroutines on purpose so the
// whole process stays under the SEC ceiling.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
	userAgent  string
	maxRetries uint64
	retryWait  time.Duration

	// URL templates, overridable in tests.
	submissionsURL string
	archivesURL    string
}

// NewClient creates a Client, filling in defaults for any unset
// ClientConfig field.
func NewClient(cfg ClientConfig) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 250 * time.Millisecond
	}
	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		limiter:        ratelimit.New(cfg.RequestsPerSecond),
		userAgent:      cfg.UserAgent,
		maxRetries:     cfg.MaxRetries,
		retryWait:      cfg.RetryWait,
		submissionsURL: submissionsURL,
		archivesURL:    archivesURL,
	}
}

// FetchSubmissions retrieves the company submissions index. The CIK is
// zero-padded automatically.
func (c *Client) FetchSubmissions(ctx context.Context, cik string) (*Submissions, error) {
	url := fmt.Sprintf(c.submissionsURL, PadCIK(cik))
	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return nil, err
	}
	var subs Submissions
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, fmt.Errorf("failed to parse submissions response: %w", err)
	}
	return &subs, nil
}

// FetchDocument retrieves the raw text of a filing's primary document.
// Any folder prefix on the primary document name (e.g. "xslF345X05/")
// is stripped so the URL points at the raw XML rather than the XSL
// viewer rendition. If the archive still answers with the viewer page,
// the accession folder index is consulted for the raw .xml member
// before giving up; a document that remains HTML is returned as-is so
// the extractor can classify it.
func (c *Client) FetchDocument(ctx context.Context, cik string, ref FilingReference) (string, error) {
	cikNum := strings.TrimLeft(cik, "0")
	accession := strings.ReplaceAll(ref.AccessionNumber, "-", "")
	docName := ref.PrimaryDocument
	if i := strings.LastIndex(docName, "/"); i >= 0 {
		docName = docName[i+1:]
	}

	url := fmt.Sprintf(c.archivesURL, cikNum, accession, docName)
	body, err := c.get(ctx, url, "application/xml, text/html")
	if err != nil {
		return "", err
	}
	if !looksLikeHTML(body) {
		return string(body), nil
	}

	log.Debug().Str("accession", ref.AccessionNumber).Msg("primary document is HTML, trying folder index")
	if raw, ok := c.rawDocumentFromFolder(ctx, cikNum, accession); ok {
		return raw, nil
	}
	return string(body), nil
}

// rawDocumentFromFolder lists the accession folder and fetches its
// first .xml member that is not an XSL rendition.
func (c *Client) rawDocumentFromFolder(ctx context.Context, cikNum, accession string) (string, bool) {
	indexURL := fmt.Sprintf(c.archivesURL, cikNum, accession, "")
	body, err := c.get(ctx, indexURL, "text/html")
	if err != nil {
		return "", false
	}
	listing, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", false
	}

	var candidate string
	listing.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		name := href
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		if strings.HasSuffix(strings.ToLower(name), ".xml") && !strings.Contains(strings.ToLower(href), "xsl") {
			candidate = name
			return false
		}
		return true
	})
	if candidate == "" {
		return "", false
	}

	raw, err := c.get(ctx, fmt.Sprintf(c.archivesURL, cikNum, accession, candidate), "application/xml")
	if err != nil || looksLikeHTML(raw) {
		return "", false
	}
	return string(raw), true
}

// get performs a rate-limited GET with retries. Connection errors and
// retryable statuses (429, 5xx) are retried with a constant backoff;
// other 4xx statuses fail immediately.
func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	var body []byte
	op := func() error {
		c.limiter.Take()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", accept)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &TransportError{URL: url, Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return &TransportError{URL: url, StatusCode: resp.StatusCode}
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(&TransportError{URL: url, StatusCode: resp.StatusCode})
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return &TransportError{URL: url, Err: err}
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryWait), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if _, ok := err.(*TransportError); ok {
			return nil, err
		}
		return nil, &TransportError{URL: url, Err: err}
	}
	return body, nil
}

func looksLikeHTML(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), "<html")
}

// CompanyFetcher binds a Client to one company so that fetching needs
// only a FilingReference. It satisfies the pipeline's DocumentFetcher
// contract.
type CompanyFetcher struct {
	client *Client
	cik    string
}

// Company returns a fetcher scoped to the given CIK.
func (c *Client) Company(cik string) *CompanyFetcher {
	return &CompanyFetcher{client: c, cik: cik}
}

func (f *CompanyFetcher) FetchDocument(ctx context.Context, ref FilingReference) (string, error) {
	return f.client.FetchDocument(ctx, f.cik, ref)
}
