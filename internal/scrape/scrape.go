package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"docharvest-backend/internal/shared/apperr"
	"docharvest-backend/internal/shared/sanitize"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 5
	DefaultMaxBodyBytes = 10 << 20
	DefaultUserAgent    = "docharvest/1.0 (+https://github.com/docharvest)"

	MaxContentLength = 1_000_000
)

var errTooManyRedirects = errors.New("too many redirects")

// Result is the outcome of a successful page scrape.
type Result struct {
	Title      string
	Content    string
	URL        string
	FinalURL   string
	StatusCode int
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithTransport sets the round tripper used for outbound requests.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Scraper) {
		if rt != nil {
			s.transport = rt
		}
	}
}

// WithTimeout bounds each request, redirects included.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxRedirects caps redirect hops.
func WithMaxRedirects(n int) Option {
	return func(s *Scraper) {
		if n >= 0 {
			s.maxRedirects = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) {
		if strings.TrimSpace(ua) != "" {
			s.userAgent = ua
		}
	}
}

// WithMaxBodyBytes caps the accepted response size.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithHostRate limits requests per second to any single host. Zero disables it.
func WithHostRate(rps float64) Option {
	return func(s *Scraper) {
		s.limiter = newHostLimiter(rps)
	}
}

// Scraper fetches a single public page and extracts its main text.
type Scraper struct {
	transport    http.RoundTripper
	client       *http.Client
	timeout      time.Duration
	maxRedirects int
	maxBodyBytes int64
	userAgent    string
	limiter      *hostLimiter
}

// New builds a Scraper with default bounds.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		transport:    http.DefaultTransport,
		timeout:      DefaultTimeout,
		maxRedirects: DefaultMaxRedirects,
		maxBodyBytes: DefaultMaxBodyBytes,
		userAgent:    DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.client = &http.Client{
		Transport:     s.transport,
		CheckRedirect: s.checkRedirect,
	}
	return s
}

// Scrape fetches rawURL and returns its title and main content.
// Failures are *apperr.Error values.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (Result, error) {
	target, err := ValidateFormat(rawURL)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.wait(ctx, target.Hostname()); err != nil {
		return Result{}, mapTransportError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return Result{}, apperr.Validationf(CodeInvalidURL, "invalid URL format: %s", target)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, mapTransportError(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return Result{}, err
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !isHTML(ct) {
		return Result{}, apperr.Validationf(CodeUnsupportedContentType, "URL does not serve HTML content (%s)", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes+1))
	if err != nil {
		return Result{}, mapTransportError(err)
	}
	if int64(len(body)) > s.maxBodyBytes {
		return Result{}, apperr.Validationf(CodeResponseTooLarge, "page exceeds the %d byte limit", s.maxBodyBytes)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{}, apperr.Processing(CodeParseFailed, "failed to parse page HTML", err)
	}

	title := extractTitle(doc, target.Hostname())
	removeNoise(doc)
	content := sanitize.Truncate(sanitize.Text(extractContent(doc)), MaxContentLength)
	if content == "" {
		return Result{}, apperr.Processing(CodeNoContent, "no meaningful content found on the page", nil)
	}

	finalURL := target.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return Result{
		Title:      title,
		Content:    content,
		URL:        target.String(),
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
	}, nil
}

// ValidateURL probes rawURL with a HEAD request and reports whether it is
// reachable and serves HTML. It never returns an error.
func (s *Scraper) ValidateURL(ctx context.Context, rawURL string) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
		}
	}()

	target, err := ValidateFormat(rawURL)
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target.String(), nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError && isHTML(resp.Header.Get("Content-Type"))
}

func (s *Scraper) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) > s.maxRedirects {
		return errTooManyRedirects
	}
	if err := checkTarget(req.URL); err != nil {
		return err
	}
	req.Header.Set("User-Agent", s.userAgent)
	return nil
}

func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return apperr.Validation(CodePageNotFound, "page not found (404)")
	case code == http.StatusForbidden:
		return apperr.Validation(CodeBlocked, "access forbidden (403): the site blocks scraping")
	default:
		return apperr.Validationf(CodeHTTPStatus, "HTTP %d: failed to fetch page", code)
	}
}

func mapTransportError(err error) error {
	if typed, ok := apperr.As(err); ok {
		return typed
	}
	if errors.Is(err, errTooManyRedirects) {
		return apperr.Validation(CodeTooManyRedirects, "URL redirects too many times")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Processing(CodeTimeout, "request timed out while fetching the page", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.Processing(CodeTimeout, "request timed out while fetching the page", err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return apperr.Validation(CodeNotAccessible, "URL is not accessible: host not found or connection refused")
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return apperr.Validation(CodeNotAccessible, "URL is not accessible: host not found or connection refused")
	}
	return apperr.Processing(CodeFetchFailed, fmt.Sprintf("failed to fetch page: %v", err), err)
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

type hostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
}

func newHostLimiter(rps float64) *hostLimiter {
	if rps <= 0 {
		return nil
	}
	return &hostLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
	}
}

func (h *hostLimiter) wait(ctx context.Context, host string) error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	limiter, ok := h.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(h.rps), 1)
		h.limiters[host] = limiter
	}
	h.mu.Unlock()
	return limiter.Wait(ctx)
}
