// Package fetch retrieves a privacy policy page and extracts its text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNoContent is returned when a page yields no extractable text.
	ErrNoContent = errors.New("no content")
	// ErrCaptchaDetected is returned when the page is a bot-check interstitial.
	ErrCaptchaDetected = errors.New("captcha detected")
)

// Defaults used when Config leaves a field zero.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; ClauseGuard/1.0; +https://github.com/0x-stone/clauseguard)"
	DefaultMaxBytes  = 5 << 20
	maxRedirects     = 5
)

var captchaMarkers = []string{"verifying you are human", "cloudflare"}

// Config configures a Fetcher.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	MaxBytes  int64

	// AllowPrivateNetworks disables the private address check. Tests only.
	AllowPrivateNetworks bool
}

// Fetcher downloads pages without reaching private networks.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	converter *Converter
	logger    *zap.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	dial := dialer.DialContext
	if !cfg.AllowPrivateNetworks {
		// resolve first so a public name cannot rebind to a private address
		dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, fmt.Errorf("invalid address: %w", err)
			}
			ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, fmt.Errorf("DNS lookup failed: %w", err)
			}
			for _, ip := range ips {
				if IsPrivateIP(ip.IP) {
					return nil, fmt.Errorf("connection to private IP %s is not allowed", ip.IP)
				}
			}
			var lastErr error
			for _, ip := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip.IP.String(), port))
				if err == nil {
					return conn, nil
				}
				lastErr = err
			}
			return nil, fmt.Errorf("failed to connect to %s: %w", host, lastErr)
		}
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext:           dial,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: cfg.Timeout,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (max %d)", maxRedirects)
				}
				return ValidateURL(req.URL.String())
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
		converter: NewConverter(),
		logger:    logger,
	}
}

// FetchPage downloads url and returns its text. Blank pages and non-200
// responses yield ErrNoContent; bot-check pages yield ErrCaptchaDetected.
func (f *Fetcher) FetchPage(ctx context.Context, url string) (string, error) {
	if err := ValidateURL(url); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return "", fmt.Errorf("content too large (exceeds %d bytes)", f.maxBytes)
	}

	text, err := f.extract(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if IsCaptchaPage(text) {
		return "", ErrCaptchaDetected
	}
	if resp.StatusCode != http.StatusOK {
		f.logger.Info("policy page returned non-200",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("%w: HTTP %d", ErrNoContent, resp.StatusCode)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoContent
	}

	f.logger.Debug("fetched policy page",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Int("text_len", len(text)))
	return text, nil
}

func (f *Fetcher) extract(contentType string, body []byte) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "text/plain" {
		return strings.TrimSpace(string(body)), nil
	}
	return f.converter.Convert(body)
}

// IsCaptchaPage reports whether text looks like a bot-check interstitial.
func IsCaptchaPage(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range captchaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
