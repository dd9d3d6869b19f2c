// Package enrich derives best-effort client context for session
// records: a device label from the User-Agent, the originating IP and
// an approximate country from an external lookup service. Every
// failure degrades to "unknown"; nothing here aborts a login.
package enrich

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"fullpega.cl/internal/auth"
	"fullpega.cl/internal/obs"
)

const (
	defaultBaseURL = "https://ipapi.co"
	defaultTimeout = 3 * time.Second

	maxCountryBody = 1 << 10
)

// Client performs context enrichment. Implements auth.Enricher.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration

	// fallbackIP substitutes a fixed public address when the caller's
	// IP is private or loopback. Empty disables the substitution; it
	// is only set from an explicit non-production config flag.
	fallbackIP string
}

// Option configures Client behavior.
type Option func(*Client)

// WithBaseURL overrides the geolocation service base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if v := strings.TrimRight(strings.TrimSpace(url), "/"); v != "" {
			c.baseURL = v
		}
	}
}

// WithTimeout bounds each geolocation call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithFallbackIP enables the non-production placeholder public IP for
// private or loopback callers.
func WithFallbackIP(ip string) Option {
	return func(c *Client) {
		c.fallbackIP = strings.TrimSpace(ip)
	}
}

// WithHTTPClient overrides the HTTP client (useful for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    defaultBaseURL,
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ auth.Enricher = (*Client)(nil)

// Enrich resolves device, IP and country metadata. The returned
// ClientContext is always usable; the error only reports that the
// country lookup degraded.
func (c *Client) Enrich(ctx context.Context, client auth.ClientInfo) (auth.ClientContext, error) {
	out := auth.ClientContext{DeviceInfo: DeviceLabel(client.UserAgent)}

	ip := ClientIP(client.ForwardedFor, client.RemoteAddr)
	if ip == "" || IsPrivateIP(ip) {
		if c.fallbackIP == "" {
			return out, nil
		}
		ip = c.fallbackIP
	}
	out.IPAddress = &ip

	country, err := c.lookupCountry(ctx, ip)
	if err != nil {
		return out, fmt.Errorf("country lookup for %s: %w", ip, err)
	}
	out.Country = country
	return out, nil
}

// ClientIP prefers the first hop of X-Forwarded-For over the
// transport-level peer address.
func ClientIP(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// IsPrivateIP reports whether the address is loopback, RFC1918 or
// otherwise unroutable, in which case the geolocation lookup is
// suppressed.
func IsPrivateIP(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return true
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast()
}

// lookupCountry calls the external IP-to-country service once, with a
// short timeout. Empty bodies and the literal "undefined" mean the
// country is unknown, not an error.
func (c *Client) lookupCountry(ctx context.Context, ip string) (*string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/country_name/", c.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	obs.ObserveGeoLookup(time.Since(start))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCountryBody))
	if err != nil {
		return nil, err
	}
	country := strings.TrimSpace(string(body))
	if country == "" || strings.EqualFold(country, "undefined") {
		return nil, nil
	}
	return &country, nil
}
