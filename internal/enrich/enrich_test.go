package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"fullpega.cl/internal/auth"
)

func TestEnrichResolvesCountryForPublicIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/200.83.1.10/country_name/" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("Chile\n"))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	got, err := c.Enrich(context.Background(), auth.ClientInfo{
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
		ForwardedFor: "200.83.1.10, 10.0.0.1",
		RemoteAddr:   "10.0.0.2:5511",
	})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got.IPAddress == nil || *got.IPAddress != "200.83.1.10" {
		t.Fatalf("expected forwarded-for first hop, got %v", got.IPAddress)
	}
	if got.Country == nil || *got.Country != "Chile" {
		t.Fatalf("expected country Chile, got %v", got.Country)
	}
	if got.DeviceInfo != "Desktop - Windows 10" {
		t.Fatalf("unexpected device label: %q", got.DeviceInfo)
	}
}

func TestEnrichTreatsUndefinedBodyAsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("undefined"))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	got, err := c.Enrich(context.Background(), auth.ClientInfo{RemoteAddr: "8.8.8.8:443"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got.Country != nil {
		t.Fatalf("expected unknown country, got %q", *got.Country)
	}
}

func TestEnrichDegradesOnLookupFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	got, err := c.Enrich(context.Background(), auth.ClientInfo{
		UserAgent:  "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X)",
		RemoteAddr: "8.8.8.8:443",
	})
	if err == nil {
		t.Fatalf("expected degradation error")
	}
	if got.Country != nil {
		t.Fatalf("expected no country on failure")
	}
	if got.IPAddress == nil || *got.IPAddress != "8.8.8.8" {
		t.Fatalf("ip should survive a failed lookup, got %v", got.IPAddress)
	}
	if got.DeviceInfo != "iPhone - iOS 17.2" {
		t.Fatalf("device label should survive a failed lookup, got %q", got.DeviceInfo)
	}
}

func TestEnrichRespectsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("Chile"))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	_, err := c.Enrich(context.Background(), auth.ClientInfo{RemoteAddr: "8.8.8.8:443"})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestEnrichSuppressesLookupForPrivateIP(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("Chile"))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	got, err := c.Enrich(context.Background(), auth.ClientInfo{RemoteAddr: "192.168.1.20:5511"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got.IPAddress != nil || got.Country != nil {
		t.Fatalf("expected no ip/country for private caller, got %v %v", got.IPAddress, got.Country)
	}
	if hits.Load() != 0 {
		t.Fatalf("lookup should have been suppressed")
	}
}

func TestEnrichUsesFallbackIPForPrivateCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/181.173.7.175/country_name/" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("Chile"))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithFallbackIP("181.173.7.175"))
	got, err := c.Enrich(context.Background(), auth.ClientInfo{RemoteAddr: "127.0.0.1:5511"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got.IPAddress == nil || *got.IPAddress != "181.173.7.175" {
		t.Fatalf("expected fallback ip, got %v", got.IPAddress)
	}
	if got.Country == nil || *got.Country != "Chile" {
		t.Fatalf("expected country via fallback ip, got %v", got.Country)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		forwardedFor string
		remoteAddr   string
		want         string
	}{
		{"200.83.1.10, 10.0.0.1", "10.0.0.2:1", "200.83.1.10"},
		{"", "200.83.1.10:5511", "200.83.1.10"},
		{"", "[2001:db8::1]:443", "2001:db8::1"},
		{"  ", "", ""},
	}
	for _, tc := range cases {
		if got := ClientIP(tc.forwardedFor, tc.remoteAddr); got != tc.want {
			t.Fatalf("ClientIP(%q,%q)=%q, want %q", tc.forwardedFor, tc.remoteAddr, got, tc.want)
		}
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{"10.1.2.3", "172.16.0.1", "172.31.255.255", "192.168.0.1", "127.0.0.1", "::1", "not-an-ip", ""}
	for _, ip := range private {
		if !IsPrivateIP(ip) {
			t.Fatalf("expected %q to be private", ip)
		}
	}
	public := []string{"200.83.1.10", "8.8.8.8", "2607:f8b0::1", "172.32.0.1"}
	for _, ip := range public {
		if IsPrivateIP(ip) {
			t.Fatalf("expected %q to be public", ip)
		}
	}
}
