package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	applog "finanzas/internal/log"
)

const maxURLLength = 2048

var (
	probeFragments = []string{
		"../", "..\\", ".env", ".git", ".ssh", "etc/passwd", "cmd.exe",
		"wp-admin", "phpmyadmin", "admin.php", "config.php",
		"<script", "javascript:", "eval(", "union select",
	}
	scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "scanner"}
	probeMethods  = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

	privateNetworks = []netip.Prefix{
		netip.MustParsePrefix("127.0.0.0/8"),
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("172.16.0.0/12"),
		netip.MustParsePrefix("192.168.0.0/16"),
	}
)

type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// Detector flags requests that look like probes and works out the client
// address behind trusted proxies.
type Detector struct {
	suspicious atomic.Int64
	invalidIPs atomic.Int64

	mu      sync.RWMutex
	proxies []netip.Prefix
}

// NewDetector trusts forwarding headers from loopback and private networks.
func NewDetector() *Detector {
	return &Detector{proxies: slices.Clone(privateNetworks)}
}

// AddTrustedProxy trusts forwarding headers sent from cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("trusted proxy %q: %w", cidr, err)
	}
	d.mu.Lock()
	d.proxies = append(d.proxies, p.Masked())
	d.mu.Unlock()
	return nil
}

// Classify names what makes r look like a probe, or returns "" for an
// ordinary request. Plain API clients such as curl are ordinary.
func (d *Detector) Classify(r *http.Request) string {
	switch {
	case slices.Contains(probeMethods, r.Method):
		return "method"
	case hasFragment(r.URL.Path, probeFragments):
		return "path"
	case hasFragment(unescapedQuery(r), probeFragments):
		return "query"
	case hasFragment(r.Header.Get("User-Agent"), scannerAgents):
		return "user_agent"
	case len(r.URL.String()) > maxURLLength:
		return "url_length"
	case strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5:
		return "forwarded_chain"
	}
	return ""
}

func unescapedQuery(r *http.Request) string {
	if q, err := url.QueryUnescape(r.URL.RawQuery); err == nil {
		return q
	}
	return r.URL.RawQuery
}

func hasFragment(s string, fragments []string) bool {
	s = strings.ToLower(s)
	return slices.ContainsFunc(fragments, func(f string) bool { return strings.Contains(s, f) })
}

// Middleware only logs. Authentication and routing do the rejecting.
func (d *Detector) Middleware(logger *applog.Logger) func(http.Handler) http.Handler {
	logger = logger.WithComponent(applog.ComponentSecurity)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if reason := d.Classify(r); reason != "" {
				d.suspicious.Add(1)
				logger.WarnContext(r.Context(), "Suspicious request",
					"reason", reason,
					applog.FieldClientIP, d.ExtractClientIP(r),
					applog.FieldMethod, r.Method,
					applog.FieldPath, r.URL.Path,
					applog.FieldUserAgent, r.Header.Get("User-Agent"))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ExtractClientIP returns the peer address, or the forwarded client address
// when the peer is a trusted proxy. X-Forwarded-For wins over X-Real-IP;
// unparsable values are counted and skipped.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !d.trusted(peer.Unmap()) {
		return host
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, ok := d.forwarded(first); ok {
			return ip
		}
	}
	if ip, ok := d.forwarded(r.Header.Get("X-Real-IP")); ok {
		return ip
	}
	return host
}

func (d *Detector) forwarded(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if _, err := netip.ParseAddr(value); err != nil {
		d.invalidIPs.Add(1)
		return "", false
	}
	return value, true
}

func (d *Detector) trusted(ip netip.Addr) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.ContainsFunc(d.proxies, func(p netip.Prefix) bool { return p.Contains(ip) })
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIPs.Load(),
	}
}
