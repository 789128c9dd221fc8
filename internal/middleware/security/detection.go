package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// maxURLLength is the longest request URL served; the API only takes a
// handful of short selectors.
const maxURLLength = 1024

var (
	scanPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		".php", ".git", ".ssh", "etc/passwd", "cmd.exe",
		"<script", "javascript:", "union select", "eval(",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
	}
	blockedMethods = map[string]bool{
		"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true,
	}
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
	BlockedRequests    int64
}

// Detector resolves client addresses behind trusted proxies and flags
// requests that look like scans rather than dashboard traffic.
type Detector struct {
	mu             sync.RWMutex
	trustedProxies []*net.IPNet

	suspicious atomic.Int64
	blocked    atomic.Int64
}

// NewDetector creates a detector trusting loopback and private networks.
func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("::1/128"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.mu.Lock()
	d.trustedProxies = append(d.trustedProxies, network)
	d.mu.Unlock()
	return nil
}

// ExtractClientIP returns the caller's address. Forwarding headers are only
// honoured when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil || !d.isTrustedProxy(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// IsSuspicious reports whether r matches a known scan pattern.
func (d *Detector) IsSuspicious(r *http.Request) bool {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, p := range scanPatterns {
		if strings.Contains(path, p) || strings.Contains(query, p) {
			return true
		}
	}

	agent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return true
		}
	}

	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return true
	}
	return blockedMethods[r.Method] || len(r.URL.String()) > maxURLLength
}

// Middleware counts and logs suspicious requests. Blocked methods and
// oversized URLs are refused; other suspicious requests pass through and
// fall into the router's 404.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !d.IsSuspicious(r) {
			next.ServeHTTP(w, r)
			return
		}
		d.suspicious.Add(1)
		slog.WarnContext(r.Context(), "Suspicious request",
			"component", "security",
			"method", r.Method,
			"path", r.URL.Path,
			"client_ip", d.ExtractClientIP(r),
			"user_agent", r.Header.Get("User-Agent"))

		switch {
		case blockedMethods[r.Method]:
			d.blocked.Add(1)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		case len(r.URL.String()) > maxURLLength:
			d.blocked.Add(1)
			http.Error(w, http.StatusText(http.StatusRequestURITooLong), http.StatusRequestURITooLong)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		BlockedRequests:    d.blocked.Load(),
	}
}
