package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/server/metrics"
	"golang.org/x/time/rate"
)

const staleLimiterTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per client IP. The client is the peer
// address unless the peer is a trusted proxy, in which case forwarding
// headers are consulted.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
	trusted  []netip.Prefix
	now      func() time.Time
}

// NewRateLimiter allows rps requests per second with the given burst per
// client. A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// TrustProxies sets the proxies whose X-Forwarded-For and X-Real-IP headers
// are honoured. Entries are single IPs or CIDR ranges.
func (rl *RateLimiter) TrustProxies(entries ...string) error {
	trusted, err := ParseTrustedProxies(entries)
	if err != nil {
		return err
	}
	rl.trusted = trusted
	return nil
}

// ParseTrustedProxies parses IPs and CIDR ranges into prefixes.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

func (rl *RateLimiter) allow(client string) bool {
	if rl.rps <= 0 {
		return true
	}

	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.limiters[client]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[client] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// EvictStale drops limiters idle for longer than the TTL.
func (rl *RateLimiter) EvictStale() int {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	n := 0
	for k, e := range rl.limiters {
		if now.Sub(e.lastSeen) > staleLimiterTTL {
			delete(rl.limiters, k)
			n++
		}
	}
	return n
}

// Middleware rejects over-limit clients with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(rl.clientIP(r)) {
			metrics.RateLimited.Inc()
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) isTrusted(addr string) bool {
	a, err := netip.ParseAddr(strings.TrimSpace(addr))
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range rl.trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// clientIP returns the peer address. When the peer is a trusted proxy it
// returns the nearest X-Forwarded-For hop that is not itself trusted, or
// X-Real-IP when no such hop exists.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !rl.isTrusted(peer) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !rl.isTrusted(hop) {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}
