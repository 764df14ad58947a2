// Package ratelimit throttles API clients with one token bucket per client
// address.
package ratelimit

import (
	"context"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/zsiec/smpte/internal/config"
	apperrors "github.com/zsiec/smpte/internal/errors"
	"github.com/zsiec/smpte/internal/metrics"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter holds a token bucket per client key.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client

	limit   rate.Limit
	burst   int
	idle    time.Duration
	proxies []netip.Prefix

	logger       *logrus.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

// New creates a limiter from cfg.
func New(cfg *config.RateLimitConfig, log *logrus.Logger) *Limiter {
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = 5 * time.Minute
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	proxies, err := cfg.Proxies()
	if err != nil {
		log.WithError(err).Warn("Ignoring trusted proxies, keying rate limits on the TCP peer")
		proxies = nil
	}
	return &Limiter{
		clients:      make(map[string]*client),
		proxies:      proxies,
		limit:        rate.Limit(cfg.RequestsPerSecond),
		burst:        burst,
		idle:         idle,
		logger:       log,
		errorHandler: apperrors.NewErrorHandler(log),
		now:          time.Now,
	}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
		metrics.SetRateLimitClients(len(l.clients))
	}
	c.lastSeen = l.now()
	return c.limiter
}

// Allow reports whether key may make a request now.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).AllowN(l.now(), 1)
}

// retryAfter returns how long key has to wait for its next token without
// consuming it.
func (l *Limiter) retryAfter(key string) time.Duration {
	lim := l.get(key)
	now := l.now()
	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return time.Duration(math.MaxInt64)
	}
	delay := res.DelayFrom(now)
	res.CancelAt(now)
	return delay
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Cleanup forgets clients idle for longer than the idle timeout and returns
// how many were removed.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idle)
	removed := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	metrics.SetRateLimitClients(len(l.clients))
	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := l.Cleanup(); n > 0 {
				l.logger.WithField("removed", n).Debug("Dropped idle rate limit clients")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (l *Limiter) trusted(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range l.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientKey returns the address r is limited under: the TCP peer, unless the
// peer is a trusted proxy. Then the nearest untrusted X-Forwarded-For hop
// is used, or X-Real-IP when every hop is trusted.
func (l *Limiter) ClientKey(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !l.trusted(peer) {
		return peer
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop != "" && !l.trusted(hop) {
			return hop
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return peer
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.ClientKey(r)
		if l.Allow(key) {
			next.ServeHTTP(w, r)
			return
		}

		metrics.IncrementRateLimited()

		wait := l.retryAfter(key)
		secs := int(math.Ceil(wait.Seconds()))
		if secs < 1 || wait == time.Duration(math.MaxInt64) {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))

		l.errorHandler.HandleError(w, r, apperrors.NewRateLimitError("Too many requests").
			WithDetails(map[string]interface{}{"retry_after_seconds": secs}))
	})
}
