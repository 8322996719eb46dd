// internal/webhook/source.go
package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"
)

// rangeCache holds the parsed hook source ranges for ttl.
type rangeCache struct {
	fetch func(ctx context.Context) ([]string, error)
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	prefixes []netip.Prefix
	fetched  time.Time
}

func newRangeCache(fetch func(ctx context.Context) ([]string, error), ttl time.Duration) *rangeCache {
	return &rangeCache{fetch: fetch, ttl: ttl, now: time.Now}
}

func (c *rangeCache) get(ctx context.Context) ([]netip.Prefix, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.prefixes != nil && c.now().Sub(c.fetched) < c.ttl {
		return c.prefixes, nil
	}

	cidrs, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, s := range cidrs {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			continue
		}
		prefixes = append(prefixes, p.Masked())
	}
	if len(prefixes) == 0 {
		return nil, errors.New("no valid hook ranges published")
	}
	c.prefixes = prefixes
	c.fetched = c.now()
	return prefixes, nil
}

// clientAddr returns the first X-Forwarded-For address, falling back to the
// peer address.
func clientAddr(r *http.Request) (netip.Addr, error) {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		addr, err := netip.ParseAddr(strings.TrimSpace(first))
		return addr.Unmap(), err
	}
	if ap, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return ap.Addr().Unmap(), nil
	}
	addr, err := netip.ParseAddr(r.RemoteAddr)
	return addr.Unmap(), err
}
