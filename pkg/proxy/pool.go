// Package proxy rotates outbound requests across a list of forward proxies,
// benching proxies that keep failing.
package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrUnknownProxy is returned when reporting on a proxy the pool never held.
var ErrUnknownProxy = errors.New("proxy: not in pool")

type entry struct {
	url          *url.URL
	strikes      int
	benchedUntil time.Time
}

// Config defines settings for the Proxy Pool.
type Config struct {
	// MaxFailures consecutive strikes bench a proxy. Zero means 3.
	MaxFailures int
	// Cooldown is how long a benched proxy sits out. Zero means 5m.
	Cooldown time.Duration
}

// Pool is a round-robin proxy rotation. It is safe for concurrent use.
type Pool struct {
	mu       sync.Mutex
	entries  []*entry
	cursor   int
	maxFails int
	cooldown time.Duration
	now      func() time.Time
}

// NewPool creates an empty pool.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		maxFails: cfg.MaxFailures,
		cooldown: cfg.Cooldown,
		now:      time.Now,
	}
}

// Add registers proxies. Entries without a scheme are treated as http.
func (p *Pool) Add(raw ...string) error {
	parsed := make([]*entry, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if !strings.Contains(r, "://") {
			r = "http://" + r
		}
		u, err := url.Parse(r)
		if err != nil {
			return fmt.Errorf("proxy: parse %q: %w", r, err)
		}
		parsed = append(parsed, &entry{url: u})
	}

	p.mu.Lock()
	p.entries = append(p.entries, parsed...)
	p.mu.Unlock()
	return nil
}

// LoadFile adds one proxy per line from path, skipping blanks and # comments.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("proxy: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("proxy: read %s: %w", path, err)
	}
	return p.Add(lines...)
}

// Len reports how many proxies the pool holds, benched or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Next returns the next proxy that is not benched, or nil when none is usable.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.entries {
		e := p.entries[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.entries)

		if !e.benchedUntil.IsZero() && now.After(e.benchedUntil) {
			e.benchedUntil = time.Time{}
			e.strikes = 0
		}
		if e.benchedUntil.IsZero() {
			return e.url
		}
	}
	return nil
}

// MarkSuccess clears one strike from u.
func (p *Pool) MarkSuccess(u *url.URL) error {
	return p.update(u, func(e *entry) {
		if e.strikes > 0 {
			e.strikes--
		}
	})
}

// MarkFailure adds a strike to u, benching it once MaxFailures is reached.
func (p *Pool) MarkFailure(u *url.URL) error {
	return p.update(u, func(e *entry) {
		e.strikes++
		if e.strikes >= p.maxFails {
			e.benchedUntil = p.now().Add(p.cooldown)
		}
	})
}

func (p *Pool) update(u *url.URL, fn func(*entry)) error {
	if u == nil {
		return ErrUnknownProxy
	}
	key := u.String()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.url.String() == key {
			fn(e)
			return nil
		}
	}
	return ErrUnknownProxy
}
