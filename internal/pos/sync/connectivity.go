package sync

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Prober is a Connectivity implementation that polls the backend health
// endpoint. It reports Online from the last probe and emits on the
// Restored channel on each offline-to-online transition.
type Prober struct {
	url      string
	client   *http.Client
	interval time.Duration

	mu       sync.Mutex
	online   bool
	restored chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewProber creates a connectivity prober for the given health URL
func NewProber(healthURL string, interval time.Duration) *Prober {
	return &Prober{
		url:      healthURL,
		client:   &http.Client{Timeout: 3 * time.Second},
		interval: interval,
		restored: make(chan struct{}, 1),
	}
}

// Start begins probing. The first probe runs synchronously so Online is
// meaningful immediately after Start returns.
func (p *Prober) Start(ctx context.Context) {
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)

	p.probe(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.probe(ctx)
			}
		}
	}()
}

// Stop halts probing
func (p *Prober) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.wg.Wait()
}

func (p *Prober) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.setOnline(false)
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.setOnline(false)
		return
	}
	resp.Body.Close()
	p.setOnline(resp.StatusCode < 500)
}

func (p *Prober) setOnline(online bool) {
	p.mu.Lock()
	wasOnline := p.online
	p.online = online
	p.mu.Unlock()

	if online && !wasOnline {
		select {
		case p.restored <- struct{}{}:
		default:
		}
	}
}

// Online reports the result of the most recent probe
func (p *Prober) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// Restored delivers a value on each offline-to-online transition
func (p *Prober) Restored() <-chan struct{} {
	return p.restored
}
