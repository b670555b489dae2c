package notify

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Prober polls a URL and reports connectivity edges. Any HTTP response
// counts as online; a transport error counts as offline.
type Prober struct {
	URL      string
	Interval time.Duration
	Client   *http.Client
}

// Watch starts probing and returns a channel that receives a value only
// when connectivity differs from the last known state, starting from
// initial. The channel is closed when ctx ends.
func (p *Prober) Watch(ctx context.Context, initial bool) <-chan bool {
	out := make(chan bool)
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: p.Interval}
	}

	go func() {
		defer close(out)

		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()

		last := initial
		for {
			online := p.probe(ctx, client)
			if ctx.Err() != nil {
				return
			}
			if online != last {
				slog.Debug("connectivity changed", "source", "prober", "online", online, "url", p.URL)
				select {
				case out <- online:
					last = online
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out
}

func (p *Prober) probe(ctx context.Context, client *http.Client) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
