// Package collyfetch implements race.Fetcher using gocolly.
package collyfetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/regattahq/raceboard/internal/race"
)

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	PerHostQPS   float64
	PerHostBurst int
}

// Fetcher implements race.Fetcher using the Colly collector. It issues
// single GETs with browser-like headers; bare requests get rejected by
// the scraped site.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true

	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
		limiters:      make(map[string]*rate.Limiter),
	}
}

// Fetch executes a single HTTP GET using Colly. Non-2xx responses are
// returned as *race.FetchError; no retries happen at this layer.
func (f *Fetcher) Fetch(ctx context.Context, request race.FetchRequest) (race.FetchResponse, error) {
	if err := f.waitHost(ctx, request.URL); err != nil {
		return race.FetchResponse{}, &race.FetchError{URL: request.URL, Message: "rate limit wait canceled", Err: err}
	}

	var (
		result   race.FetchResponse
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(request, start, &result, &fetchErr)

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(request.URL)
	}()

	select {
	case <-ctx.Done():
		return race.FetchResponse{}, &race.FetchError{URL: request.URL, Message: "fetch canceled", Err: ctx.Err()}
	case err := <-done:
		if fetchErr != nil {
			return race.FetchResponse{}, fetchErr
		}
		if err != nil {
			return race.FetchResponse{}, &race.FetchError{URL: request.URL, Message: "visit failed", Err: err}
		}
		return result, nil
	}
}

func (f *Fetcher) buildCollector(
	request race.FetchRequest,
	start time.Time,
	result *race.FetchResponse,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := request.Timeout
	if timeout == 0 {
		timeout = f.cfg.Timeout
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(f.transport)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept",
			"text/html,application/xhtml+xml,application/xml;q=0.9,application/pdf,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		for key, values := range request.Headers {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		*result = race.FetchResponse{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			Headers:     r.Headers.Clone(),
			Body:        append([]byte(nil), r.Body...),
			ContentType: r.Headers.Get("Content-Type"),
			Duration:    time.Since(start),
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		*fetchErr = &race.FetchError{
			URL:        request.URL,
			StatusCode: status,
			Message:    err.Error(),
			Err:        err,
		}
	})

	return collector
}

// waitHost blocks until the per-host limiter admits another request.
func (f *Fetcher) waitHost(ctx context.Context, rawURL string) error {
	if f.cfg.PerHostQPS <= 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil // let the collector surface the bad URL
	}
	f.mu.Lock()
	limiter, ok := f.limiters[u.Host]
	if !ok {
		burst := f.cfg.PerHostBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(f.cfg.PerHostQPS), burst)
		f.limiters[u.Host] = limiter
	}
	f.mu.Unlock()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("limiter wait: %w", err)
	}
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
