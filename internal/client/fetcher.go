package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"catalog/harvester/internal/metrics"
	"catalog/harvester/internal/proxy"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// ErrFetchFailed is returned once every attempt for a URL has failed
var ErrFetchFailed = errors.New("fetch failed")

// Fetcher performs GET requests that must answer with JSON
type Fetcher interface {
	FetchJSON(ctx context.Context, endpoint string) (json.RawMessage, error)
}

// FetcherOptions configures retries and pacing
type FetcherOptions struct {
	Retries              int
	Timeout              time.Duration
	RetryDelay           time.Duration
	MaxRequestsPerSecond int
}

type fetcher struct {
	opts          FetcherOptions
	httpClient    *resty.Client
	rl            ratelimit.Limiter
	proxySupplier proxy.Supplier
	proxyMutex    sync.Mutex
	proxyURL      atomic.Pointer[url.URL]
}

// NewFetcher builds a Fetcher. proxySupplier may be nil.
func NewFetcher(opts FetcherOptions, proxySupplier proxy.Supplier) Fetcher {
	if opts.Retries <= 0 {
		opts.Retries = 1
	}

	f := &fetcher{
		opts:          opts,
		rl:            ratelimit.NewUnlimited(),
		proxySupplier: proxySupplier,
	}
	if opts.MaxRequestsPerSecond > 0 {
		f.rl = ratelimit.New(opts.MaxRequestsPerSecond)
	}

	// The transport reads the active proxy on every request, so rotation
	// never mutates the shared client.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(*http.Request) (*url.URL, error) {
		return f.proxyURL.Load(), nil
	}

	f.httpClient = resty.NewWithClient(&http.Client{Transport: transport}).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36").
		SetHeader("Accept", "application/json")

	if proxySupplier != nil {
		if next := proxySupplier.Get(); next != "" && f.useProxy(next) {
			log.Infof("🔗 Using initial proxy: %s", next)
		}
	}

	return f
}

// FetchJSON tries the URL up to Retries times. Attempt errors are logged and
// absorbed; the caller only ever sees ErrFetchFailed.
func (f *fetcher) FetchJSON(ctx context.Context, endpoint string) (json.RawMessage, error) {
	var lastErr error
	for attempt := 1; attempt <= f.opts.Retries; attempt++ {
		body, err := f.attempt(ctx, endpoint)
		metrics.ObserveFetchAttempt(err == nil)
		if err == nil {
			return body, nil
		}
		lastErr = err

		log.WithFields(log.Fields{
			"url":     endpoint,
			"attempt": attempt,
			"retries": f.opts.Retries,
		}).Warnf("⚠️ Error fetching %s (attempt %d/%d): %v", endpoint, attempt, f.opts.Retries, err)

		if ctx.Err() != nil {
			break
		}
		if attempt < f.opts.Retries {
			f.rotateProxy()
			if err := sleep(ctx, f.opts.RetryDelay); err != nil {
				break
			}
		}
	}

	metrics.ObserveFetchExhausted()
	return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, endpoint, lastErr)
}

func (f *fetcher) attempt(ctx context.Context, endpoint string) (json.RawMessage, error) {
	f.rl.Take()

	reqCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	resp, err := f.httpClient.R().
		SetContext(reqCtx).
		Get(endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, fmt.Errorf("HTTP error: %d %s", code, resp.Status())
	}

	body := bytes.TrimSpace([]byte(resp.String()))
	if len(body) == 0 || !json.Valid(body) {
		return nil, fmt.Errorf("response body is not valid JSON (%d bytes)", len(body))
	}

	return json.RawMessage(body), nil
}

func (f *fetcher) rotateProxy() {
	if f.proxySupplier == nil || f.proxySupplier.Len() < 2 {
		return
	}

	f.proxyMutex.Lock()
	defer f.proxyMutex.Unlock()

	if next := f.proxySupplier.Get(); next != "" && f.useProxy(next) {
		log.Infof("🔄 Switching to proxy: %s", next)
	}
}

func (f *fetcher) useProxy(raw string) bool {
	proxyURL, err := url.Parse(raw)
	if err != nil || proxyURL.Host == "" {
		log.Warnf("⚠️ Ignoring invalid proxy URL %q", raw)
		return false
	}
	f.proxyURL.Store(proxyURL)
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DecodeJSON decodes raw into out, keeping numbers as json.Number
func DecodeJSON(raw json.RawMessage, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}
