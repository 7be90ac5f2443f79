// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httptransport

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/time/rate"

	"github.com/walteh/tgfeed/pkg/transport"
)

const (
	// DefaultUserAgent identifies the client to the gateway, which rejects
	// anonymous requests without one.
	DefaultUserAgent = "tgfeed (+https://github.com/walteh/tgfeed)"

	// DefaultMaxBodySize caps any single response body.
	DefaultMaxBodySize int64 = 8 << 20

	// DefaultRequestsPerSecond keeps the client polite towards the gateway.
	DefaultRequestsPerSecond = 2.0
)

// 🔧 Options configures the HTTP transport
type Options struct {
	// BaseURL is the directory files are served from, e.g.
	// https://tgftp.nws.noaa.gov/SL.us008001/CU.EMWIN/DF.xt/DC.gsatR/OPS/
	BaseURL string
	// ListingPath is resolved against BaseURL; empty means BaseURL itself.
	ListingPath string
	// UserAgent defaults to DefaultUserAgent.
	UserAgent string
	// MaxBodySize defaults to DefaultMaxBodySize.
	MaxBodySize int64
	// RequestsPerSecond throttles all requests; zero uses the default and a
	// negative value disables throttling.
	RequestsPerSecond float64
	// Limiter replaces the one built from RequestsPerSecond, so transports
	// for several listings on one host can share a budget.
	Limiter *rate.Limiter
	// Client defaults to a new http.Client without a global timeout; the
	// retry controller bounds each attempt instead.
	Client *http.Client
}

// 🌐 Transport fetches listings and files over HTTP(S).
type Transport struct {
	client    *http.Client
	base      *url.URL
	listing   *url.URL
	userAgent string
	maxBody   int64
	limiter   *rate.Limiter

	// conditional request state for the listing
	mu           sync.Mutex
	etag         string
	lastModified string
}

// 🏭 New creates an HTTP transport
func New(opts Options) (*Transport, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base url is required")
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, errors.Errorf("parsing base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("unsupported url scheme %q", base.Scheme)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	listing := base
	if opts.ListingPath != "" {
		listing, err = base.Parse(opts.ListingPath)
		if err != nil {
			return nil, errors.Errorf("parsing listing path: %w", err)
		}
	}

	t := &Transport{
		client:    opts.Client,
		base:      base,
		listing:   listing,
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodySize,
	}
	if t.client == nil {
		t.client = &http.Client{}
	}
	if t.userAgent == "" {
		t.userAgent = DefaultUserAgent
	}
	if t.maxBody <= 0 {
		t.maxBody = DefaultMaxBodySize
	}

	t.limiter = opts.Limiter
	if t.limiter == nil {
		t.limiter = NewLimiter(opts.RequestsPerSecond)
	}

	return t, nil
}

// NewLimiter builds the request throttle for rps: zero uses
// DefaultRequestsPerSecond and a negative value returns nil (no throttle).
func NewLimiter(rps float64) *rate.Limiter {
	if rps == 0 {
		rps = DefaultRequestsPerSecond
	}
	if rps < 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// ListingURL returns the resolved listing location.
func (t *Transport) ListingURL() string { return t.listing.String() }

// 📂 FetchListing performs a conditional GET of the listing.
func (t *Transport) FetchListing(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	etag, lastModified := t.etag, t.lastModified
	t.mu.Unlock()

	header := http.Header{}
	if etag != "" {
		header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		header.Set("If-Modified-Since", lastModified)
	}

	resp, err := t.do(ctx, transport.OpListing, "", t.listing.String(), header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && (etag != "" || lastModified != "") {
		zerolog.Ctx(ctx).Debug().Str("url", t.listing.String()).Msg("304 not modified")
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, t.maxBody))
		return nil, transport.ErrNotModified
	}

	if resp.StatusCode != http.StatusOK {
		return nil, transport.NewStatusError(transport.OpListing, "", resp.StatusCode)
	}

	body, err := t.readBody(resp, transport.OpListing, "")
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.etag = resp.Header.Get("ETag")
	t.lastModified = resp.Header.Get("Last-Modified")
	t.mu.Unlock()

	zerolog.Ctx(ctx).Debug().
		Str("url", t.listing.String()).
		Int("bytes", len(body)).
		Msg("fetched listing")

	return body, nil
}

// Forget drops the listing validators; the next listing fetch is a plain GET.
func (t *Transport) Forget() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.etag, t.lastModified = "", ""
}

// 📄 FetchFile downloads one file relative to the base URL.
func (t *Transport) FetchFile(ctx context.Context, name string) ([]byte, error) {
	ref := t.base.JoinPath(name)

	resp, err := t.do(ctx, transport.OpFile, name, ref.String(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, transport.NewStatusError(transport.OpFile, name, resp.StatusCode)
	}

	return t.readBody(resp, transport.OpFile, name)
}

func (t *Transport) do(ctx context.Context, op transport.Op, name, target string, header http.Header) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return nil, transport.NewError(op, name, cerr)
			}
			// the wait would outlast the attempt deadline
			return nil, &transport.Error{Op: op, Name: name, Kind: transport.KindTransient, Err: errors.Errorf("waiting for rate limiter: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &transport.Error{Op: op, Name: name, Kind: transport.KindPermanent, Err: errors.Errorf("creating request: %w", err)}
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", t.userAgent)

	zerolog.Ctx(ctx).Trace().Str("url", target).Msg("GET")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, transport.NewError(op, name, errors.Errorf("making request: %w", err))
	}
	return resp, nil
}

func (t *Transport) readBody(resp *http.Response, op transport.Op, name string) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody+1))
	if err != nil {
		return nil, transport.NewError(op, name, errors.Errorf("reading response: %w", err))
	}
	if int64(len(body)) > t.maxBody {
		return nil, &transport.Error{
			Op:   op,
			Name: name,
			Kind: transport.KindPermanent,
			Err:  errors.Errorf("response exceeds %d bytes", t.maxBody),
		}
	}
	return body, nil
}

var (
	_ transport.Transport   = (*Transport)(nil)
	_ transport.Conditional = (*Transport)(nil)
)
