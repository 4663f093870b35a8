// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/taibuivan/mangashelf/internal/platform/constants"
)

// # Probing

// Prober reports whether a page image exists at a URL. A failed probe is an
// answer, not an error.
type Prober interface {
	Exists(context context.Context, url string) bool
}

// Forgetter drops remembered answers for every URL under a prefix.
type Forgetter interface {
	Forget(prefix string)
}

type probeAnswer struct {
	exists  bool
	expires time.Time
}

// HTTPProber probes with HEAD requests and remembers definite answers for a
// while. Absent answers expire quickly because pages appear on deploy.
type HTTPProber struct {
	client     *http.Client
	memo       *xsync.Map[string, probeAnswer]
	logger     *slog.Logger
	presentTTL time.Duration
	absentTTL  time.Duration
	capacity   int
	now        func() time.Time
}

// ProberOption customizes an [HTTPProber].
type ProberOption func(*HTTPProber)

// WithProbeTTL sets how long present and absent answers are remembered. A
// non-positive duration disables remembering that answer.
func WithProbeTTL(present, absent time.Duration) ProberOption {
	return func(prober *HTTPProber) {
		prober.presentTTL = present
		prober.absentTTL = absent
	}
}

// WithProbeCapacity bounds the number of remembered answers.
func WithProbeCapacity(capacity int) ProberOption {
	return func(prober *HTTPProber) { prober.capacity = capacity }
}

// WithClock replaces the time source used for expiry.
func WithClock(now func() time.Time) ProberOption {
	return func(prober *HTTPProber) { prober.now = now }
}

// NewHTTPProber builds a prober. client and logger may be nil.
func NewHTTPProber(client *http.Client, logger *slog.Logger, opts ...ProberOption) *HTTPProber {
	if client == nil {
		client = &http.Client{Timeout: constants.ProbeTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	prober := &HTTPProber{
		client:     client,
		memo:       xsync.NewMap[string, probeAnswer](),
		logger:     logger,
		presentTTL: constants.ProbePresentTTL,
		absentTTL:  constants.ProbeAbsentTTL,
		capacity:   constants.ProbeMemoCapacity,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(prober)
	}
	return prober
}

/*
Exists probes url.

Description: Sends HEAD, and a single-byte ranged GET when the mirror rejects
HEAD with 405. 2xx answers are remembered as present and 404/410 as absent,
each until its TTL runs out. Network failures and other statuses are reported
as absent but not remembered.
*/
func (prober *HTTPProber) Exists(context context.Context, url string) bool {
	now := prober.now()
	if answer, ok := prober.memo.Load(url); ok {
		if now.Before(answer.expires) {
			return answer.exists
		}
		prober.memo.Delete(url)
	}

	status, err := prober.status(context, http.MethodHead, url)
	if err == nil && status == http.StatusMethodNotAllowed {
		status, err = prober.status(context, http.MethodGet, url)
	}

	if err != nil {
		prober.logger.DebugContext(context, "probe_failed", slog.String("url", url), slog.String("error", err.Error()))
		return false
	}

	switch {
	case status >= 200 && status < 300:
		prober.remember(url, true, now)
		return true
	case status == http.StatusNotFound || status == http.StatusGone:
		prober.remember(url, false, now)
	}
	return false
}

// Forget drops every remembered answer under prefix.
func (prober *HTTPProber) Forget(prefix string) {
	prober.memo.Range(func(url string, _ probeAnswer) bool {
		if strings.HasPrefix(url, prefix) {
			prober.memo.Delete(url)
		}
		return true
	})
}

// Size returns the number of remembered answers, expired ones included.
func (prober *HTTPProber) Size() int { return prober.memo.Size() }

func (prober *HTTPProber) remember(url string, exists bool, now time.Time) {
	ttl := prober.absentTTL
	if exists {
		ttl = prober.presentTTL
	}
	if ttl <= 0 {
		return
	}

	if prober.capacity > 0 && prober.memo.Size() >= prober.capacity {
		prober.evict(now)
	}
	prober.memo.Store(url, probeAnswer{exists: exists, expires: now.Add(ttl)})
}

// evict drops expired answers, and everything when that frees nothing.
func (prober *HTTPProber) evict(now time.Time) {
	prober.memo.Range(func(url string, answer probeAnswer) bool {
		if !now.Before(answer.expires) {
			prober.memo.Delete(url)
		}
		return true
	})

	if prober.memo.Size() >= prober.capacity {
		prober.logger.Debug("probe_memo_cleared", slog.Int("capacity", prober.capacity))
		prober.memo.Clear()
	}
}

func (prober *HTTPProber) status(context context.Context, method, url string) (int, error) {
	request, err := http.NewRequestWithContext(context, method, url, nil)
	if err != nil {
		return 0, err
	}
	if method == http.MethodGet {
		request.Header.Set("Range", "bytes=0-0")
	}

	response, err := prober.client.Do(request)
	if err != nil {
		return 0, err
	}
	response.Body.Close()
	return response.StatusCode, nil
}
