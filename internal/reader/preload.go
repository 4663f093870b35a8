// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader

import (
	stdctx "context"
	"log/slog"
	"time"

	"github.com/taibuivan/mangashelf/internal/library"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/pkg/result"
)

// # Preload

/*
Preload runs the probes of a chapter in the background to warm the probe
memo and the mirrors' caches.

Description: The work is detached from the caller's cancellation and bounded
by PreloadTimeout. Results are discarded and failures, including panics from
the prober, are only logged at debug level.

Returns:
  - <-chan struct{}: Closed when the preload finished
*/
func (resolver *Resolver) Preload(context stdctx.Context, series library.Series, label string) <-chan struct{} {
	done := make(chan struct{})
	detached := stdctx.WithoutCancel(context)

	go func() {
		defer close(done)

		bounded, cancel := stdctx.WithTimeout(detached, constants.PreloadTimeout)
		defer cancel()

		outcome := result.Try(func() (*Chapter, error) { return resolver.Resolve(bounded, series, label) })
		chapter, err := outcome.Get()
		if err != nil {
			resolver.logger.DebugContext(bounded, "preload_failed",
				slog.String("series", series.ID),
				slog.String("chapter", label),
				slog.String("error", err.Error()),
			)
			return
		}

		resolver.logger.DebugContext(bounded, "preload_finished",
			slog.String("series", series.ID),
			slog.String("chapter", label),
			slog.Int("pages", len(chapter.Pages)),
		)
	}()

	return done
}

// PreloadNext schedules a preload of the chapter after label once delay
// has passed. It returns nil when label is the last chapter.
func (resolver *Resolver) PreloadNext(context stdctx.Context, series library.Series, label string, delay time.Duration) *time.Timer {
	_, next := series.Neighbors(label)
	if next == "" {
		return nil
	}

	detached := stdctx.WithoutCancel(context)
	return time.AfterFunc(delay, func() {
		<-resolver.Preload(detached, series, next)
	})
}
