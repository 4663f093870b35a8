// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package contentstore

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
)

// # Atomic Commit

// CommitResult describes the revision a successful commit produced.
type CommitResult struct {
	Revision string
	Tree     string
	Parent   string
	Attempts int
}

// RebaseFunc computes extra tree items against the revision an attempt is
// based on. It runs once per attempt.
type RebaseFunc func(context context.Context, baseRevision string) ([]TreeItem, error)

type commitOptions struct {
	attempts int
	rebase   RebaseFunc
}

// CommitOption customizes a single [Client.AtomicCommit] call.
type CommitOption func(*commitOptions)

// WithRebase registers a hook whose items are appended to every attempt.
func WithRebase(fn RebaseFunc) CommitOption {
	return func(options *commitOptions) { options.rebase = fn }
}

// WithAttempts overrides the attempt budget.
func WithAttempts(attempts int) CommitOption {
	return func(options *commitOptions) {
		if attempts > 0 {
			options.attempts = attempts
		}
	}
}

/*
AtomicCommit applies items to the branch as one new revision.

Description: Each attempt reads the latest revision and its tree, layers the
items on top, creates a revision whose sole parent is the latest one and
fast-forwards the branch. Any failing step aborts the attempt and the next one
starts again from the latest revision, so a concurrent writer is rebased over.
The branch either moves to a revision containing every item or stays put.

Parameters:
  - context: context.Context
  - message: string (Revision message)
  - items: []TreeItem (Files to add or replace)
  - opts: ...CommitOption

Returns:
  - *CommitResult: The new revision
  - error: UNAUTHORIZED immediately, otherwise RETRIES_EXHAUSTED wrapping the last failure
*/
func (client *Client) AtomicCommit(context context.Context, message string, items []TreeItem, opts ...CommitOption) (*CommitResult, error) {
	options := commitOptions{attempts: constants.CommitAttempts}
	for _, opt := range opts {
		opt(&options)
	}

	var lastErr error
	for attempt := 1; attempt <= options.attempts; attempt++ {
		result, err := client.commitOnce(context, message, items, options.rebase)
		if err == nil {
			result.Attempts = attempt
			client.logger.InfoContext(context, "commit_succeeded",
				slog.String("revision", result.Revision),
				slog.Int("attempt", attempt),
				slog.Int("items", len(items)),
			)
			return result, nil
		}

		lastErr = err
		client.logger.WarnContext(context, "commit_attempt_failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if apperr.HasCode(err, apperr.CodeUnauthorized) {
			return nil, err
		}

		if attempt == options.attempts {
			break
		}

		if err := sleep(context, client.backoff(attempt)); err != nil {
			return nil, apperr.Transport("Commit cancelled", err)
		}
	}

	return nil, apperr.RetriesExhausted(options.attempts, lastErr)
}

func (client *Client) commitOnce(context context.Context, message string, items []TreeItem, rebase RebaseFunc) (*CommitResult, error) {
	parent, err := client.GetLatestRevision(context)
	if err != nil {
		return nil, err
	}

	baseTree, err := client.GetTreeID(context, parent)
	if err != nil {
		return nil, err
	}

	layered := items
	if rebase != nil {
		extra, err := rebase(context, parent)
		if err != nil {
			return nil, fmt.Errorf("contentstore: rebase on %s: %w", parent, err)
		}
		layered = make([]TreeItem, 0, len(items)+len(extra))
		layered = append(layered, items...)
		layered = append(layered, extra...)
	}

	tree, err := client.CreateTree(context, baseTree, layered)
	if err != nil {
		return nil, err
	}

	revision, err := client.CreateRevision(context, message, tree, parent)
	if err != nil {
		return nil, err
	}

	if err := client.UpdateRef(context, revision); err != nil {
		return nil, err
	}

	return &CommitResult{Revision: revision, Tree: tree, Parent: parent}, nil
}

// exponentialBackoff returns 100ms * 2^attempt plus up to 500ms of jitter.
func exponentialBackoff(attempt int) time.Duration {
	base := constants.CommitBackoffBase * time.Duration(1<<attempt)
	return base + rand.N(constants.CommitJitterMax)
}

// sleep waits for d or until the context ends.
func sleep(context context.Context, d time.Duration) error {
	if d <= 0 {
		return context.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-context.Done():
		return context.Err()
	case <-timer.C:
		return nil
	}
}
