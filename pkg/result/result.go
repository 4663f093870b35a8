// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package result provides a generic success-or-failure value.

Go code returns (T, error) at call boundaries; Result is used where outcomes
are collected as values instead, such as per-item results of a batch delete,
the manifest source attempts, or a detached preload.

Usage:

	file, err := store.ReadFile(ctx, path, "")
	r := result.Of(file, err)
	n := result.Map(r, func(f *File) int { return len(f.Content) }).UnwrapOr(0)
*/
package result

import "fmt"

// Result holds either a value or the error that prevented producing it.
type Result[T any] struct {
	value T
	err   error
}

// # Constructors

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Fail wraps an error. A nil error is replaced so the Result never looks successful.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = fmt.Errorf("result: failure without cause")
	}
	return Result[T]{err: err}
}

// Of converts a conventional (value, error) pair.
func Of[T any](value T, err error) Result[T] {
	if err != nil {
		return Result[T]{err: err}
	}
	return Result[T]{value: value}
}

// Try runs fn and converts a returned error or a panic into a failure.
func Try[T any](fn func() (T, error)) (out Result[T]) {
	defer func() {
		if recovered := recover(); recovered != nil {
			out = Fail[T](fmt.Errorf("result: recovered panic: %v", recovered))
		}
	}()

	value, err := fn()
	return Of(value, err)
}

// # Accessors

// IsOk reports whether the Result holds a value.
func (r Result[T]) IsOk() bool { return r.err == nil }

// Err returns the failure, or nil.
func (r Result[T]) Err() error { return r.err }

// Get returns the conventional (value, error) pair.
func (r Result[T]) Get() (T, error) { return r.value, r.err }

// UnwrapOr returns the value, or fallback on failure.
func (r Result[T]) UnwrapOr(fallback T) T {
	if r.err != nil {
		return fallback
	}
	return r.value
}

// # Combinators

// Map transforms the value of a successful Result.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return Ok(fn(r.value))
}

// AndThen chains a fallible step onto a successful Result.
func AndThen[T, U any](r Result[T], fn func(T) (U, error)) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}

	value, err := fn(r.value)
	return Of(value, err)
}

// Match folds the Result into a single value.
func Match[T, R any](r Result[T], onOk func(T) R, onErr func(error) R) R {
	if r.err != nil {
		return onErr(r.err)
	}
	return onOk(r.value)
}

// Partition splits results into successful values and failures, keeping order.
func Partition[T any](results []Result[T]) ([]T, []error) {
	values := make([]T, 0, len(results))
	var failures []error

	for _, r := range results {
		if r.err != nil {
			failures = append(failures, r.err)
			continue
		}
		values = append(values, r.value)
	}

	return values, failures
}
