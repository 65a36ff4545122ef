// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package workers dispatches CPU bound transaction work, such as size
// estimation and signing, either inline or onto a bounded set of goroutines.
package workers

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Task is a unit of work submitted to a Pool.
type Task func(ctx context.Context) error

// Pool runs tasks on behalf of a caller that waits for the result.
type Pool interface {
	// Do runs task and blocks until it returns or ctx is done. A task is
	// never interrupted once started: when ctx is done first, Do returns
	// ctx.Err() and the task's eventual result is discarded.
	Do(ctx context.Context, task Task) error
}

// Inline runs tasks on the calling goroutine. It is the default pool.
type Inline struct{}

// A compile-time assertion to ensure Inline implements Pool.
var _ Pool = Inline{}

// Do runs task unless ctx is already done.
func (Inline) Do(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return task(ctx)
}

// Group runs tasks on their own goroutines with at most a fixed number in
// flight at once.
type Group struct {
	sem *semaphore.Weighted
}

// A compile-time assertion to ensure Group implements Pool.
var _ Pool = (*Group)(nil)

// NewGroup creates a pool running at most size tasks at once. A size below
// one is treated as one.
func NewGroup(size int) *Group {
	if size < 1 {
		size = 1
	}

	return &Group{sem: semaphore.NewWeighted(int64(size))}
}

// Do waits for a free slot, starts task on a new goroutine and waits for it
// to finish or for ctx to be done.
func (g *Group) Do(ctx context.Context, task Task) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer g.sem.Release(1)

		// The task keeps running after an abandoning caller returns,
		// so it must not observe the caller's cancellation.
		done <- task(context.WithoutCancel(ctx))
	}()

	select {
	case err := <-done:
		return err

	case <-ctx.Done():
		log.Debugf("Abandoning in-flight task: %v", ctx.Err())
		return ctx.Err()
	}
}

// outcome carries a task's value and error back to Run.
type outcome[T any] struct {
	val T
	err error
}

// Run submits task to pool and returns its value. If ctx is done first the
// zero value and ctx.Err() are returned and the late value is dropped.
func Run[T any](ctx context.Context, pool Pool,
	task func(context.Context) (T, error)) (T, error) {

	results := make(chan outcome[T], 1)
	err := pool.Do(ctx, func(ctx context.Context) error {
		val, err := task(ctx)
		results <- outcome[T]{val: val, err: err}

		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	res := <-results

	return res.val, res.err
}

// ForEach calls fn for every item with at most limit calls in flight. It
// stops starting new calls after the first error and returns that error.
// Items must not share mutable state.
func ForEach[T any](ctx context.Context, limit int, items []T,
	fn func(context.Context, T) error) error {

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, item := range items {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			return fn(gctx, item)
		})
	}

	return g.Wait()
}
