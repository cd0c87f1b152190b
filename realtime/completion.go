// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"errors"
	"sync/atomic"
)

// Completion is a single-use result sink for one inbound request. The
// first call to Succeed or Fail delivers the result; every later call
// is refused and returns false.
type Completion[T any] struct {
	completed atomic.Bool
	sink      func(value T, err error)
}

// Result is the value delivered through a channel-backed Completion.
type Result[T any] struct {
	Value T
	Err   error
}

// NewCompletion returns a Completion that delivers its result to sink.
// sink runs on the goroutine that completes the request.
func NewCompletion[T any](sink func(value T, err error)) *Completion[T] {
	return &Completion[T]{sink: sink}
}

// NewChannelCompletion returns a Completion and the channel its result
// is sent on. The channel is buffered so completing never blocks.
func NewChannelCompletion[T any]() (*Completion[T], <-chan Result[T]) {
	results := make(chan Result[T], 1)
	completion := NewCompletion(func(value T, err error) {
		results <- Result[T]{Value: value, Err: err}
	})
	return completion, results
}

// Succeed completes the request with value.
func (c *Completion[T]) Succeed(value T) bool {
	return c.complete(value, nil)
}

// Fail completes the request with err. A nil err is replaced so the
// receiver never sees a failure without a cause.
func (c *Completion[T]) Fail(err error) bool {
	if err == nil {
		err = errors.New("realtime: request failed without an error")
	}
	var zero T
	return c.complete(zero, err)
}

// Completed reports whether a result has been delivered.
func (c *Completion[T]) Completed() bool {
	return c.completed.Load()
}

func (c *Completion[T]) complete(value T, err error) bool {
	if !c.completed.CompareAndSwap(false, true) {
		return false
	}
	c.sink(value, err)
	return true
}
