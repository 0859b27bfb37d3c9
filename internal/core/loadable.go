package core

import (
	"context"
	"errors"
)

// LoadState tags the variant held by a Loadable.
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Loadable is the state of a piece of fetched data: idle, loading,
// loaded(value) or failed(err). The zero value is idle.
type Loadable[T any] struct {
	state LoadState
	value T
	err   error
}

func Idle[T any]() Loadable[T] {
	return Loadable[T]{state: StateIdle}
}

func Loading[T any]() Loadable[T] {
	return Loadable[T]{state: StateLoading}
}

func Loaded[T any](v T) Loadable[T] {
	return Loadable[T]{state: StateLoaded, value: v}
}

// Failed wraps err; a nil err is replaced so the failed state always
// carries a reason.
func Failed[T any](err error) Loadable[T] {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Loadable[T]{state: StateFailed, err: err}
}

func (l Loadable[T]) State() LoadState { return l.state }
func (l Loadable[T]) Value() T         { return l.value }
func (l Loadable[T]) Err() error       { return l.err }

func (l Loadable[T]) IsIdle() bool    { return l.state == StateIdle }
func (l Loadable[T]) IsLoading() bool { return l.state == StateLoading }
func (l Loadable[T]) IsLoaded() bool  { return l.state == StateLoaded }
func (l Loadable[T]) IsFailed() bool  { return l.state == StateFailed }

// Load runs fetch and captures its outcome. If ctx is done by the time
// fetch returns, the result is discarded and the context error reported, so
// a caller whose client went away never renders stale data.
func Load[T any](ctx context.Context, fetch func(context.Context) (T, error)) Loadable[T] {
	if err := ctx.Err(); err != nil {
		return Failed[T](err)
	}
	v, err := fetch(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Failed[T](ctxErr)
	}
	if err != nil {
		return Failed[T](err)
	}
	return Loaded(v)
}
