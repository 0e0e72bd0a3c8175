package services

import (
	"context"
	"time"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// Option customises the services that depend on wall-clock time.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return limit, max(0, offset)
}

// floorMinutes converts d to whole minutes, never negative.
func floorMinutes(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d / time.Minute)
}
