// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package affinity

import (
	"fmt"

	"github.com/joeycumines/go-affinity/host"
	"github.com/joeycumines/logiface"
)

const (
	defaultIngressCapacity = 1024
	defaultDrainCapacity   = 64
	defaultRelayBatch      = 32
)

// executorOptions holds configuration for Executor creation.
type executorOptions struct {
	backend         host.Backend
	logger          *logiface.Logger[logiface.Event]
	ingressCapacity int
	drainCapacity   int
	relayBatch      int
	// fatal receives unrecoverable conditions, after the executor released
	// everything it held
	fatal func(v any)
}

// Option configures an [Executor].
type Option interface {
	applyExecutor(*executorOptions) error
}

type optionImpl struct {
	applyExecutorFunc func(*executorOptions) error
}

func (o *optionImpl) applyExecutor(opts *executorOptions) error {
	return o.applyExecutorFunc(opts)
}

// WithBackend sets the host backend. Defaults to a new [host.Headless].
func WithBackend(backend host.Backend) Option {
	return &optionImpl{func(opts *executorOptions) error {
		opts.backend = backend
		return nil
	}}
}

// WithLogger sets the structured logger. A nil logger disables logging,
// which is the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *executorOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithIngressCapacity bounds the number of directives that may be queued,
// from outside handlers, before submission fails with [ErrDispatchFailed].
func WithIngressCapacity(n int) Option {
	return &optionImpl{func(opts *executorOptions) error {
		if n <= 0 {
			return fmt.Errorf(`affinity: invalid ingress capacity: %d`, n)
		}
		opts.ingressCapacity = n
		return nil
	}}
}

// WithDrainCapacity bounds the number of directives a handler may have
// outstanding at once.
func WithDrainCapacity(n int) Option {
	return &optionImpl{func(opts *executorOptions) error {
		if n <= 0 {
			return fmt.Errorf(`affinity: invalid drain capacity: %d`, n)
		}
		opts.drainCapacity = n
		return nil
	}}
}

// WithRelayBatch sets how many queued directives the relay forwards to the
// host per wake.
func WithRelayBatch(n int) Option {
	return &optionImpl{func(opts *executorOptions) error {
		if n <= 0 {
			return fmt.Errorf(`affinity: invalid relay batch: %d`, n)
		}
		opts.relayBatch = n
		return nil
	}}
}

func withFatal(fn func(v any)) Option {
	return &optionImpl{func(opts *executorOptions) error {
		opts.fatal = fn
		return nil
	}}
}

// resolveOptions applies Option instances over the defaults.
func resolveOptions(opts []Option) (*executorOptions, error) {
	cfg := &executorOptions{
		ingressCapacity: defaultIngressCapacity,
		drainCapacity:   defaultDrainCapacity,
		relayBatch:      defaultRelayBatch,
		fatal:           func(v any) { panic(v) },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyExecutor(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.backend == nil {
		cfg.backend = host.NewHeadless()
	}
	return cfg, nil
}
