// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/holomush/holoauth/internal/apperr"
)

// Hash pool operation names, used for metrics and spans.
const (
	OpHash   = "hash"
	OpVerify = "verify"
)

var tracer = otel.Tracer("github.com/holomush/holoauth/internal/auth")

// HashObserver receives the duration of every completed KDF computation.
type HashObserver interface {
	ObserveHash(operation string, d time.Duration)
}

// CredentialHasher is the context-aware hashing contract used by request
// handlers.
type CredentialHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hash string) (bool, error)
}

type hashJob struct {
	op       string
	password string
	hash     string
	result   chan hashResult
}

type hashResult struct {
	encoded string
	ok      bool
	err     error
}

// HashPool runs password hashing on a fixed set of worker goroutines so at
// most Workers KDF computations run at once, independent of how many
// requests are in flight.
//
// A submitted job always runs to completion and its result is delivered to
// the caller exactly once. The context only bounds the wait for a free
// worker.
type HashPool struct {
	hasher   PasswordHasher
	observer HashObserver
	jobs     chan hashJob
	group    errgroup.Group
	workers  int

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// HashPoolOption configures a HashPool.
type HashPoolOption func(*HashPool)

// WithHashObserver records KDF durations.
func WithHashObserver(o HashObserver) HashPoolOption {
	return func(p *HashPool) {
		p.observer = o
	}
}

// NewHashPool starts workers goroutines running hasher. workers <= 0 means
// runtime.NumCPU().
func NewHashPool(hasher PasswordHasher, workers int, opts ...HashPoolOption) *HashPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &HashPool{
		hasher:  hasher,
		jobs:    make(chan hashJob),
		workers: workers,
	}
	for _, opt := range opts {
		opt(p)
	}

	for range workers {
		p.group.Go(p.work)
	}
	return p
}

// Workers returns the number of worker goroutines.
func (p *HashPool) Workers() int {
	return p.workers
}

// Hash hashes password on a pool worker.
func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	res, err := p.submit(ctx, hashJob{op: OpHash, password: password})
	if err != nil {
		return "", err
	}
	return res.encoded, res.err
}

// Verify checks password against hash on a pool worker.
func (p *HashPool) Verify(ctx context.Context, password, hash string) (bool, error) {
	res, err := p.submit(ctx, hashJob{op: OpVerify, password: password, hash: hash})
	if err != nil {
		return false, err
	}
	return res.ok, res.err
}

// Close stops accepting work, lets running jobs finish and waits for all
// workers to exit.
func (p *HashPool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
	})
	//nolint:errcheck // workers never return errors
	p.group.Wait()
}

func (p *HashPool) submit(ctx context.Context, job hashJob) (hashResult, error) {
	ctx, span := tracer.Start(ctx, "auth.HashPool."+job.op)
	defer span.End()

	job.result = make(chan hashResult, 1)

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return hashResult{}, apperr.Internal(oops.Code("HASH_POOL_CLOSED").Errorf("hash pool is closed"))
	}
	select {
	case p.jobs <- job:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return hashResult{}, apperr.Internal(oops.Code("HASH_POOL_CANCELLED").
			With("operation", job.op).
			Wrap(ctx.Err()))
	}

	// Submitted: wait for the result regardless of ctx.
	res := <-job.result
	span.SetAttributes(attribute.Bool("auth.hash.failed", res.err != nil))
	return res, nil
}

func (p *HashPool) work() error {
	for job := range p.jobs {
		start := time.Now()
		var res hashResult
		switch job.op {
		case OpHash:
			res.encoded, res.err = p.hasher.Hash(job.password)
		case OpVerify:
			res.ok, res.err = p.hasher.Verify(job.password, job.hash)
		}
		if p.observer != nil {
			p.observer.ObserveHash(job.op, time.Since(start))
		}
		job.result <- res
	}
	return nil
}

// Compile-time interface check.
var _ CredentialHasher = (*HashPool)(nil)
