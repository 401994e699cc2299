/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package analyzer

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// job is one queued analysis request.
type job struct {
	requestID string
	blob      []byte
	opts      Options
	reply     chan jobResult
}

type jobResult struct {
	analysis TrackAnalysis
	err      error
}

// Pool serializes analysis requests through a bounded channel consumed by
// a configurable number of workers (defaulting to one, matching "a single
// analysis worker shared across tracks, serialized via request ids").
// Each request is tagged with a uuid so a caller that has since moved on
// (state changed) can recognize and discard a stale reply.
type Pool struct {
	dec     PCMDecoder
	jobs    chan job
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// NewPool starts a Pool with the given decoder and worker count (clamped
// to at least 1).
func NewPool(dec PCMDecoder, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{dec: dec, jobs: make(chan job, 32)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		analysis, err := AnalyzeTrack(context.Background(), p.dec, j.blob, j.opts)
		j.reply <- jobResult{analysis: analysis, err: err}
	}
}

// Submit enqueues an analysis request and returns its request id alongside
// a channel that receives the result. The request id lets the caller
// discard a reply that arrives after a state change made it stale.
func (p *Pool) Submit(ctx context.Context, blob []byte, opts Options) (requestID string, result <-chan TrackAnalysisResult) {
	id := uuid.NewString()
	reply := make(chan jobResult, 1)
	out := make(chan TrackAnalysisResult, 1)

	p.closeMu.Lock()
	closed := p.closed
	p.closeMu.Unlock()
	if closed {
		out <- TrackAnalysisResult{RequestID: id, Err: context.Canceled}
		close(out)
		return id, out
	}

	go func() {
		select {
		case p.jobs <- job{requestID: id, blob: blob, opts: opts, reply: reply}:
		case <-ctx.Done():
			out <- TrackAnalysisResult{RequestID: id, Err: ctx.Err()}
			close(out)
			return
		}
		select {
		case r := <-reply:
			out <- TrackAnalysisResult{RequestID: id, Analysis: r.analysis, Err: r.err}
		case <-ctx.Done():
			out <- TrackAnalysisResult{RequestID: id, Err: ctx.Err()}
		}
		close(out)
	}()

	return id, out
}

// TrackAnalysisResult is the tagged reply delivered on a Submit channel.
type TrackAnalysisResult struct {
	RequestID string
	Analysis  TrackAnalysis
	Err       error
}

// Close stops accepting new work and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	p.closeMu.Unlock()
	close(p.jobs)
	p.wg.Wait()
}
