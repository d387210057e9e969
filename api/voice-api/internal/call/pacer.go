// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_call

import (
	"context"
	"sync"
	"time"

	internal_audio "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/audio"
	"github.com/brysonmccleary/CoveCRM-sub002/pkg/commons"
	"github.com/brysonmccleary/CoveCRM-sub002/pkg/utils"
)

// OutboundPacer drains model audio to the carrier at exactly one 160-byte
// frame per 20 ms tick. The carrier never sees an underrun mid-utterance:
// short tails are padded, gaps are filled with silence frames.
type OutboundPacer struct {
	mu      sync.Mutex
	buf     []byte
	done    bool
	running bool
	stop    chan struct{}

	emit      func(frame []byte) error
	onDrained func()
	logger    commons.Logger
}

// NewOutboundPacer wires the pacer to its frame sink. onDrained fires once
// per drain-stop, after the final frame has been written.
func NewOutboundPacer(emit func([]byte) error, onDrained func(), logger commons.Logger) *OutboundPacer {
	return &OutboundPacer{emit: emit, onDrained: onDrained, logger: logger}
}

// Append queues model audio bytes for pacing.
func (p *OutboundPacer) Append(audio []byte) {
	p.mu.Lock()
	p.buf = append(p.buf, audio...)
	p.mu.Unlock()
}

// MarkDone signals that the model finished producing audio for the current
// response; the pacer stops once the buffer drains.
func (p *OutboundPacer) MarkDone() {
	p.mu.Lock()
	p.done = true
	p.mu.Unlock()
}

// Reset clears the buffer and done flag for a new response.
func (p *OutboundPacer) Reset() {
	p.mu.Lock()
	p.buf = p.buf[:0]
	p.done = false
	p.mu.Unlock()
}

// Buffered returns the queued byte count.
func (p *OutboundPacer) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

// Running reports whether the tick loop is live.
func (p *OutboundPacer) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start launches the 20 ms tick loop. Idempotent while running.
func (p *OutboundPacer) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	stop := p.stop
	p.mu.Unlock()

	utils.Go(ctx, func() {
		ticker := time.NewTicker(internal_audio.FrameDuration * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				p.Stop()
				return
			case <-stop:
				return
			case <-ticker.C:
				if drained := p.tick(); drained {
					p.Stop()
					if p.onDrained != nil {
						p.onDrained()
					}
					return
				}
			}
		}
	})
}

// Stop halts the tick loop without touching the buffer. Idempotent.
func (p *OutboundPacer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.stop)
}

// StopAndReset halts the loop and drops any queued audio (barge-in path).
func (p *OutboundPacer) StopAndReset() {
	p.Stop()
	p.Reset()
}

// tick emits exactly one frame and reports whether the pacer drained out.
func (p *OutboundPacer) tick() (drained bool) {
	p.mu.Lock()
	var frame []byte
	switch {
	case len(p.buf) >= internal_audio.FrameBytes:
		frame = make([]byte, internal_audio.FrameBytes)
		copy(frame, p.buf[:internal_audio.FrameBytes])
		p.buf = p.buf[internal_audio.FrameBytes:]
	case p.done && len(p.buf) == 0:
		p.mu.Unlock()
		return true
	case len(p.buf) > 0:
		// Short tail: pad with silence whether or not the model is done,
		// otherwise the carrier hears an underrun click.
		frame = internal_audio.PadFrame(p.buf)
		p.buf = p.buf[:0]
		drained = p.done
	default:
		frame = internal_audio.SilenceFrame()
	}
	p.mu.Unlock()

	if err := p.emit(frame); err != nil {
		p.logger.Warnw("outbound frame write failed", "error", err.Error())
		return true
	}
	return drained
}
