// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_call

import (
	internal_audio "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/audio"
)

// observeBargeFrame runs while the assistant is speaking. Caller holds mu.
// Non-silence frames build toward a cancel; a silence frame breaks the
// sustain. The ring buffer keeps the last 200 ms so the interrupting words
// survive the cancel.
func (c *Call) observeBargeFrame(frame []byte, voice bool) {
	if !voice {
		c.bargeAudioMs = 0
		return
	}

	c.bargeAudioMs += internal_audio.FrameDuration
	if c.bargeAudioMs > bargeAudioCapMs {
		c.bargeAudioMs = bargeAudioCapMs
	}

	buffered := make([]byte, len(frame))
	copy(buffered, frame)
	c.ring = append(c.ring, buffered)
	if len(c.ring) > bargeRingSlots {
		c.ring = c.ring[len(c.ring)-bargeRingSlots:]
	}

	now := c.now()
	if c.aiAudioStartedAt.IsZero() || now.Sub(c.aiAudioStartedAt) < bargeCooldown {
		return
	}
	if c.bargeAudioMs < bargeSustainMs {
		return
	}
	// Model-done race: the response already finished, nothing to cancel.
	if !c.lastAiDoneAt.IsZero() && !c.lastAiDoneAt.Before(c.aiAudioStartedAt) {
		return
	}
	if !c.lastCancelAt.IsZero() && now.Sub(c.lastCancelAt) < cancelThrottle {
		return
	}

	c.fireBargeCancelLocked()
}

// fireBargeCancelLocked aborts the in-flight response: cancel upstream,
// clear the input buffer, drop queued outbound audio, reopen listening.
// The ring buffer is flushed ahead of the next live frame.
func (c *Call) fireBargeCancelLocked() {
	now := c.now()
	c.lastCancelAt = now
	c.bargeAudioMs = 0
	c.ringFlushArmed = true

	c.logger.Infow("barge-in cancel",
		"call_sid", c.CallSID,
		"ai_audio_ms", now.Sub(c.aiAudioStartedAt).Milliseconds(),
		"ring_frames", len(c.ring))

	if err := c.model.CancelResponse(); err != nil {
		c.logger.Warnw("barge-in cancel send failed", "call_sid", c.CallSID, "error", err.Error())
	}
	if err := c.model.ClearInput(); err != nil {
		c.logger.Warnw("barge-in buffer clear failed", "call_sid", c.CallSID, "error", err.Error())
	}

	c.pacer.StopAndReset()
	c.outboundOpenAiDone = true
	c.aiSpeaking = false
	c.waitingForResponse = false
	c.responseInFlight = false
	c.lastListenEnabledAt = now
}
