// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_call

// Phase is the coarse call lifecycle. Ended is terminal; no transitions
// leave it.
type Phase string

const (
	PhaseInit                  Phase = "init"
	PhaseAwaitingGreetingReply Phase = "awaiting_greeting_reply"
	PhaseInCall                Phase = "in_call"
	PhaseEnded                 Phase = "ended"
)

// setPhase is the only place the phase mutates. Every transition is logged
// with both sides so call traces read linearly.
func (c *Call) setPhase(next Phase) {
	if c.phase == next {
		return
	}
	if c.phase == PhaseEnded {
		c.logger.Warnw("ignoring phase transition out of ended",
			"call_sid", c.CallSID, "requested", string(next))
		return
	}
	c.logger.Infow("phase transition",
		"call_sid", c.CallSID,
		"from", string(c.phase),
		"to", string(next))
	c.phase = next
}

// Phase returns the current phase.
func (c *Call) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}
