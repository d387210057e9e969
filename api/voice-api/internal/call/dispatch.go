// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_call

import (
	"context"
	"strings"
	"time"

	internal_booking "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/booking"
	crm_client "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/crm"
	internal_realtime "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/realtime"
	"github.com/brysonmccleary/CoveCRM-sub002/pkg/utils"
)

// answeredByRefreshBackoff spaces the pre-greeting answering-machine
// re-checks; AMD results often land a beat after the stream starts.
const answeredByRefreshBackoff = 150 * time.Millisecond

// dispatchControl routes a control block embedded in a model event.
// Unknown kinds are ignored; CRM failures are logged and never retried
// here, the model may re-emit the control.
func (c *Call) dispatchControl(control *internal_realtime.ControlBlock) {
	switch control.Kind {
	case internal_realtime.ControlBookAppointment:
		c.handleBookAppointment(control)
	case internal_realtime.ControlFinalOutcome:
		c.handleFinalOutcome(control)
	default:
		c.logger.Debugf("ignoring control kind %q call_sid=%s", control.Kind, c.CallSID)
	}
}

func (c *Call) handleBookAppointment(control *internal_realtime.ControlBlock) {
	c.mu.Lock()
	now := c.now()
	callCtx := c.Context
	sessionID := c.SessionID
	c.mu.Unlock()

	if err := c.booking.Admit(now); err != nil {
		c.logger.Warnw("booking control rejected",
			"call_sid", c.CallSID, "reason", err.Error())
		return
	}

	req, err := internal_booking.BuildRequest(sessionID, callCtx, control)
	if err != nil {
		c.logger.Warnw("booking control undecodable",
			"call_sid", c.CallSID, "error", err.Error())
		return
	}

	utils.Go(c.ctx, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		resp, err := c.crm.BookAppointment(ctx, req)
		if err != nil {
			c.logger.Errorf("book appointment failed on call %s: %s", c.CallSID, err.Error())
			return
		}
		c.logger.Infow("appointment booked",
			"call_sid", c.CallSID,
			"event_id", resp.EventID,
			"start", req.StartTimeUTC,
			"lead_tz", req.LeadTimeZone)
	})
}

func (c *Call) handleFinalOutcome(control *internal_realtime.ControlBlock) {
	c.mu.Lock()
	if c.finalOutcomeSent {
		c.mu.Unlock()
		return
	}
	c.finalOutcomeSent = true
	sessionID := c.SessionID
	leadID := c.Context.LeadID
	c.mu.Unlock()

	outcome := control.Outcome
	if outcome == "" {
		outcome = internal_realtime.OutcomeUnknown
	}

	utils.Go(c.ctx, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		resp, err := c.crm.PostOutcome(ctx, &crm_client.OutcomeRequest{
			AICallSessionID: sessionID,
			LeadID:          leadID,
			CallSid:         c.CallSID,
			Outcome:         outcome,
			Summary:         control.Summary,
		})
		if err != nil {
			c.logger.Errorf("outcome post failed on call %s: %s", c.CallSID, err.Error())
			return
		}
		c.logger.Infow("outcome posted",
			"call_sid", c.CallSID,
			"outcome", resp.Outcome,
			"moved", resp.Moved)
	})
}

// refreshAnsweredBy re-checks the answering-machine hint before the
// greeting plays, up to twice with a short backoff. A machine pickup arms
// voicemail suppression and ends the call.
func (c *Call) refreshAnsweredBy() {
	c.mu.Lock()
	answered := c.answeredBy
	c.mu.Unlock()

	if machineAnswered(answered) {
		c.armVoicemailSkip()
		return
	}

	for attempt := 0; attempt < 2; attempt++ {
		time.Sleep(answeredByRefreshBackoff)

		c.mu.Lock()
		done := c.phase == PhaseEnded
		c.answeredByRefreshes++
		c.mu.Unlock()
		if done {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		fresh, err := c.crm.GetContext(ctx, c.SessionID, c.Context.LeadID, c.CallSID)
		cancel()
		if err != nil {
			c.logger.Debugf("answeredBy refresh failed call_sid=%s: %s", c.CallSID, err.Error())
			continue
		}

		c.mu.Lock()
		c.answeredBy = fresh.AnsweredBy
		c.mu.Unlock()

		if fresh.IsMachineAnswered() {
			c.armVoicemailSkip()
			return
		}
		if fresh.AnsweredBy != "" {
			// A definitive human answer; stop polling.
			return
		}
	}

	c.mu.Lock()
	refreshes := c.answeredByRefreshes
	c.mu.Unlock()
	c.logger.Debugw("answeredBy unresolved, proceeding as human",
		"call_sid", c.CallSID, "refreshes", refreshes)
}

func machineAnswered(answeredBy string) bool {
	lower := strings.ToLower(answeredBy)
	return strings.Contains(lower, "machine") ||
		strings.Contains(lower, "fax") ||
		strings.Contains(lower, "voicemail")
}

// armVoicemailSkip suppresses every future frame in both directions and
// terminates the call. The voicemail never hears a word.
func (c *Call) armVoicemailSkip() {
	c.mu.Lock()
	if c.voicemailSkipArmed {
		c.mu.Unlock()
		return
	}
	c.voicemailSkipArmed = true
	c.dead.Store(true)
	answered := c.answeredBy
	c.mu.Unlock()

	c.logger.Infow("voicemail detected, suppressing output",
		"call_sid", c.CallSID, "answered_by", answered)
	c.pacer.StopAndReset()
	c.End("voicemail")
}
