// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_call

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_realtime "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/realtime"
)

func bookControl() *internal_realtime.ControlBlock {
	return &internal_realtime.ControlBlock{
		Kind:            internal_realtime.ControlBookAppointment,
		StartTimeUTC:    json.RawMessage(`"2026-08-25T19:00:00Z"`),
		DurationMinutes: 30,
		AgentTimeZone:   "America/Denver", // model-invented; must lose to context
	}
}

func TestDispatch_BookAdmittedAfterExactTime(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(3)
	r.commitText("item1", "2:30 pm works for me", 900)

	r.call.dispatchControl(bookControl())

	require.Eventually(t, func() bool { return r.crm.bookingCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	r.crm.mu.Lock()
	defer r.crm.mu.Unlock()
	booked := r.crm.bookings[0]
	assert.Equal(t, "sess-1", booked.AICallSessionID)
	assert.Equal(t, "lead-7", booked.LeadID)
	assert.Equal(t, "2026-08-25T19:00:00Z", booked.StartTimeUTC)
	assert.Equal(t, "America/Chicago", booked.LeadTimeZone, "lead tz from context")
	assert.Equal(t, "America/New_York", booked.AgentTimeZone, "context agent tz beats model value")
}

func TestDispatch_BookRejectedWithoutTime(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)
	r.commitText("item1", "yes sounds good", 900)

	r.call.dispatchControl(bookControl())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, r.crm.bookingCount())
}

func TestDispatch_FinalOutcomeIdempotent(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)

	control := &internal_realtime.ControlBlock{
		Kind:    internal_realtime.ControlFinalOutcome,
		Outcome: internal_realtime.OutcomeBooked,
		Summary: "booked for tomorrow 2pm",
	}
	r.call.dispatchControl(control)
	r.call.dispatchControl(control)

	require.Eventually(t, func() bool { return r.crm.outcomeCount() == 1 },
		2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, r.crm.outcomeCount(), "second control must be a no-op")

	r.crm.mu.Lock()
	defer r.crm.mu.Unlock()
	assert.Equal(t, internal_realtime.OutcomeBooked, r.crm.outcomes[0].Outcome)
	assert.Equal(t, "lead-7", r.crm.outcomes[0].LeadID)
}

func TestDispatch_EmptyOutcomeDefaultsUnknown(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)

	r.call.dispatchControl(&internal_realtime.ControlBlock{
		Kind: internal_realtime.ControlFinalOutcome,
	})

	require.Eventually(t, func() bool { return r.crm.outcomeCount() == 1 },
		2*time.Second, 10*time.Millisecond)
	r.crm.mu.Lock()
	defer r.crm.mu.Unlock()
	assert.Equal(t, internal_realtime.OutcomeUnknown, r.crm.outcomes[0].Outcome)
}

func TestDispatch_UnknownControlIgnored(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)

	r.call.dispatchControl(&internal_realtime.ControlBlock{Kind: "transfer_call"})

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, r.crm.bookingCount())
	assert.Equal(t, 0, r.crm.outcomeCount())
}

func TestVoicemail_SuppressesAllOutput(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)

	r.call.armVoicemailSkip()

	assert.Equal(t, PhaseEnded, r.call.Phase())
	require.NoError(t, r.call.writeOutboundFrame(loudFrame()))
	assert.Equal(t, 0, r.carrier.frameCount(), "no frame may reach the carrier")

	r.model.mu.Lock()
	closes := r.model.closes
	r.model.mu.Unlock()
	assert.Equal(t, 1, closes)

	// Usage still bills the connected time.
	assert.Equal(t, 1, r.crm.usageCount())
}

func TestVoicemail_InboundFramesDropped(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)
	r.call.mu.Lock()
	r.call.voicemailSkipArmed = true
	r.call.mu.Unlock()

	r.call.HandleInboundFrame(loudFrame())
	assert.Equal(t, 0, r.model.appendCount())
}

func TestEnd_Idempotent(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)

	r.call.End("carrier_stop")
	r.call.End("carrier_stop")

	assert.Equal(t, PhaseEnded, r.call.Phase())
	assert.Equal(t, 1, r.crm.usageCount(), "usage reported exactly once")

	r.model.mu.Lock()
	defer r.model.mu.Unlock()
	assert.Equal(t, 1, r.model.closes)
}
