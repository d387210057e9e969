// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_booking

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_callcontext "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/callcontext"
	internal_realtime "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/realtime"
)

func TestGate_ExactTimeAdmits(t *testing.T) {
	gate := NewGate()
	now := time.Now()
	gate.RecordUtterance("let's do 2:30 pm", now)
	assert.NoError(t, gate.Admit(now))
}

func TestGate_AffirmationWithinWindowAdmits(t *testing.T) {
	gate := NewGate()
	now := time.Now()
	gate.RecordUtterance("2 pm works", now)
	gate.RecordUtterance("yes that's perfect", now.Add(90*time.Second))
	assert.NoError(t, gate.Admit(now.Add(2*time.Minute)))
}

func TestGate_AffirmationOutsideWindowRejected(t *testing.T) {
	gate := NewGate()
	now := time.Now()
	gate.RecordUtterance("2 pm works", now)
	gate.RecordUtterance("yes", now.Add(6*time.Minute))
	assert.Error(t, gate.Admit(now.Add(6*time.Minute)))
}

func TestGate_AffirmationWithoutTimeRejected(t *testing.T) {
	gate := NewGate()
	now := time.Now()
	gate.RecordUtterance("sure sounds good", now)
	assert.Error(t, gate.Admit(now))
}

func TestGate_VagueUtteranceRejected(t *testing.T) {
	gate := NewGate()
	now := time.Now()
	gate.RecordUtterance("sometime tomorrow works", now)
	assert.Error(t, gate.Admit(now))
}

func TestGate_NoUtteranceRejected(t *testing.T) {
	assert.Error(t, NewGate().Admit(time.Now()))
}

func TestNormalizeStartTime(t *testing.T) {
	want := time.Date(2026, 8, 25, 19, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		raw  string
	}{
		{"iso", `"2026-08-25T19:00:00Z"`},
		{"iso offset", `"2026-08-25T12:00:00-07:00"`},
		{"iso no zone", `"2026-08-25T19:00:00"`},
		{"epoch seconds", `1787684400`},
		{"epoch millis", `1787684400000`},
		{"quoted epoch", `"1787684400"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeStartTime(json.RawMessage(tc.raw))
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s", got)
		})
	}
}

func TestNormalizeStartTime_Errors(t *testing.T) {
	for _, raw := range []string{``, `null`, `"next tuesday"`, `"tomorrow at 2"`} {
		_, err := NormalizeStartTime(json.RawMessage(raw))
		assert.Error(t, err, "raw=%q", raw)
	}
}

func TestResolveLeadTimeZone_Chain(t *testing.T) {
	assert.Equal(t, "America/Chicago", ResolveLeadTimeZone("America/Chicago", "America/New_York", "America/Denver"))
	assert.Equal(t, "America/New_York", ResolveLeadTimeZone("Not/AZone", "America/New_York", "America/Denver"))
	assert.Equal(t, "America/Denver", ResolveLeadTimeZone("", "bogus", "America/Denver"))
	assert.Equal(t, "America/Phoenix", ResolveLeadTimeZone("", "", ""))
}

func TestResolveAgentTimeZone_CRMAlwaysWins(t *testing.T) {
	assert.Equal(t, "America/New_York", ResolveAgentTimeZone("America/New_York", "America/Chicago"))
	assert.Equal(t, "America/Chicago", ResolveAgentTimeZone("Not/AZone", "America/Chicago"))
	assert.Equal(t, "America/Phoenix", ResolveAgentTimeZone("", ""))
}

func TestBuildRequest(t *testing.T) {
	callCtx := &internal_callcontext.CallContext{
		LeadID:        "lead-7",
		LeadTimeZone:  "America/Chicago",
		AgentTimeZone: "America/New_York",
	}
	control := &internal_realtime.ControlBlock{
		Kind:          internal_realtime.ControlBookAppointment,
		StartTimeUTC:  json.RawMessage(`"2026-08-25T19:00:00Z"`),
		AgentTimeZone: "America/Denver",
		Notes:         "prefers afternoon",
	}

	req, err := BuildRequest("sess-1", callCtx, control)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", req.AICallSessionID)
	assert.Equal(t, "lead-7", req.LeadID)
	assert.Equal(t, "2026-08-25T19:00:00Z", req.StartTimeUTC)
	assert.Equal(t, DefaultDurationMinutes, req.DurationMinutes)
	assert.Equal(t, "America/Chicago", req.LeadTimeZone)
	assert.Equal(t, "America/New_York", req.AgentTimeZone, "context agent tz beats model value")
	assert.Equal(t, BookingSource, req.Source)
}

func TestBuildRequest_ModelLeadTZWhenContextMissing(t *testing.T) {
	callCtx := &internal_callcontext.CallContext{LeadID: "lead-7", AgentTimeZone: "America/New_York"}
	control := &internal_realtime.ControlBlock{
		Kind:            internal_realtime.ControlBookAppointment,
		StartTimeUTC:    json.RawMessage(`1787684400`),
		DurationMinutes: 45,
		LeadTimeZone:    "America/Chicago",
	}

	req, err := BuildRequest("sess-1", callCtx, control)
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", req.LeadTimeZone)
	assert.Equal(t, 45, req.DurationMinutes)
}

func TestBuildRequest_BadStartTime(t *testing.T) {
	_, err := BuildRequest("sess-1", &internal_callcontext.CallContext{}, &internal_realtime.ControlBlock{
		Kind:         internal_realtime.ControlBookAppointment,
		StartTimeUTC: json.RawMessage(`"whenever"`),
	})
	assert.Error(t, err)
}
