// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_booking

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	internal_callcontext "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/callcontext"
	crm_client "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/crm"
	internal_realtime "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/realtime"
	internal_script "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/script"
)

const (
	// How recently an exact clock time must have been heard for a bare
	// "yes" to admit a booking.
	exactTimeRecency = 5 * time.Minute

	// Epoch values below this are seconds; at or above, milliseconds.
	epochMillisFloor = int64(1_000_000_000_000)

	DefaultDurationMinutes = 30
	BookingSource          = "ai-dialer"
)

// Gate admits book_appointment controls only when the conversation
// actually contains a confirmed time. The model occasionally emits a
// booking control on wishful thinking ("sometime tomorrow works"); the
// gate is the deterministic backstop.
type Gate struct {
	mu sync.Mutex

	lastUtterance   string
	lastUtteranceAt time.Time
	lastExactTimeAt time.Time
}

func NewGate() *Gate {
	return &Gate{}
}

// RecordUtterance feeds every accepted user transcript into the gate.
// Utterances rejected upstream (filler, low-signal) must not reach here.
func (g *Gate) RecordUtterance(text string, at time.Time) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastUtterance = trimmed
	g.lastUtteranceAt = at
	if internal_script.ContainsExactClockTime(trimmed) {
		g.lastExactTimeAt = at
	}
}

// Admit reports whether a booking control may be forwarded right now.
// Either the last accepted utterance names an exact clock time, or it is
// an affirmation spoken within 5 minutes of one.
func (g *Gate) Admit(now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastUtterance == "" {
		return fmt.Errorf("booking gate: no accepted user utterance")
	}
	if internal_script.ContainsExactClockTime(g.lastUtterance) {
		return nil
	}
	if internal_script.IsAffirmative(g.lastUtterance) {
		if g.lastExactTimeAt.IsZero() {
			return fmt.Errorf("booking gate: affirmation without any exact time heard")
		}
		if now.Sub(g.lastExactTimeAt) > exactTimeRecency {
			return fmt.Errorf("booking gate: exact time heard %s ago, outside %s window",
				now.Sub(g.lastExactTimeAt).Round(time.Second), exactTimeRecency)
		}
		return nil
	}
	return fmt.Errorf("booking gate: last utterance %q is neither an exact time nor an affirmation", g.lastUtterance)
}

// NormalizeStartTime decodes the model's startTimeUtc, which arrives as an
// ISO-8601 string, epoch seconds, or epoch milliseconds. Numeric values
// below 10^12 are seconds. The result is always UTC.
func NormalizeStartTime(raw json.RawMessage) (time.Time, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return time.Time{}, fmt.Errorf("normalize start time: empty value")
	}

	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return time.Time{}, fmt.Errorf("normalize start time: %w", err)
		}
		text = strings.TrimSpace(text)
		// Some model variants quote the epoch.
		if epoch, err := strconv.ParseInt(text, 10, 64); err == nil {
			return fromEpoch(epoch), nil
		}
		return parseISO(text)
	}

	if epoch, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return fromEpoch(epoch), nil
	}
	// Fractional epoch seconds.
	if secs, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return time.Unix(int64(secs), 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("normalize start time: undecodable %q", trimmed)
}

func fromEpoch(epoch int64) time.Time {
	if epoch >= epochMillisFloor {
		return time.UnixMilli(epoch).UTC()
	}
	return time.Unix(epoch, 0).UTC()
}

func parseISO(text string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	} {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("normalize start time: unrecognized timestamp %q", text)
}

// ResolveLeadTimeZone walks the lead tz chain: CRM-provided, then
// model-provided, then the agent's zone, then Phoenix. Invalid IANA names
// fall through.
func ResolveLeadTimeZone(crmTZ, modelTZ, agentTZ string) string {
	for _, candidate := range []string{crmTZ, modelTZ, agentTZ} {
		if validZone(candidate) {
			return candidate
		}
	}
	return internal_script.DefaultTimeZone
}

// ResolveAgentTimeZone prefers the CRM-provided agent zone over anything
// the model invented. The model only wins when the CRM gave us nothing
// usable.
func ResolveAgentTimeZone(crmTZ, modelTZ string) string {
	if validZone(crmTZ) {
		return crmTZ
	}
	if validZone(modelTZ) {
		return modelTZ
	}
	return internal_script.DefaultTimeZone
}

func validZone(name string) bool {
	if name == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// BuildRequest turns an admitted control block into the CRM booking
// payload. StartTimeUTC is normalized here; callers only handle the gate
// decision.
func BuildRequest(sessionID string, callCtx *internal_callcontext.CallContext, control *internal_realtime.ControlBlock) (*crm_client.BookAppointmentRequest, error) {
	start, err := NormalizeStartTime(control.StartTimeUTC)
	if err != nil {
		return nil, err
	}

	duration := control.DurationMinutes
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}

	return &crm_client.BookAppointmentRequest{
		AICallSessionID: sessionID,
		LeadID:          callCtx.LeadID,
		StartTimeUTC:    start.Format(time.RFC3339),
		DurationMinutes: duration,
		LeadTimeZone:    ResolveLeadTimeZone(callCtx.LeadTimeZone, control.LeadTimeZone, callCtx.AgentTimeZone),
		AgentTimeZone:   ResolveAgentTimeZone(callCtx.AgentTimeZone, control.AgentTimeZone),
		Notes:           control.Notes,
		Source:          BookingSource,
	}, nil
}
