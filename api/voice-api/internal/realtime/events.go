// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_realtime

import (
	"encoding/json"
)

// Server event types consumed by the call engine. Unknown types are logged
// at debug and ignored.
const (
	EventSessionCreated      = "session.created"
	EventSessionUpdated      = "session.updated"
	EventSpeechStarted       = "input_audio_buffer.speech_started"
	EventSpeechStopped       = "input_audio_buffer.speech_stopped"
	EventInputCommitted      = "input_audio_buffer.committed"
	EventTranscriptDelta     = "conversation.item.input_audio_transcription.delta"
	EventTranscriptCompleted = "conversation.item.input_audio_transcription.completed"
	EventTranscriptFailed    = "conversation.item.input_audio_transcription.failed"
	EventResponseAudioDelta  = "response.audio.delta"
	EventResponseAudioDone   = "response.audio.done"
	EventResponseDone        = "response.done"
	EventResponseCancelled   = "response.cancelled"
	EventResponseInterrupted = "response.interrupted"
	EventError               = "error"
)

// ControlKind discriminates side-channel control blocks the model embeds in
// its events.
const (
	ControlBookAppointment = "book_appointment"
	ControlFinalOutcome    = "final_outcome"
)

// Terminal outcome values accepted on a final_outcome control.
const (
	OutcomeBooked        = "booked"
	OutcomeNotInterested = "not_interested"
	OutcomeNoAnswer      = "no_answer"
	OutcomeCallback      = "callback"
	OutcomeDoNotCall     = "do_not_call"
	OutcomeDisconnected  = "disconnected"
	OutcomeUnknown       = "unknown"
)

// ControlBlock is a structured instruction riding inside a model event.
// StartTimeUTC stays raw because the model emits ISO-8601 strings, epoch
// seconds, and epoch milliseconds interchangeably; the booking gate
// normalizes it.
type ControlBlock struct {
	Kind            string          `json:"kind"`
	StartTimeUTC    json.RawMessage `json:"startTimeUtc,omitempty"`
	DurationMinutes int             `json:"durationMinutes,omitempty"`
	LeadTimeZone    string          `json:"leadTimeZone,omitempty"`
	AgentTimeZone   string          `json:"agentTimeZone,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Outcome         string          `json:"outcome,omitempty"`
	Summary         string          `json:"summary,omitempty"`
}

// ErrorDetail is the nested error object on an error event.
type ErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type eventMetadata struct {
	Control *ControlBlock `json:"control,omitempty"`
}

type eventItem struct {
	ID       string         `json:"id,omitempty"`
	Metadata *eventMetadata `json:"metadata,omitempty"`
}

type eventResponse struct {
	ID       string         `json:"id,omitempty"`
	Status   string         `json:"status,omitempty"`
	Metadata *eventMetadata `json:"metadata,omitempty"`
}

// ServerEvent is the decoded shape of one model websocket message. Only the
// fields the engine consumes are mapped; everything else is dropped at
// decode time.
type ServerEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`
	ItemID  string `json:"item_id,omitempty"`

	// Audio / transcript payloads.
	Delta      string `json:"delta,omitempty"`
	Transcript string `json:"transcript,omitempty"`

	// Speech timing from server VAD.
	AudioStartMs int `json:"audio_start_ms,omitempty"`
	AudioEndMs   int `json:"audio_end_ms,omitempty"`

	Error    *ErrorDetail   `json:"error,omitempty"`
	Control  *ControlBlock  `json:"control,omitempty"`
	Metadata *eventMetadata `json:"metadata,omitempty"`
	Item     *eventItem     `json:"item,omitempty"`
	Response *eventResponse `json:"response,omitempty"`
}

// EmbeddedControl returns the control block wherever the model put it:
// top-level, under metadata, or under item metadata, in that precedence.
func (e *ServerEvent) EmbeddedControl() *ControlBlock {
	if e.Control != nil && e.Control.Kind != "" {
		return e.Control
	}
	if e.Metadata != nil && e.Metadata.Control != nil && e.Metadata.Control.Kind != "" {
		return e.Metadata.Control
	}
	if e.Item != nil && e.Item.Metadata != nil && e.Item.Metadata.Control != nil && e.Item.Metadata.Control.Kind != "" {
		return e.Item.Metadata.Control
	}
	if e.Response != nil && e.Response.Metadata != nil && e.Response.Metadata.Control != nil && e.Response.Metadata.Control.Kind != "" {
		return e.Response.Metadata.Control
	}
	return nil
}

// ResponseItemID returns the best item identifier on the event, used to key
// per-item transcripts.
func (e *ServerEvent) ResponseItemID() string {
	if e.ItemID != "" {
		return e.ItemID
	}
	if e.Item != nil {
		return e.Item.ID
	}
	return ""
}
