// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_telephony

import (
	"encoding/json"

	internal_audio "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/audio"
)

// Carrier stream event discriminators.
const (
	EventStart = "start"
	EventMedia = "media"
	EventStop  = "stop"

	// TrackOutbound tags echo frames of our own audio; always dropped.
	TrackOutbound = "outbound"
)

// StartPayload carries the stream identity and the dialer's custom
// parameters.
type StartPayload struct {
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid"`
	CustomParameters map[string]string `json:"customParameters"`
}

// MediaPayload carries one base64 μ-law frame.
type MediaPayload struct {
	Payload string `json:"payload"`
	Track   string `json:"track,omitempty"`
}

// StreamEvent is one decoded carrier websocket message.
type StreamEvent struct {
	Event     string        `json:"event"`
	StreamSid string        `json:"streamSid,omitempty"`
	Start     *StartPayload `json:"start,omitempty"`
	Media     *MediaPayload `json:"media,omitempty"`
}

// SessionID pulls the dialer session id from the start parameters.
func (p *StartPayload) SessionID() string {
	return p.CustomParameters["sessionId"]
}

// LeadID pulls the lead id from the start parameters.
func (p *StartPayload) LeadID() string {
	return p.CustomParameters["leadId"]
}

// outboundMedia is the wire shape of one frame toward the carrier.
type outboundMedia struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
	Media     struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

// EncodeOutboundMedia renders one outbound media message. The payload is
// forced to exactly one full frame: short input is padded with μ-law
// silence, long input is truncated. The carrier rejects anything else.
func EncodeOutboundMedia(streamSid string, frame []byte) ([]byte, error) {
	if len(frame) > internal_audio.FrameBytes {
		frame = frame[:internal_audio.FrameBytes]
	} else if len(frame) < internal_audio.FrameBytes {
		frame = internal_audio.PadFrame(frame)
	}

	msg := outboundMedia{Event: EventMedia, StreamSid: streamSid}
	msg.Media.Payload = base64Encode(frame)
	return json.Marshal(msg)
}
