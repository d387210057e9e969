// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_telephony

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	internal_call "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/call"
	internal_callcontext "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/callcontext"
	crm_client "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/crm"
	internal_realtime "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/realtime"
	"github.com/brysonmccleary/CoveCRM-sub002/config"
	"github.com/brysonmccleary/CoveCRM-sub002/pkg/commons"
	"github.com/brysonmccleary/CoveCRM-sub002/pkg/utils"
)

func base64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// ModelConn is the model-side connection the handler manages per call.
// *internal_realtime.Client satisfies it.
type ModelConn interface {
	internal_call.ModelSender
	SendSessionUpdate(params internal_realtime.SessionParams) error
	Listen(ctx context.Context, handler func(*internal_realtime.ServerEvent)) error
}

// ModelDialer opens the model connection for one call.
type ModelDialer func(ctx context.Context) (ModelConn, error)

// Handler owns the carrier-facing media-stream websocket endpoint and the
// per-call wiring between the carrier, the call engine, and the model.
type Handler struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	crm      crm_client.CoveCRMClient
	registry *internal_call.Registry
	dial     ModelDialer

	upgrader websocket.Upgrader
}

// NewHandler builds the media-stream handler with the production model
// dialer.
func NewHandler(cfg *config.AppConfig, logger commons.Logger, crm crm_client.CoveCRMClient, registry *internal_call.Registry) *Handler {
	h := &Handler{
		cfg:      cfg,
		logger:   logger,
		crm:      crm,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The carrier connects server-to-server with no origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	h.dial = func(ctx context.Context) (ModelConn, error) {
		return internal_realtime.Dial(ctx, internal_realtime.Config{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIRealtimeModel,
		}, logger)
	}
	return h
}

// carrierWriter serializes outbound media writes onto one websocket.
type carrierWriter struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	streamSid string
}

func (w *carrierWriter) WriteMedia(frame []byte) error {
	msg, err := EncodeOutboundMedia(w.streamSid, frame)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, msg)
}

// MediaStream is the gin endpoint for the carrier's audio websocket. One
// connection carries one call: a start event, a media stream, and a stop.
func (h *Handler) MediaStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnw("media stream upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	h.serveStream(c.Request.Context(), conn)
}

// serveStream runs the carrier read loop for one connection.
func (h *Handler) serveStream(ctx context.Context, conn *websocket.Conn) {
	var call *internal_call.Call
	var streamSid string

	defer func() {
		if call != nil {
			call.End("carrier_disconnect")
			h.registry.Delete(streamSid)
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debugf("carrier read ended: %s", err.Error())
			}
			return
		}

		event, err := DecodeStreamEvent(message)
		if err != nil {
			h.logger.Warnw("dropping malformed carrier message", "error", err.Error())
			continue
		}

		switch event.Event {
		case EventStart:
			if event.Start == nil || call != nil {
				h.logger.Warnw("unexpected start event", "stream_sid", streamSid)
				continue
			}
			streamSid = event.Start.StreamSid
			call = h.startCall(ctx, conn, event.Start)
			if call == nil {
				return
			}
		case EventMedia:
			if call == nil || event.Media == nil {
				continue
			}
			if event.Media.Track == TrackOutbound {
				// Echo of our own audio.
				continue
			}
			frame, err := base64.StdEncoding.DecodeString(event.Media.Payload)
			if err != nil {
				h.logger.Debugf("dropping undecodable media payload: %s", err.Error())
				continue
			}
			call.HandleInboundFrame(frame)
		case EventStop:
			if call != nil {
				call.End("carrier_stop")
			}
			return
		default:
			h.logger.Debugf("ignoring carrier event %q", event.Event)
		}
	}
}

// startCall assembles the call: context snapshot, engine, model link.
// A nil return means the stream is unusable and should close.
func (h *Handler) startCall(ctx context.Context, conn *websocket.Conn, start *StartPayload) *internal_call.Call {
	h.logger.Infow("media stream started",
		"stream_sid", start.StreamSid,
		"call_sid", start.CallSid,
		"session_id", start.SessionID(),
		"lead_id", start.LeadID())

	callCtx, err := h.crm.GetContext(ctx, start.SessionID(), start.LeadID(), start.CallSid)
	if err != nil {
		h.logger.Errorf("context fetch failed for call %s: %s", start.CallSid, err.Error())
		callCtx = &internal_callcontext.CallContext{
			SessionID: start.SessionID(),
			LeadID:    start.LeadID(),
		}
	}

	writer := &carrierWriter{conn: conn, streamSid: start.StreamSid}
	call := internal_call.NewCall(ctx, h.cfg, h.logger, start.StreamSid, start.CallSid, callCtx, writer, h.crm)
	h.registry.Insert(start.StreamSid, call)

	model, err := h.dial(ctx)
	if err != nil {
		h.logger.Errorf("model dial failed for call %s: %s", start.CallSid, err.Error())
		call.End("model_dial_failed")
		h.registry.Delete(start.StreamSid)
		return nil
	}
	call.AttachModel(model)

	if err := model.SendSessionUpdate(internal_realtime.SessionParams{
		Instructions: sessionInstructions(callCtx),
		Voice:        voiceID(callCtx),
		Temperature:  internal_call.ResponseTemperature,
	}); err != nil {
		h.logger.Errorf("session update failed for call %s: %s", start.CallSid, err.Error())
		call.End("session_update_failed")
		h.registry.Delete(start.StreamSid)
		return nil
	}

	utils.Go(ctx, func() {
		if err := model.Listen(ctx, call.HandleModelEvent); err != nil {
			h.logger.Warnw("model listen ended",
				"call_sid", call.CallSID, "error", err.Error())
		}
		call.End("model_disconnect")
	})

	return call
}

// DecodeStreamEvent parses one carrier websocket message.
func DecodeStreamEvent(message []byte) (*StreamEvent, error) {
	var event StreamEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
