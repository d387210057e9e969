// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brysonmccleary/CoveCRM-sub002/pkg/commons"
)

const (
	DefaultBaseURL = "wss://api.openai.com/v1/realtime"

	// Server VAD tuning. create_response stays false: the turn gate alone
	// decides when the model speaks.
	vadSilenceDurationMs = 550
	vadPrefixPaddingMs   = 300
)

// Config carries the model credentials and endpoint.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// SessionParams is everything sent on the initial session.update.
type SessionParams struct {
	Instructions string
	Voice        string
	Temperature  float64
}

// Client is the long-lived websocket link to the realtime speech model.
// Writes are serialized by writeMu; reads happen on a single Listen loop.
type Client struct {
	logger commons.Logger
	conn   *websocket.Conn

	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
}

// Dial opens the model websocket. The caller owns the returned client and
// must Close it on call termination.
func Dial(ctx context.Context, cfg Config, logger commons.Logger) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	wsURL := fmt.Sprintf("%s?model=%s", baseURL, cfg.Model)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+cfg.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("realtime dial: %w", err)
	}
	conn.SetReadLimit(10 * 1024 * 1024)

	return &Client{logger: logger, conn: conn}, nil
}

// Listen reads model events until the connection or context dies, invoking
// handler for each decoded event. Malformed messages are logged and
// skipped. Listen returns nil on a normal close.
func (c *Client) Listen(ctx context.Context, handler func(*ServerEvent)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debugf("realtime connection closed normally")
				return nil
			}
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("realtime read: %w", err)
		}

		var event ServerEvent
		if err := json.Unmarshal(message, &event); err != nil {
			c.logger.Warnw("dropping undecodable realtime event", "error", err.Error())
			continue
		}
		handler(&event)
	}
}

// SendSessionUpdate configures the session: duplex g711 μ-law, input
// transcription on, server VAD that never auto-creates responses.
func (c *Client) SendSessionUpdate(params SessionParams) error {
	return c.send(map[string]interface{}{
		"type": "session.update",
		"session": map[string]interface{}{
			"instructions":        params.Instructions,
			"modalities":          []string{"audio", "text"},
			"voice":               params.Voice,
			"temperature":         params.Temperature,
			"input_audio_format":  "g711_ulaw",
			"output_audio_format": "g711_ulaw",
			"input_audio_transcription": map[string]interface{}{
				"model": "whisper-1",
			},
			"turn_detection": map[string]interface{}{
				"type":                "server_vad",
				"create_response":     false,
				"silence_duration_ms": vadSilenceDurationMs,
				"prefix_padding_ms":   vadPrefixPaddingMs,
			},
		},
	})
}

// AppendAudio forwards raw μ-law bytes to the input buffer.
func (c *Client) AppendAudio(mulaw []byte) error {
	return c.AppendAudioB64(base64.StdEncoding.EncodeToString(mulaw))
}

// AppendAudioB64 forwards an already base64-encoded μ-law payload.
func (c *Client) AppendAudioB64(payload string) error {
	return c.send(map[string]interface{}{
		"type":  "input_audio_buffer.append",
		"audio": payload,
	})
}

// CommitInput force-commits the input buffer (watchdog path; the server
// normally commits on VAD stop).
func (c *Client) CommitInput() error {
	return c.send(map[string]interface{}{"type": "input_audio_buffer.commit"})
}

// ClearInput drops any buffered input audio upstream.
func (c *Client) ClearInput() error {
	return c.send(map[string]interface{}{"type": "input_audio_buffer.clear"})
}

// CreateResponse asks the model to speak exactly the instructed line.
func (c *Client) CreateResponse(instructions string, temperature float64) error {
	return c.send(map[string]interface{}{
		"type": "response.create",
		"response": map[string]interface{}{
			"modalities":   []string{"audio", "text"},
			"temperature":  temperature,
			"instructions": instructions,
		},
	})
}

// CancelResponse aborts the in-flight response. Idempotent on the server;
// late deltas after a cancel are the caller's race to guard.
func (c *Client) CancelResponse() error {
	return c.send(map[string]interface{}{"type": "response.cancel"})
}

func (c *Client) send(message interface{}) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("realtime send: connection closed")
	}
	c.mu.Unlock()

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("realtime marshal: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("realtime write: %w", err)
	}
	return nil
}

// Close sends a best-effort close frame and tears the connection down.
// Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	c.writeMu.Unlock()
	return c.conn.Close()
}
