// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/brysonmccleary/CoveCRM-sub002/pkg/commons"
)

// Canary dials the model endpoint, waits for the session handshake, and
// discards the session. Run before the server starts listening so a bad
// key or model name fails loudly at deploy time instead of silently on the
// first live call.
func Canary(ctx context.Context, cfg Config, logger commons.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	started := time.Now()
	client, err := Dial(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("startup canary: %w", err)
	}
	defer client.Close()

	ready := make(chan struct{})
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- client.Listen(ctx, func(event *ServerEvent) {
			switch event.Type {
			case EventSessionCreated, EventSessionUpdated:
				select {
				case <-ready:
				default:
					close(ready)
				}
			case EventError:
				// surfaced by timeout below
				logger.Warnw("canary received model error",
					"message", errMessage(event))
			}
		})
	}()

	select {
	case <-ready:
		logger.Benchmark("realtime-canary-handshake", time.Since(started))
		logger.Infow("startup canary passed", "model", cfg.Model)
		return nil
	case err := <-listenErr:
		if err == nil {
			return fmt.Errorf("startup canary: connection closed before handshake")
		}
		return fmt.Errorf("startup canary: connection closed before handshake: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("startup canary: no session handshake: %w", ctx.Err())
	}
}

func errMessage(event *ServerEvent) string {
	if event.Error != nil {
		return event.Error.Message
	}
	return "unknown"
}
