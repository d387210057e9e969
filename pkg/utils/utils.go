// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package utils

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
)

// Shared-secret header names for the CRM control plane.
const (
	DialerKeyHeader = "x-ai-dialer-key"
	AgentKeyHeader  = "x-agent-key"
)

// Go runs fn on a new goroutine with panic recovery. A panicking call path
// must never take down the process; the stack is written to stderr and the
// goroutine exits.
func Go(ctx context.Context, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(os.Stderr, "recovered panic in goroutine: %v\n%s", r, debug.Stack())
			}
		}()
		select {
		case <-ctx.Done():
			return
		default:
		}
		fn()
	}()
}

// FirstNonEmpty returns the first non-empty string among vs.
func FirstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
