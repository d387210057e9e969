// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_call

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	crm_client "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/crm"
	"github.com/brysonmccleary/CoveCRM-sub002/config"
	"github.com/brysonmccleary/CoveCRM-sub002/pkg/commons"
)

// UsageReporter bills vendor minutes for one call, exactly once, on
// termination. Minutes round up; a connected call is never billed zero.
type UsageReporter struct {
	once   sync.Once
	cfg    *config.AppConfig
	crm    crm_client.CoveCRMClient
	logger commons.Logger
}

func NewUsageReporter(cfg *config.AppConfig, crm crm_client.CoveCRMClient, logger commons.Logger) *UsageReporter {
	return &UsageReporter{cfg: cfg, crm: crm, logger: logger}
}

// Report posts the billable minutes for the call. Safe to call from every
// teardown path; only the first invocation does work.
func (u *UsageReporter) Report(ctx context.Context, sessionID, callSID string, started, ended time.Time) {
	u.once.Do(func() {
		minutes := BillableMinutes(started, ended)
		if minutes == 0 {
			return
		}
		req := &crm_client.UsageRequest{
			AICallSessionID: sessionID,
			CallSid:         callSID,
			Minutes:         minutes,
			VendorCostUSD:   float64(minutes) * u.cfg.VendorCostPerMinUSD,
			ReportID:        uuid.NewString(),
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := u.crm.PostUsage(ctx, req); err != nil {
			u.logger.Errorf("usage post failed for session %s: %s", sessionID, err.Error())
			return
		}
		u.logger.Infow("usage reported",
			"session_id", sessionID,
			"call_sid", callSID,
			"minutes", minutes,
			"vendor_cost_usd", req.VendorCostUSD,
			"report_id", req.ReportID)
	})
}

// BillableMinutes is the ceiling of the call duration in minutes. Zero or
// negative durations bill nothing.
func BillableMinutes(started, ended time.Time) int {
	d := ended.Sub(started)
	if d <= 0 {
		return 0
	}
	minutes := int(d / time.Minute)
	if d%time.Minute > 0 {
		minutes++
	}
	return minutes
}
