// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package crm_client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	internal_callcontext "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/callcontext"
	"github.com/brysonmccleary/CoveCRM-sub002/config"
	"github.com/brysonmccleary/CoveCRM-sub002/pkg/commons"
	"github.com/brysonmccleary/CoveCRM-sub002/pkg/utils"
)

// CoveCRMClient is the JSON-over-HTTPS control plane the voice core talks
// to. Every endpoint is idempotent on the CRM side; failures are logged by
// callers and never retried here — the model may re-emit a control block.
type CoveCRMClient interface {
	GetContext(ctx context.Context, sessionID, leadID, callSid string) (*internal_callcontext.CallContext, error)
	BookAppointment(ctx context.Context, req *BookAppointmentRequest) (*BookAppointmentResponse, error)
	PostOutcome(ctx context.Context, req *OutcomeRequest) (*OutcomeResponse, error)
	PostUsage(ctx context.Context, req *UsageRequest) error
}

// BookAppointmentRequest is the payload for POST /book-appointment.
type BookAppointmentRequest struct {
	AICallSessionID string `json:"aiCallSessionId"`
	LeadID          string `json:"leadId"`
	StartTimeUTC    string `json:"startTimeUtc"`
	DurationMinutes int    `json:"durationMinutes"`
	LeadTimeZone    string `json:"leadTimeZone"`
	AgentTimeZone   string `json:"agentTimeZone"`
	Notes           string `json:"notes,omitempty"`
	Source          string `json:"source"`
}

// BookAppointmentResponse mirrors the CRM booking reply.
type BookAppointmentResponse struct {
	OK      bool   `json:"ok"`
	EventID string `json:"eventId"`
}

// OutcomeRequest is the payload for POST /outcome.
type OutcomeRequest struct {
	AICallSessionID string `json:"aiCallSessionId"`
	LeadID          string `json:"leadId"`
	CallSid         string `json:"callSid,omitempty"`
	Outcome         string `json:"outcome"`
	Summary         string `json:"summary,omitempty"`
}

// OutcomeResponse mirrors the CRM outcome reply.
type OutcomeResponse struct {
	OK      bool   `json:"ok"`
	Outcome string `json:"outcome"`
	Moved   bool   `json:"moved"`
}

// UsageRequest bills vendor minutes for one finished call.
type UsageRequest struct {
	AICallSessionID string  `json:"aiCallSessionId"`
	CallSid         string  `json:"callSid,omitempty"`
	Minutes         int     `json:"minutes"`
	VendorCostUSD   float64 `json:"vendorCostUsd"`
	ReportID        string  `json:"reportId"`
}

type contextEnvelope struct {
	OK      bool                              `json:"ok"`
	Context *internal_callcontext.CallContext `json:"context"`
	Error   string                            `json:"error,omitempty"`
}

type coveCRMClient struct {
	cfg    *config.AppConfig
	logger commons.Logger
	http   *resty.Client
}

// NewCoveCRMClient builds the shared CRM client. One instance serves every
// call; resty's client is safe for concurrent use.
func NewCoveCRMClient(cfg *config.AppConfig, logger commons.Logger) CoveCRMClient {
	client := resty.New().
		SetBaseURL(cfg.CoveCRMBaseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &coveCRMClient{cfg: cfg, logger: logger, http: client}
}

// GetContext fetches the immutable call snapshot. The cron key rides both
// as a query parameter and a header; the CRM accepts either.
func (c *coveCRMClient) GetContext(ctx context.Context, sessionID, leadID, callSid string) (*internal_callcontext.CallContext, error) {
	var envelope contextEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"sessionId": sessionID,
			"leadId":    leadID,
			"callSid":   callSid,
			"key":       c.cfg.DialerCronKey,
		}).
		SetHeader(utils.DialerKeyHeader, c.cfg.DialerCronKey).
		SetResult(&envelope).
		Get("/context")
	if err != nil {
		return nil, fmt.Errorf("crm context fetch: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("crm context fetch: status %d", resp.StatusCode())
	}
	if !envelope.OK || envelope.Context == nil {
		return nil, fmt.Errorf("crm context fetch: not ok (%s)", envelope.Error)
	}
	return envelope.Context, nil
}

// BookAppointment posts an admitted booking to the CRM calendar.
func (c *coveCRMClient) BookAppointment(ctx context.Context, req *BookAppointmentRequest) (*BookAppointmentResponse, error) {
	var result BookAppointmentResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.cfg.DialerCronKey).
		SetHeader(utils.DialerKeyHeader, c.cfg.DialerCronKey).
		SetBody(req).
		SetResult(&result).
		Post("/book-appointment")
	if err != nil {
		return nil, fmt.Errorf("crm book appointment: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("crm book appointment: status %d", resp.StatusCode())
	}
	if !result.OK {
		return nil, fmt.Errorf("crm book appointment: not ok")
	}
	return &result, nil
}

// PostOutcome reports the terminal disposition of a call.
func (c *coveCRMClient) PostOutcome(ctx context.Context, req *OutcomeRequest) (*OutcomeResponse, error) {
	var result OutcomeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(utils.AgentKeyHeader, c.cfg.DialerAgentKey).
		SetBody(req).
		SetResult(&result).
		Post("/outcome")
	if err != nil {
		return nil, fmt.Errorf("crm outcome: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("crm outcome: status %d", resp.StatusCode())
	}
	return &result, nil
}

// PostUsage bills vendor minutes for one call.
func (c *coveCRMClient) PostUsage(ctx context.Context, req *UsageRequest) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(utils.AgentKeyHeader, c.cfg.DialerAgentKey).
		SetBody(req).
		Post("/usage")
	if err != nil {
		return fmt.Errorf("crm usage: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("crm usage: status %d", resp.StatusCode())
	}
	return nil
}
