// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_callcontext

import (
	"strings"
)

// Canonical script keys. Unknown keys fall back to generic_life.
const (
	ScriptMortgageProtection = "mortgage_protection"
	ScriptFinalExpense       = "final_expense"
	ScriptIULCashValue       = "iul_cash_value"
	ScriptVeteranLeads       = "veteran_leads"
	ScriptTruckerLeads       = "trucker_leads"
	ScriptGenericLife        = "generic_life"
)

// VoiceProfile is the assistant identity the model speaks with.
type VoiceProfile struct {
	AssistantName string `json:"assistantName"`
	VoiceID       string `json:"voiceId"`
}

// CallContext is the immutable per-call snapshot fetched from the CRM
// before (or as) the media stream starts. Nothing here mutates after load;
// it is shared read-only across every component of the call.
type CallContext struct {
	SessionID     string       `json:"sessionId"`
	UserEmail     string       `json:"userEmail"`
	AgentName     string       `json:"agentName"`
	AgentTimeZone string       `json:"agentTimeZone"`
	LeadID        string       `json:"leadId"`
	LeadFirstName string       `json:"leadFirstName"`
	LeadTimeZone  string       `json:"leadTimeZone"`
	LeadPhone     string       `json:"leadPhone"`
	LeadEmail     string       `json:"leadEmail"`
	ScriptKey     string       `json:"scriptKey"`
	Voice         VoiceProfile `json:"voice"`
	Notes         string       `json:"notes"`

	// AnsweredBy is the carrier answering-machine-detection hint. It may be
	// refreshed pre-greeting; "machine"/"fax"/"voicemail" values arm the
	// voicemail guard.
	AnsweredBy string `json:"answeredBy"`
}

// NormalizedScriptKey maps the context script key onto the canonical set.
func (cc *CallContext) NormalizedScriptKey() string {
	switch strings.ToLower(strings.TrimSpace(cc.ScriptKey)) {
	case ScriptMortgageProtection:
		return ScriptMortgageProtection
	case ScriptFinalExpense:
		return ScriptFinalExpense
	case ScriptIULCashValue:
		return ScriptIULCashValue
	case ScriptVeteranLeads:
		return ScriptVeteranLeads
	case ScriptTruckerLeads:
		return ScriptTruckerLeads
	default:
		return ScriptGenericLife
	}
}

// IsMachineAnswered reports whether the answering-machine hint indicates a
// non-human pickup.
func (cc *CallContext) IsMachineAnswered() bool {
	v := strings.ToLower(cc.AnsweredBy)
	return strings.Contains(v, "machine") ||
		strings.Contains(v, "fax") ||
		strings.Contains(v, "voicemail")
}

// FirstName returns the lead first name, or a safe fallback for the
// greeting line.
func (cc *CallContext) FirstName() string {
	if name := strings.TrimSpace(cc.LeadFirstName); name != "" {
		return name
	}
	return "there"
}
