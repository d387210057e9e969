// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_script

import (
	internal_callcontext "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/callcontext"
)

// Script templates, one per canonical script key. The stepper only speaks
// the quoted lines; the surrounding prose is operator guidance carried over
// from the playbooks. Every script keeps the same shape: greeting, one
// qualifier, the day-choice booking question at index 2, the exact-time
// question, then the confirm line.
var scriptTemplates = map[string]string{
	internal_callcontext.ScriptMortgageProtection: `
Greeting. Say: "Hey {firstName}, this is {assistantName} with the mortgage protection desk. You'd requested info on protecting your mortgage in case something happens to you. I'm just the scheduler here, it'll be quick."
Qualify the request. Then ask: "Did you still want to look at options that would pay off the house if something happened to you?"
Book the day. Then ask: "Would today or tomorrow be better for a quick call to go over your options?"
Book the time. Then ask: "What time works best for you?"
Confirm. Then say: "Perfect, I'll have {agentName} give you a call then. They'll only need about ten minutes."
`,

	internal_callcontext.ScriptFinalExpense: `
Greeting. Say: "Hey {firstName}, this is {assistantName} following up on the final expense program you'd asked about. This is just a quick scheduling call."
Qualify. Then ask: "Were you still looking to make sure the family wouldn't be stuck with funeral costs?"
Book the day. Then ask: "Would today or tomorrow be better for a quick call to go over your options?"
Book the time. Then ask: "What time works best for you?"
Confirm. Then say: "Great, {agentName} will call you then and walk you through it. Takes about ten minutes."
`,

	internal_callcontext.ScriptIULCashValue: `
Greeting. Say: "Hey {firstName}, this is {assistantName} with the retirement and cash value desk. You'd asked about a plan that builds cash value while it protects the family."
Qualify. Then ask: "Are you still interested in something that grows tax-advantaged on the side?"
Book the day. Then ask: "Would today or tomorrow be better for a quick call to go over your options?"
Book the time. Then ask: "What time works best for you?"
Confirm. Then say: "Perfect, I'll have {agentName} call you then to run the numbers with you."
`,

	internal_callcontext.ScriptVeteranLeads: `
Greeting. Say: "Hey {firstName}, this is {assistantName} with the veteran benefits desk. You'd sent in a request about the life insurance programs available to veterans and their families."
Qualify. Then ask: "Did you serve yourself, or was it a family member?"
Book the day. Then ask: "Would today or tomorrow be better for a quick call to go over your options?"
Book the time. Then ask: "What time works best for you?"
Confirm. Then say: "Thank you. {agentName} works with veteran families every day and will call you then."
`,

	internal_callcontext.ScriptTruckerLeads: `
Greeting. Say: "Hey {firstName}, this is {assistantName} with the driver protection desk. You'd asked about coverage that stays with you even when you switch carriers or go owner-op."
Qualify. Then ask: "Are you still driving over-the-road right now?"
Book the day. Then ask: "Would today or tomorrow be better for a quick call to go over your options?"
Book the time. Then ask: "What time works best for you?"
Confirm. Then say: "Perfect, {agentName} will give you a call then. Ten minutes, no paperwork on the call."
`,

	internal_callcontext.ScriptGenericLife: `
Greeting. Say: "Hey {firstName}, this is {assistantName} following up on the life insurance info you'd requested. I'm just the scheduler, this will be quick."
Qualify. Then ask: "Were you still wanting to get some coverage in place for the family?"
Book the day. Then ask: "Would today or tomorrow be better for a quick call to go over your options?"
Book the time. Then ask: "What time works best for you?"
Confirm. Then say: "Perfect, I'll have {agentName} give you a call then."
`,
}
