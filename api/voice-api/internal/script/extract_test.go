// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_callcontext "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/callcontext"
)

func TestExtractSteps_OrderAndDedup(t *testing.T) {
	raw := `
Intro. Say: "Hello there."
Then ask: "Did you still want coverage?"
Then say: "Hello there."
Then ask: "What time works best for you?"
`
	steps := ExtractSteps(raw)
	require.Len(t, steps, 3)
	assert.Equal(t, "Hello there.", steps[0].Text)
	assert.Equal(t, "Did you still want coverage?", steps[1].Text)
	assert.Equal(t, "What time works best for you?", steps[2].Text)
}

func TestExtractSteps_Empty(t *testing.T) {
	assert.Empty(t, ExtractSteps("no quoted lines here"))
}

func TestClassifyStepType(t *testing.T) {
	tests := []struct {
		text     string
		expected StepType
	}{
		{"What time works best for you?", StepTimeQuestion},
		{"Would today or tomorrow be better for a quick call?", StepTimeQuestion},
		{"Did you still want to look at options?", StepYesNoQuestion},
		{"Do you still own the home?", StepYesNoQuestion},
		{"Were you still looking at coverage?", StepYesNoQuestion},
		{"What made you send in the request?", StepOpenQuestion},
		{"Hey Sam, this is Alex with the scheduling desk.", StepStatement},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyStepType(tt.text))
		})
	}
}

func TestNewStep_Flags(t *testing.T) {
	exact := NewStep("What time works best for you?")
	assert.True(t, exact.IsExactTimeQuestion)
	assert.False(t, exact.IsDayChoiceQuestion)

	day := NewStep("Would today or tomorrow be better for a quick call?")
	assert.True(t, day.IsDayChoiceQuestion)
	assert.False(t, day.IsExactTimeQuestion)
}

func TestScriptFor_AllKeysShareShape(t *testing.T) {
	keys := []string{
		internal_callcontext.ScriptMortgageProtection,
		internal_callcontext.ScriptFinalExpense,
		internal_callcontext.ScriptIULCashValue,
		internal_callcontext.ScriptVeteranLeads,
		internal_callcontext.ScriptTruckerLeads,
		internal_callcontext.ScriptGenericLife,
	}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			cc := &internal_callcontext.CallContext{
				ScriptKey:     key,
				LeadFirstName: "Sam",
				AgentName:     "Jordan Reyes",
			}
			script := ScriptFor(cc)
			require.GreaterOrEqual(t, script.Len(), 5)
			assert.Equal(t, StepStatement, script.StepAt(0).Type, "step 0 is the greeting")
			assert.True(t, script.StepAt(BookingStepIndex).IsDayChoiceQuestion, "step 2 is the day-choice booking question")
			assert.True(t, script.StepAt(3).IsExactTimeQuestion, "step 3 requires an exact time")
			assert.Contains(t, script.StepAt(0).Text, "Sam")
			assert.Contains(t, script.StepAt(4).Text, "Jordan")
		})
	}
}

func TestScriptFor_Deterministic(t *testing.T) {
	cc := &internal_callcontext.CallContext{
		ScriptKey:     internal_callcontext.ScriptMortgageProtection,
		LeadFirstName: "Sam",
		AgentName:     "Jordan",
	}
	a := ScriptFor(cc)
	b := ScriptFor(cc)
	require.Equal(t, a.Len(), b.Len())
	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, a.StepAt(i), b.StepAt(i))
	}
}

func TestScriptFor_GreetingUsesContextAssistantName(t *testing.T) {
	cc := &internal_callcontext.CallContext{
		ScriptKey:     internal_callcontext.ScriptFinalExpense,
		LeadFirstName: "Sam",
		AgentName:     "Jordan Reyes",
		Voice:         internal_callcontext.VoiceProfile{AssistantName: "Maya"},
	}
	script := ScriptFor(cc)
	greeting := script.StepAt(0).Text
	assert.Contains(t, greeting, "this is Maya")
	assert.NotContains(t, greeting, "Alex")
	assert.NotContains(t, greeting, "{assistantName}")
}

func TestAssistantDisplayName(t *testing.T) {
	assert.Equal(t, "Maya", AssistantDisplayName(" Maya "))
	assert.Equal(t, "Alex", AssistantDisplayName(""))
	assert.Equal(t, "Alex", AssistantDisplayName("   "))
}

func TestBookingStep_LocatedByFlag(t *testing.T) {
	script := &Script{Key: "x", Steps: []Step{
		NewStep("Hey Sam, quick intro line."),
		NewStep("Would today or tomorrow be better for a quick call?"),
		NewStep("What time works best for you?"),
	}}
	assert.Equal(t, 1, script.BookingStep())

	noFlag := &Script{Key: "y", Steps: []Step{
		NewStep("Just a line."),
		NewStep("Another line."),
	}}
	assert.Equal(t, 1, noFlag.BookingStep(), "falls back to the clamped canonical index")
}

func TestScriptFor_UnknownKeyFallsBack(t *testing.T) {
	cc := &internal_callcontext.CallContext{ScriptKey: "mystery_key"}
	script := ScriptFor(cc)
	assert.Equal(t, internal_callcontext.ScriptGenericLife, script.Key)
	assert.GreaterOrEqual(t, script.Len(), 5)
}

func TestStepAt_Clamped(t *testing.T) {
	script := &Script{Key: "x", Steps: []Step{NewStep("Only line.")}}
	assert.Equal(t, "Only line.", script.StepAt(-3).Text)
	assert.Equal(t, "Only line.", script.StepAt(99).Text)
}
