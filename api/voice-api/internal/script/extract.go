// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_script

import (
	"regexp"
	"strings"

	internal_callcontext "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/callcontext"
)

// FallbackBookingLine is spoken when a script yields no steps, when the
// anti-loop guard trips, or when the discovery cap replaces a line.
const FallbackBookingLine = "Would today or tomorrow be better for a quick call to go over your options?"

// Ordered extraction patterns. Scripts are written as prose with quoted
// utterances; only the quoted text becomes a step.
var stepPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Say:\s*"([^"]+)"`),
	regexp.MustCompile(`(?i)Then ask:\s*"([^"]+)"`),
	regexp.MustCompile(`(?i)Then say:\s*"([^"]+)"`),
}

// ExtractSteps parses a scripted text block into an ordered, de-duplicated
// step sequence. Extraction walks the block once and keeps the document
// order of matches regardless of which pattern produced them.
func ExtractSteps(raw string) []Step {
	type match struct {
		pos  int
		text string
	}
	var matches []match
	for _, pattern := range stepPatterns {
		for _, loc := range pattern.FindAllStringSubmatchIndex(raw, -1) {
			text := strings.TrimSpace(raw[loc[2]:loc[3]])
			if text == "" {
				continue
			}
			matches = append(matches, match{pos: loc[0], text: text})
		}
	}

	// Stable order by position in the source block.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].pos < matches[j-1].pos; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}

	seen := make(map[string]bool, len(matches))
	steps := make([]Step, 0, len(matches))
	for _, m := range matches {
		key := strings.ToLower(m.text)
		if seen[key] {
			continue
		}
		seen[key] = true
		steps = append(steps, NewStep(m.text))
	}
	return steps
}

// NewStep builds a Step with its derived type and flags.
func NewStep(text string) Step {
	st := ClassifyStepType(text)
	return Step{
		Text:                text,
		Type:                st,
		IsExactTimeQuestion: st == StepTimeQuestion && isExactTimeQuestion(text),
		IsDayChoiceQuestion: st == StepTimeQuestion && isDayChoiceQuestion(text),
	}
}

// Time cue words checked before any other classification.
var timeCues = []string{
	"what time", "today or tomorrow", "morning or afternoon", "time works",
	"time work", "good time", "best time", "time of day", "when works",
	"when would", "schedule", "lock in",
}

// yes/no interrogative openers.
var yesNoCues = []string{
	"did ", "do you", "were you", "are you", "is this", "is that", "would you",
	"can you", "could you", "have you", "does ",
}

// ClassifyStepType classifies a line by lowercased substring matching in
// priority order: time cues, then question-mark or yes/no openers, else
// statement.
func ClassifyStepType(text string) StepType {
	lower := strings.ToLower(text)
	for _, cue := range timeCues {
		if strings.Contains(lower, cue) {
			return StepTimeQuestion
		}
	}
	isQuestion := strings.Contains(lower, "?")
	for _, cue := range yesNoCues {
		if strings.Contains(lower, cue) {
			return StepYesNoQuestion
		}
	}
	if isQuestion {
		return StepOpenQuestion
	}
	return StepStatement
}

func isExactTimeQuestion(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "what time") ||
		strings.Contains(lower, "time works best") ||
		strings.Contains(lower, "time of day")
}

func isDayChoiceQuestion(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "today or tomorrow")
}

// ScriptFor builds the immutable per-call Script from the context: pick the
// template by script key, substitute identity placeholders, extract steps.
// An empty extraction falls back to a single safe booking line.
func ScriptFor(cc *internal_callcontext.CallContext) *Script {
	key := cc.NormalizedScriptKey()
	template, ok := scriptTemplates[key]
	if !ok {
		template = scriptTemplates[internal_callcontext.ScriptGenericLife]
	}

	replacer := strings.NewReplacer(
		"{firstName}", cc.FirstName(),
		"{agentName}", agentFirstName(cc.AgentName),
		"{assistantName}", AssistantDisplayName(cc.Voice.AssistantName),
	)
	steps := ExtractSteps(replacer.Replace(template))
	if len(steps) == 0 {
		steps = []Step{NewStep(FallbackBookingLine)}
	}
	return &Script{Key: key, Steps: steps}
}

// AssistantDisplayName is the name the assistant introduces itself with.
// Spoken lines and the per-turn name lock must agree on it.
func AssistantDisplayName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "Alex"
}

func agentFirstName(full string) string {
	full = strings.TrimSpace(full)
	if full == "" {
		return "your agent"
	}
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}
