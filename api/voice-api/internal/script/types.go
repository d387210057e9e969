// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_script

// StepType classifies what kind of utterance a step is, which drives how
// the turn gate judges the caller's answer to it.
type StepType string

const (
	StepTimeQuestion  StepType = "time_question"
	StepYesNoQuestion StepType = "yesno_question"
	StepOpenQuestion  StepType = "open_question"
	StepStatement     StepType = "statement"
)

// Step is a single literal line the assistant is permitted to speak on one
// turn. Flags are derived once at extraction; steps are immutable after
// the script is built.
type Step struct {
	Text string
	Type StepType

	// IsExactTimeQuestion marks steps that require a clock time before the
	// cursor may advance ("what time works best").
	IsExactTimeQuestion bool

	// IsDayChoiceQuestion marks the broad "today or tomorrow" step.
	IsDayChoiceQuestion bool
}

// Script is the ordered step sequence for one call. Built once from the
// context's script key; immutable thereafter.
type Script struct {
	Key   string
	Steps []Step
}

// Len returns the number of steps.
func (s *Script) Len() int { return len(s.Steps) }

// StepAt returns the step at index i, clamped into range so a cursor can
// never read past the end of the script.
func (s *Script) StepAt(i int) Step {
	if len(s.Steps) == 0 {
		return Step{Text: FallbackBookingLine, Type: StepTimeQuestion, IsDayChoiceQuestion: true}
	}
	if i < 0 {
		i = 0
	}
	if i >= len(s.Steps) {
		i = len(s.Steps) - 1
	}
	return s.Steps[i]
}

// BookingStepIndex is the canonical position of the day-choice booking
// question within every script. Rebuttals that end on the booking question
// fast-forward the cursor here.
const BookingStepIndex = 2

// BookingStep returns the index of the day-choice booking question,
// located by its derived flag so edited scripts still realign correctly.
// Falls back to the canonical index when no step carries the flag.
func (s *Script) BookingStep() int {
	for i, step := range s.Steps {
		if step.IsDayChoiceQuestion {
			return i
		}
	}
	idx := BookingStepIndex
	if idx >= len(s.Steps) && len(s.Steps) > 0 {
		idx = len(s.Steps) - 1
	}
	return idx
}

// DayHint is the caller's (or default) day preference for a time offer.
type DayHint string

const (
	DayNone     DayHint = ""
	DayToday    DayHint = "today"
	DayTomorrow DayHint = "tomorrow"
)

// Window names a block of the day used by the time-offer ladder.
type Window string

const (
	WindowNone          Window = ""
	WindowMorning       Window = "morning"
	WindowLateMorning   Window = "late_morning"
	WindowAfternoon     Window = "afternoon"
	WindowMidAfternoon  Window = "mid_afternoon"
	WindowLateAfternoon Window = "late_afternoon"
	WindowEvening       Window = "evening"
	WindowLateEvening   Window = "late_evening"
)

// OfferedTime is one concrete clock time the ladder put in front of the
// caller. Recorded so a bare "2" or "the later one" can be resolved
// against the pair.
type OfferedTime struct {
	Hour   int // 0-23
	Minute int
	Day    DayHint
}
