// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_call

import (
	"strings"
	"time"

	internal_script "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/script"
)

// handleCommittedTurn is the turn-gate entry point, run on every
// input_audio_buffer.committed. The rules execute in order; the first match
// wins. A committed turn is never silently discarded while the assistant is
// busy: it parks as the single pending turn and replays later.
func (c *Call) handleCommittedTurn(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseEnded || c.voicemailSkipArmed {
		return
	}

	audioMs := c.speechAudioMs
	c.speechAudioMs = 0

	// Rule 1: ignore commits before the greeting has made a sound.
	if c.phase == PhaseAwaitingGreetingReply && c.aiAudioStartedAt.IsZero() && c.lastAiDoneAt.IsZero() {
		c.logger.Debugf("ignoring pre-greeting commit call_sid=%s", c.CallSID)
		return
	}

	// Rule 2: assistant busy, park the turn.
	if c.responseInFlight || c.waitingForResponse || c.aiSpeaking {
		c.storePendingLocked(itemID, audioMs)
		return
	}

	text := strings.TrimSpace(c.bestTranscriptLocked(itemID))

	// Rule 3: low signal. A genuine recent utterance waits for its
	// transcript; noise just bumps a counter.
	if audioMs < signalFloorMs && text == "" {
		if c.spokeRecentlyLocked() {
			c.storePendingLocked(itemID, audioMs)
		} else {
			c.lowSignalCount++
			c.logger.Debugf("low-signal commit dropped call_sid=%s count=%d", c.CallSID, c.lowSignalCount)
		}
		return
	}

	// Rule 4: filler gets a grace window before the gate reacts. An empty
	// transcript is not filler here; audio-only turns fall through so a
	// long yes/no answer can still qualify.
	if text != "" && internal_script.IsFiller(text) && audioMs < fillerMaxAudioMs {
		c.armFillerGraceLocked(itemID, audioMs)
		return
	}

	c.processTurnLocked(itemID, text, audioMs)
}

// bestTranscriptLocked prefers the per-item completed transcript, then the
// per-item partial, then the last known transcript scalar.
func (c *Call) bestTranscriptLocked(itemID string) string {
	if tr := c.transcripts[itemID]; tr != nil {
		if tr.done && tr.completed != "" {
			return tr.completed
		}
		if tr.partial != "" {
			return tr.partial
		}
	}
	return c.lastTranscript
}

func (c *Call) spokeRecentlyLocked() bool {
	if c.lastSpeechStoppedAt.IsZero() || c.lastSpeechStartedAt.IsZero() {
		return false
	}
	if c.now().Sub(c.lastSpeechStoppedAt) > recentSpeechWindow {
		return false
	}
	return c.lastSpeechStoppedAt.Sub(c.lastSpeechStartedAt).Milliseconds() >= minSpokeDurationMs
}

// storePendingLocked parks the committed turn. At most one pending turn
// exists; a newer commit replaces an older one. Turns parked without a
// transcript expire after the TTL.
func (c *Call) storePendingLocked(itemID string, audioMs int) {
	text := strings.TrimSpace(c.bestTranscriptLocked(itemID))
	c.pending = &pendingCommittedTurn{
		itemID:     itemID,
		transcript: text,
		audioMs:    audioMs,
		at:         c.now(),
	}
	c.logger.Debugf("parked committed turn call_sid=%s item=%s has_text=%t", c.CallSID, itemID, text != "")

	if c.pendingTTLTimer != nil {
		c.pendingTTLTimer.Stop()
		c.pendingTTLTimer = nil
	}
	if text == "" {
		c.pendingTTLTimer = time.AfterFunc(pendingTurnTTL, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.pending != nil && c.pending.transcript == "" {
				c.logger.Debugf("pending turn expired without transcript call_sid=%s", c.CallSID)
				c.pending = nil
			}
		})
	}
}

// attemptPendingReplay replays the parked turn once the assistant is quiet.
// Called on pacer drain, response abort, and transcript arrival.
func (c *Call) attemptPendingReplay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil || c.phase == PhaseEnded || c.voicemailSkipArmed {
		return
	}
	if c.responseInFlight || c.waitingForResponse || c.aiSpeaking {
		return
	}

	text := strings.TrimSpace(c.pending.transcript)
	if text == "" {
		text = strings.TrimSpace(c.bestTranscriptLocked(c.pending.itemID))
	}
	if text == "" && c.pending.audioMs < signalFloorMs {
		// Still nothing to work with; leave it for the TTL.
		return
	}

	turn := c.pending
	c.pending = nil
	if c.pendingTTLTimer != nil {
		c.pendingTTLTimer.Stop()
		c.pendingTTLTimer = nil
	}
	c.logger.Debugf("replaying parked turn call_sid=%s item=%s", c.CallSID, turn.itemID)
	c.processTurnLocked(turn.itemID, text, turn.audioMs)
}

// armFillerGraceLocked waits out a short grace window: if the transcript is
// still pure filler at fire time, the commit is dropped; otherwise it is
// promoted to a normal turn.
func (c *Call) armFillerGraceLocked(itemID string, audioMs int) {
	if c.fillerTimer != nil {
		c.fillerTimer.Stop()
	}
	c.fillerTimer = time.AfterFunc(fillerGraceDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.phase == PhaseEnded || c.voicemailSkipArmed {
			return
		}
		text := strings.TrimSpace(c.bestTranscriptLocked(itemID))
		if internal_script.IsFiller(text) {
			c.logger.Debugf("filler dropped after grace call_sid=%s text=%q", c.CallSID, text)
			return
		}
		if c.responseInFlight || c.waitingForResponse || c.aiSpeaking {
			c.storePendingLocked(itemID, audioMs)
			return
		}
		c.processTurnLocked(itemID, text, audioMs)
	})
}

// processTurnLocked runs rules 5-10 on an accepted commit. Caller holds mu.
func (c *Call) processTurnLocked(itemID, text string, audioMs int) {
	now := c.now()
	sentiment := internal_script.DetectSentiment(text)

	// Rule 5: greeting reply.
	if c.phase == PhaseAwaitingGreetingReply {
		if internal_script.IsNegativeHearing(text) {
			c.speakLineLocked(internal_script.HearingRetryLine, humanPauseShort)
			return
		}
		c.acceptUtteranceLocked(text, now)
		next := c.Script.StepAt(1)
		c.greetingAdvancePending = true
		c.greetingAdvanceTo = 1
		c.sendComposedLocked(internal_script.GreetingAckPrefix(sentiment)+" "+next.Text, humanPauseLong)
		return
	}

	// Rule 6: objection or caller question, answered with a rebuttal that
	// always lands back on the booking question.
	if kind, ok := internal_script.DetectObjection(text); ok {
		c.acceptUtteranceLocked(text, now)
		line := internal_script.ObjectionRebuttal(kind)
		if internal_script.EndsWithBookingQuestion(line) {
			c.realignToBookingLocked()
		}
		c.logger.Infow("objection rebuttal", "call_sid", c.CallSID, "kind", string(kind))
		c.sendComposedLocked(line, humanPauseLong)
		return
	}
	if kind, ok := internal_script.DetectQuestionKindForTurn(text); ok {
		c.acceptUtteranceLocked(text, now)
		line := internal_script.QuestionRebuttal(kind, c.Context.Voice.AssistantName)
		if internal_script.EndsWithBookingQuestion(line) {
			c.realignToBookingLocked()
		}
		c.logger.Infow("question rebuttal", "call_sid", c.CallSID, "kind", string(kind))
		c.sendComposedLocked(line, humanPauseLong)
		return
	}

	step := c.Script.StepAt(c.scriptStepIndex)

	// Rule 7: time-answer handling. A time step is never advanced by
	// arbitrary text; anything without usable time content reprompts.
	if step.Type == internal_script.StepTimeQuestion {
		if c.handleTimeAnswerLocked(step, text, sentiment, now) {
			return
		}
		line := internal_script.RepromptLine(step.Type, c.repromptAttempts)
		c.repromptAttempts++
		if internal_script.EndsWithBookingQuestion(line) {
			c.realignToBookingLocked()
		}
		c.sendComposedLocked(line, humanPauseShort)
		return
	}

	// Rule 8: advance on a qualifying answer, reprompt otherwise.
	if shouldTreatCommitAsRealAnswer(step.Type, audioMs, text) {
		c.acceptUtteranceLocked(text, now)
		c.advanceWithAckLocked(step.Type, sentiment)
		return
	}

	line := internal_script.RepromptLine(step.Type, c.repromptAttempts)
	c.repromptAttempts++
	if internal_script.EndsWithBookingQuestion(line) {
		c.realignToBookingLocked()
	}
	c.sendComposedLocked(line, humanPauseShort)
}

// handleTimeAnswerLocked covers rule 7. Returns true when it consumed the
// turn; a false return falls through to advance-or-reprompt.
func (c *Call) handleTimeAnswerLocked(step internal_script.Step, text string, sentiment internal_script.Sentiment, now time.Time) bool {
	// An explicit clock time, or a pick from the offered pair, always wins.
	if _, ok := internal_script.MatchOfferedTime(text, c.offeredTimes); ok {
		c.acceptTimeAnswerLocked(step, text, sentiment, now)
		return true
	}
	if internal_script.ContainsExactClockTime(text) {
		c.acceptTimeAnswerLocked(step, text, sentiment, now)
		return true
	}

	day := internal_script.DetectDayHint(text)
	window := internal_script.DetectWindowHint(text)
	soon := internal_script.WantsSoonHours(text)
	indecision := internal_script.IsIndecision(text)
	later := internal_script.PrefersLater(text)
	earlier := internal_script.PrefersEarlier(text)
	adjusting := (later || earlier) && len(c.offeredTimes) > 0

	if day == internal_script.DayNone && window == internal_script.WindowNone &&
		!soon && !indecision && !adjusting {
		return false
	}

	// Partial time answer: climb the ladder instead of advancing.
	rung := c.ladderRung
	if step.IsExactTimeQuestion && rung < 1 {
		// The caller already picked a day to get here; skip the broad
		// opener and pin down a concrete pair.
		rung = 1
	}
	if day != internal_script.DayNone && window != internal_script.WindowNone && rung < 2 {
		rung = 2
	}
	if indecision && rung < 1 {
		rung = 1
	}
	if rung >= internal_script.LadderRungs {
		rung = internal_script.LadderRungs - 1
	}

	if day == internal_script.DayNone {
		day = c.offeredDay
	}
	if window == internal_script.WindowNone {
		window = c.offeredWindow
	}

	offer := internal_script.GetTimeOfferLine(internal_script.TimeOfferParams{
		LeadID:        c.Context.LeadID,
		SessionID:     c.SessionID,
		CallID:        c.CallSID,
		Phone:         c.Context.LeadPhone,
		Email:         c.Context.LeadEmail,
		FirstName:     c.Context.LeadFirstName,
		AgentName:     c.Context.AgentName,
		Day:           day,
		Window:        window,
		Rung:          rung,
		PreferLater:   later,
		PreferEarlier: earlier,
		SoonHours:     soon,
		Now:           now,
		LeadTZ:        c.Context.LeadTimeZone,
		AgentTZ:       c.Context.AgentTimeZone,
	})

	c.offeredTimes = offer.Times
	c.offeredDay = offer.Day
	c.offeredWindow = offer.Window
	c.ladderRung = rung + 1

	c.acceptUtteranceLocked(text, now)
	c.logger.Infow("time-offer ladder",
		"call_sid", c.CallSID,
		"rung", rung,
		"day", string(offer.Day),
		"window", string(offer.Window))
	c.sendComposedLocked(internal_script.WithAck(step.Type, sentiment, offer.Line), humanPauseLong)
	return true
}

// acceptTimeAnswerLocked records a confirmed exact time and advances.
func (c *Call) acceptTimeAnswerLocked(step internal_script.Step, text string, sentiment internal_script.Sentiment, now time.Time) {
	c.acceptUtteranceLocked(text, now)
	c.ladderRung = 0
	c.offeredTimes = nil
	c.offeredDay = internal_script.DayNone
	c.offeredWindow = internal_script.WindowNone
	c.advanceWithAckLocked(step.Type, sentiment)
}

// shouldTreatCommitAsRealAnswer decides whether a commit qualifies as an
// answer for the step: text is mandatory for time and open questions; a
// yes/no step accepts a long enough audio-only turn.
func shouldTreatCommitAsRealAnswer(st internal_script.StepType, audioMs int, text string) bool {
	switch st {
	case internal_script.StepTimeQuestion, internal_script.StepOpenQuestion:
		return text != ""
	case internal_script.StepYesNoQuestion:
		return text != "" || audioMs >= yesNoAudioOnlyMs
	default:
		return true
	}
}

// advanceWithAckLocked moves the cursor forward and speaks the next step
// behind an ack prefix. Past the last step, the call closes out.
func (c *Call) advanceWithAckLocked(prev internal_script.StepType, sentiment internal_script.Sentiment) {
	nextIdx := c.scriptStepIndex + 1
	if nextIdx >= c.Script.Len() {
		c.sendComposedLocked(ClosingLine, humanPauseLong)
		return
	}
	c.scriptStepIndex = nextIdx
	c.repromptAttempts = 0
	next := c.Script.StepAt(nextIdx)
	c.sendComposedLocked(internal_script.WithAck(prev, sentiment, next.Text), humanPauseLong)
}

// acceptUtteranceLocked records an accepted user answer for the booking
// gate and transcript bookkeeping.
func (c *Call) acceptUtteranceLocked(text string, now time.Time) {
	if text == "" {
		return
	}
	c.lastTranscript = text
	c.lowSignalCount = 0
	c.booking.RecordUtterance(text, now)
}

// realignToBookingLocked snaps the cursor to the canonical booking step so
// the caller's next reply is judged against the question they just heard.
func (c *Call) realignToBookingLocked() {
	idx := c.Script.BookingStep()
	if idx >= c.Script.Len() {
		idx = c.Script.Len() - 1
	}
	c.scriptStepIndex = idx
	c.repromptAttempts = 0
}

// sendComposedLocked applies the final guards to a composed line, then
// speaks it. Rule 9: a line repeated within the anti-loop window becomes
// the booking fallback. Rule 10: discovery questions are capped per call.
func (c *Call) sendComposedLocked(line string, pause time.Duration) {
	now := c.now()
	if line == c.lastSpokenLine && !c.lastSpokenAt.IsZero() && now.Sub(c.lastSpokenAt) < antiLoopWindow {
		c.logger.Debugf("anti-loop substitution call_sid=%s", c.CallSID)
		line = internal_script.FallbackBookingLine
		c.realignToBookingLocked()
	}
	if internal_script.IsDiscoveryLine(line) {
		if c.discoveryCount >= discoveryCap {
			c.logger.Debugf("discovery cap substitution call_sid=%s", c.CallSID)
			line = internal_script.FallbackBookingLine
			c.realignToBookingLocked()
		} else {
			c.discoveryCount++
		}
	}
	c.speakLineLocked(line, pause)
}
