// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_call

import (
	"encoding/base64"
	"time"

	internal_realtime "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/realtime"
	internal_script "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/script"
)

// HandleModelEvent is the single entry point for the model read loop.
func (c *Call) HandleModelEvent(event *internal_realtime.ServerEvent) {
	if control := event.EmbeddedControl(); control != nil {
		c.dispatchControl(control)
	}

	switch event.Type {
	case internal_realtime.EventSessionCreated:
		// Informational; readiness keys off session.updated.
	case internal_realtime.EventSessionUpdated:
		c.onSessionUpdated()
	case internal_realtime.EventSpeechStarted:
		c.onSpeechStarted()
	case internal_realtime.EventSpeechStopped:
		c.onSpeechStopped()
	case internal_realtime.EventInputCommitted:
		c.onCommitted(event.ResponseItemID())
	case internal_realtime.EventTranscriptDelta:
		c.onTranscriptDelta(event.ResponseItemID(), event.Delta)
	case internal_realtime.EventTranscriptCompleted:
		c.onTranscriptCompleted(event.ResponseItemID(), event.Transcript)
	case internal_realtime.EventTranscriptFailed:
		c.logger.Warnw("transcription failed", "call_sid", c.CallSID, "item_id", event.ResponseItemID())
	case internal_realtime.EventResponseAudioDelta:
		c.onAudioDelta(event.Delta)
	case internal_realtime.EventResponseAudioDone:
		c.onResponseAudioDone()
	case internal_realtime.EventResponseCancelled, internal_realtime.EventResponseInterrupted:
		c.onResponseAborted(event.Type)
	case internal_realtime.EventResponseDone:
		c.onResponseDone()
	case internal_realtime.EventError:
		c.onModelError(event)
	default:
		c.logger.Debugf("ignoring model event type %s", event.Type)
	}
}

// onSessionUpdated marks the session ready, drops any stale input, checks
// the answering-machine hint, and queues the greeting.
func (c *Call) onSessionUpdated() {
	c.mu.Lock()
	if c.phase == PhaseEnded {
		c.mu.Unlock()
		return
	}
	first := !c.openAiReady
	c.openAiReady = true
	c.openAiConfigured = true
	if first {
		c.setPhase(PhaseAwaitingGreetingReply)
	}
	model := c.model
	c.mu.Unlock()

	if !first {
		return
	}

	if err := model.ClearInput(); err != nil {
		c.logger.Warnw("pre-greeting buffer clear failed", "call_sid", c.CallSID, "error", err.Error())
	}
	c.refreshAnsweredBy()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.voicemailSkipArmed || c.phase == PhaseEnded {
		return
	}
	greeting := c.Script.StepAt(0).Text
	c.speakLineLocked(greeting, humanPauseShort)
}

// onSpeechStarted re-arms the stuck-speech watchdog: if the model never
// reports speech_stopped, force a commit so the turn is not lost.
func (c *Call) onSpeechStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseEnded {
		return
	}
	c.lastSpeechStartedAt = c.now()
	if c.stuckTimer != nil {
		c.stuckTimer.Stop()
	}
	c.stuckTimer = time.AfterFunc(stuckSpeechDelay, func() {
		c.forceCommit("stuck_speech")
	})
}

// onSpeechStopped arms the post-stop commit watchdog.
func (c *Call) onSpeechStopped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseEnded {
		return
	}
	c.lastSpeechStoppedAt = c.now()
	if c.stuckTimer != nil {
		c.stuckTimer.Stop()
		c.stuckTimer = nil
	}
	if c.postStopTimer != nil {
		c.postStopTimer.Stop()
	}
	c.postStopTimer = time.AfterFunc(postStopCommitDelay, func() {
		c.forceCommit("post_stop")
	})
}

// forceCommit asks the model to commit the input buffer when a watchdog
// decides the server-side commit is overdue.
func (c *Call) forceCommit(reason string) {
	c.mu.Lock()
	if c.phase == PhaseEnded || c.model == nil {
		c.mu.Unlock()
		return
	}
	model := c.model
	c.mu.Unlock()

	c.logger.Debugf("forcing input commit (%s) call_sid=%s", reason, c.CallSID)
	if err := model.CommitInput(); err != nil {
		c.logger.Warnw("forced commit failed", "call_sid", c.CallSID, "reason", reason, "error", err.Error())
	}
}

// onCommitted clears the watchdogs and enters the turn gate.
func (c *Call) onCommitted(itemID string) {
	c.mu.Lock()
	if c.postStopTimer != nil {
		c.postStopTimer.Stop()
		c.postStopTimer = nil
	}
	if c.stuckTimer != nil {
		c.stuckTimer.Stop()
		c.stuckTimer = nil
	}
	c.mu.Unlock()

	c.handleCommittedTurn(itemID)
}

func (c *Call) onTranscriptDelta(itemID, delta string) {
	if itemID == "" || delta == "" {
		return
	}
	c.mu.Lock()
	tr := c.transcripts[itemID]
	if tr == nil {
		tr = &itemTranscript{}
		c.transcripts[itemID] = tr
	}
	tr.partial += delta
	replay := c.pending != nil && c.pending.transcript == "" &&
		(c.pending.itemID == "" || c.pending.itemID == itemID)
	if replay {
		c.pending.transcript = tr.partial
	}
	c.mu.Unlock()

	if replay {
		c.attemptPendingReplay()
	}
}

func (c *Call) onTranscriptCompleted(itemID, transcript string) {
	c.mu.Lock()
	tr := c.transcripts[itemID]
	if tr == nil {
		tr = &itemTranscript{}
		c.transcripts[itemID] = tr
	}
	tr.completed = transcript
	tr.done = true
	if transcript != "" {
		c.lastTranscript = transcript
	}
	replay := c.pending != nil && (c.pending.itemID == "" || c.pending.itemID == itemID)
	if replay && transcript != "" {
		c.pending.transcript = transcript
	}
	c.mu.Unlock()

	if replay {
		c.attemptPendingReplay()
	}
}

// onAudioDelta queues model audio and, on the first delta of a response,
// confirms the line is audibly playing: start the pacer, stamp the anchor,
// and commit any deferred greeting advance.
func (c *Call) onAudioDelta(payload string) {
	if payload == "" {
		return
	}
	audio, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		c.logger.Warnw("undecodable audio delta", "call_sid", c.CallSID, "error", err.Error())
		return
	}

	c.mu.Lock()
	if c.phase == PhaseEnded || c.voicemailSkipArmed {
		c.mu.Unlock()
		return
	}
	if c.outboundOpenAiDone && !c.responseInFlight {
		// Late delta after a cancel; the race is expected, drop it.
		c.mu.Unlock()
		return
	}

	first := c.aiAudioStartedAt.IsZero()
	if first {
		c.aiAudioStartedAt = c.now()
		if c.greetingAdvancePending {
			c.greetingAdvancePending = false
			c.scriptStepIndex = c.greetingAdvanceTo
			c.setPhase(PhaseInCall)
			c.logger.Infow("greeting advance committed",
				"call_sid", c.CallSID, "step", c.scriptStepIndex)
		}
	}
	c.pacer.Append(audio)
	ctx := c.ctx
	c.mu.Unlock()

	if first {
		c.pacer.Start(ctx)
	}
}

// onResponseAudioDone marks the model side of the response finished; the
// pacer keeps running until the buffer drains.
func (c *Call) onResponseAudioDone() {
	c.mu.Lock()
	c.outboundOpenAiDone = true
	c.responseInFlight = false
	c.waitingForResponse = false
	c.lastAiDoneAt = c.now()
	c.mu.Unlock()

	c.pacer.MarkDone()
}

// onResponseAborted finalizes a cancelled or interrupted response.
func (c *Call) onResponseAborted(kind string) {
	c.logger.Debugf("response aborted (%s) call_sid=%s", kind, c.CallSID)
	c.mu.Lock()
	c.outboundOpenAiDone = true
	c.responseInFlight = false
	c.waitingForResponse = false
	c.aiSpeaking = false
	c.lastAiDoneAt = c.now()
	c.lastListenEnabledAt = c.now()
	c.mu.Unlock()

	c.pacer.StopAndReset()
	c.attemptPendingReplay()
}

// onResponseDone closes out the response lifecycle flags. Audio completion
// is handled separately by onResponseAudioDone.
func (c *Call) onResponseDone() {
	c.mu.Lock()
	c.responseInFlight = false
	c.waitingForResponse = false
	c.mu.Unlock()
}

// onModelError logs the error and, if a response was in flight, aborts it
// and reopens listening. Mid-turn silence toward the caller is never
// acceptable, but a dead response must not wedge the gate.
func (c *Call) onModelError(event *internal_realtime.ServerEvent) {
	message := "unknown"
	if event.Error != nil {
		message = event.Error.Message
	}
	c.logger.Errorf("model error on call %s: %s", c.CallSID, message)

	c.mu.Lock()
	inFlight := c.responseInFlight
	c.mu.Unlock()
	if inFlight {
		c.onResponseAborted("error")
	}
}

// speakLineLocked queues one assistant turn. Caller holds mu. The literal
// line is wrapped in the verbatim-lock instruction; a short human pause
// precedes the create so replies do not sound instantaneous.
func (c *Call) speakLineLocked(line string, pause time.Duration) {
	if c.phase == PhaseEnded || c.voicemailSkipArmed || c.model == nil {
		return
	}

	now := c.now()
	c.waitingForResponse = true
	c.aiSpeaking = true
	c.responseInFlight = true
	c.outboundOpenAiDone = false
	c.aiAudioStartedAt = time.Time{}
	c.lastResponseCreateAt = now
	c.lastPromptSentAt = now
	c.lastSpokenLine = line
	c.lastSpokenAt = now
	c.bargeAudioMs = 0
	c.ring = nil

	c.pacer.Reset()

	instruction := internal_script.BuildStepperTurnInstruction(c.Context.Voice.AssistantName, line)
	model := c.model

	c.logger.Infow("queueing assistant turn",
		"call_sid", c.CallSID,
		"step", c.scriptStepIndex,
		"line", line)

	c.speakDelay(pause, func() {
		if c.dead.Load() {
			return
		}
		if err := model.CreateResponse(instruction, ResponseTemperature); err != nil {
			c.logger.Errorf("response.create failed on call %s: %s", c.CallSID, err.Error())
			c.mu.Lock()
			c.waitingForResponse = false
			c.aiSpeaking = false
			c.responseInFlight = false
			c.outboundOpenAiDone = true
			c.mu.Unlock()
		}
	})
}
