// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_call

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_audio "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/audio"
	internal_script "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/script"
)

func TestTurnGate_PreGreetingCommitIgnored(t *testing.T) {
	r := newTestRig(t)
	r.call.mu.Lock()
	r.call.openAiReady = true
	r.call.phase = PhaseAwaitingGreetingReply
	r.call.mu.Unlock()

	r.commitText("item1", "hello?", 600)

	assert.Equal(t, 0, r.model.responseCount())
	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Nil(t, r.call.pending)
}

func TestTurnGate_BusyParksPending(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(2)
	r.call.mu.Lock()
	r.call.responseInFlight = true
	r.call.mu.Unlock()

	r.commitText("item1", "tomorrow works", 900)

	assert.Equal(t, 0, r.model.responseCount())
	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	require.NotNil(t, r.call.pending)
	assert.Equal(t, "tomorrow works", r.call.pending.transcript)
	assert.Equal(t, 900, r.call.pending.audioMs)
}

func TestTurnGate_LowSignalDropped(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)

	r.call.mu.Lock()
	r.call.speechAudioMs = 100
	r.call.mu.Unlock()
	r.call.handleCommittedTurn("item-nothing")

	assert.Equal(t, 0, r.model.responseCount())
	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Equal(t, 1, r.call.lowSignalCount)
	assert.Nil(t, r.call.pending)
}

func TestTurnGate_GreetingReplyAdvancesAfterDelta(t *testing.T) {
	r := newTestRig(t)
	r.call.mu.Lock()
	r.call.openAiReady = true
	r.call.phase = PhaseAwaitingGreetingReply
	// Greeting already played out.
	r.call.aiAudioStartedAt = time.Now().Add(-3 * time.Second)
	r.call.lastAiDoneAt = time.Now().Add(-2 * time.Second)
	r.call.mu.Unlock()

	r.commitText("item1", "yeah this is Sam", 800)

	require.Equal(t, 1, r.model.responseCount())
	assert.Contains(t, r.model.lastResponse(), "Did you still want")

	r.call.mu.Lock()
	assert.True(t, r.call.greetingAdvancePending)
	assert.Equal(t, 0, r.call.scriptStepIndex, "advance must wait for audible audio")
	r.call.mu.Unlock()

	// First audio delta of the new response commits the deferred advance.
	payload := base64.StdEncoding.EncodeToString(internal_audio.SilenceFrame())
	r.call.onAudioDelta(payload)

	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Equal(t, 1, r.call.scriptStepIndex)
	assert.Equal(t, PhaseInCall, r.call.phase)
	assert.False(t, r.call.greetingAdvancePending)
}

func TestTurnGate_GreetingNegativeHearingRetries(t *testing.T) {
	r := newTestRig(t)
	r.call.mu.Lock()
	r.call.openAiReady = true
	r.call.phase = PhaseAwaitingGreetingReply
	r.call.aiAudioStartedAt = time.Now().Add(-3 * time.Second)
	r.call.mu.Unlock()

	r.commitText("item1", "I can't hear you", 700)

	require.Equal(t, 1, r.model.responseCount())
	assert.Contains(t, r.model.lastResponse(), internal_script.HearingRetryLine)

	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Equal(t, 0, r.call.scriptStepIndex)
	assert.False(t, r.call.greetingAdvancePending)
	assert.Equal(t, PhaseAwaitingGreetingReply, r.call.phase)
}

func TestTurnGate_GreetingAffirmativeMentioningHearingAdvances(t *testing.T) {
	r := newTestRig(t)
	r.call.mu.Lock()
	r.call.openAiReady = true
	r.call.phase = PhaseAwaitingGreetingReply
	r.call.aiAudioStartedAt = time.Now().Add(-3 * time.Second)
	r.call.mu.Unlock()

	r.commitText("item1", "yes I can hear you", 700)

	require.Equal(t, 1, r.model.responseCount())
	assert.NotContains(t, r.model.lastResponse(), internal_script.HearingRetryLine)
	assert.Contains(t, r.model.lastResponse(), "Did you still want")

	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.True(t, r.call.greetingAdvancePending, "reply must queue the qualify step")
}

func TestTurnGate_ObjectionRealignsToBookingStep(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)

	r.commitText("item1", "yeah I'm really not interested", 900)

	require.Equal(t, 1, r.model.responseCount())
	assert.Contains(t, r.model.lastResponse(), internal_script.FallbackBookingLine)

	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Equal(t, internal_script.BookingStepIndex, r.call.scriptStepIndex)
}

func TestTurnGate_QuestionRebuttal(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)

	r.commitText("item1", "wait, who is this?", 800)

	require.Equal(t, 1, r.model.responseCount())
	assert.Contains(t, r.model.lastResponse(), "This is Alex")
	assert.Contains(t, r.model.lastResponse(), internal_script.FallbackBookingLine)

	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Equal(t, internal_script.BookingStepIndex, r.call.scriptStepIndex)
}

func TestTurnGate_DayWindowAnswerTriggersLadder(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(2)

	r.commitText("item1", "tomorrow afternoon", 900)

	require.Equal(t, 1, r.model.responseCount())

	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Equal(t, 2, r.call.scriptStepIndex, "ladder holds position")
	require.Len(t, r.call.offeredTimes, 2)
	assert.Equal(t, internal_script.DayTomorrow, r.call.offeredDay)
	assert.Equal(t, internal_script.WindowAfternoon, r.call.offeredWindow)
	assert.Equal(t, 3, r.call.ladderRung, "day+window starts at rung 2")
}

func TestTurnGate_ExactTimeStepOpensLadderAtPinDown(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(3)

	r.commitText("item1", "tomorrow works", 900)

	require.Equal(t, 1, r.model.responseCount())
	assert.Contains(t, r.model.lastResponse(), "pin it down",
		"exact-time step skips the broad day opener")

	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Equal(t, 3, r.call.scriptStepIndex, "ladder holds position")
	assert.Equal(t, 2, r.call.ladderRung)
	require.Len(t, r.call.offeredTimes, 2)
}

func TestTurnGate_ExactTimeAdvancesAndArmsBooking(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(3)

	r.commitText("item1", "let's do 2:30 pm", 900)

	require.Equal(t, 1, r.model.responseCount())
	// Confirm step carries the agent first name.
	assert.Contains(t, r.model.lastResponse(), "Jordan")

	r.call.mu.Lock()
	assert.Equal(t, 4, r.call.scriptStepIndex)
	assert.Equal(t, 0, r.call.ladderRung)
	assert.Empty(t, r.call.offeredTimes)
	r.call.mu.Unlock()

	assert.NoError(t, r.call.booking.Admit(time.Now()))
}

func TestTurnGate_OfferedPickAdvances(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(2)
	r.call.mu.Lock()
	r.call.offeredTimes = []internal_script.OfferedTime{
		{Hour: 14, Minute: 0, Day: internal_script.DayTomorrow},
		{Hour: 14, Minute: 30, Day: internal_script.DayTomorrow},
	}
	r.call.mu.Unlock()

	r.commitText("item1", "the later one", 700)

	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Equal(t, 3, r.call.scriptStepIndex)
}

func TestTurnGate_TimeStepNeverAdvancesOnVagueText(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(3)

	r.commitText("item1", "hmm maybe I guess", 900)

	require.Equal(t, 1, r.model.responseCount())
	assert.Contains(t, r.model.lastResponse(), internal_script.RepromptLine(internal_script.StepTimeQuestion, 0))

	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Equal(t, 3, r.call.scriptStepIndex)
	assert.Equal(t, 1, r.call.repromptAttempts)
}

func TestTurnGate_YesNoAudioOnlyQualifies(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)

	// No transcript at all, but 1.3 s of voice on a yes/no step.
	r.call.mu.Lock()
	r.call.speechAudioMs = 1300
	r.call.mu.Unlock()
	r.call.handleCommittedTurn("item-audio-only")

	require.Equal(t, 1, r.model.responseCount())
	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Equal(t, 2, r.call.scriptStepIndex)
}

func TestTurnGate_ConfirmStepClosesOut(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(4)

	r.commitText("item1", "yes perfect", 800)

	require.Equal(t, 1, r.model.responseCount())
	assert.Contains(t, r.model.lastResponse(), ClosingLine)
}

func TestTurnGate_AntiLoopSubstitutesFallback(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(3)

	line := "Let me check on that for you."
	r.call.mu.Lock()
	r.call.lastSpokenLine = line
	r.call.lastSpokenAt = time.Now()
	r.call.sendComposedLocked(line, 0)
	r.call.mu.Unlock()

	require.Equal(t, 1, r.model.responseCount())
	assert.Contains(t, r.model.lastResponse(), internal_script.FallbackBookingLine)

	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Equal(t, internal_script.BookingStepIndex, r.call.scriptStepIndex)
}

func TestTurnGate_DiscoveryCap(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)
	discovery := "Just to tailor it, how much coverage were you thinking about?"

	r.call.mu.Lock()
	r.call.discoveryCount = discoveryCap
	r.call.sendComposedLocked(discovery, 0)
	r.call.mu.Unlock()

	require.Equal(t, 1, r.model.responseCount())
	assert.NotContains(t, r.model.lastResponse(), "how much coverage")
	assert.Contains(t, r.model.lastResponse(), internal_script.FallbackBookingLine)
}

func TestTurnGate_DiscoveryCounted(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)
	discovery := "Just to tailor it, how much coverage were you thinking about?"

	r.call.mu.Lock()
	r.call.sendComposedLocked(discovery, 0)
	count := r.call.discoveryCount
	r.call.mu.Unlock()

	assert.Equal(t, 1, count)
	assert.Contains(t, r.model.lastResponse(), "how much coverage")
}

func TestTurnGate_FillerDroppedAfterGrace(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)

	r.commitText("item1", "um", 400)
	assert.Equal(t, 0, r.model.responseCount(), "filler gets a grace window first")

	time.Sleep(fillerGraceDelay + 150*time.Millisecond)
	assert.Equal(t, 0, r.model.responseCount(), "still filler at fire time, dropped")
}

func TestTurnGate_FillerPromotedWhenTranscriptGrows(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(2)

	r.commitText("item1", "um", 400)
	require.Equal(t, 0, r.model.responseCount())

	// The transcript keeps growing during the grace window.
	r.call.mu.Lock()
	r.call.transcripts["item1"] = &itemTranscript{completed: "um tomorrow works", done: true}
	r.call.mu.Unlock()

	time.Sleep(fillerGraceDelay + 150*time.Millisecond)
	require.Equal(t, 1, r.model.responseCount())

	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Equal(t, 2, r.call.scriptStepIndex, "day answer climbs the ladder")
	assert.Len(t, r.call.offeredTimes, 2)
}

func TestTurnGate_PendingReplayedOnTranscript(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(2)
	r.call.mu.Lock()
	r.call.responseInFlight = true
	r.call.speechAudioMs = 600
	r.call.mu.Unlock()

	// Committed while busy, no transcript yet.
	r.call.handleCommittedTurn("item7")
	r.call.mu.Lock()
	require.NotNil(t, r.call.pending)
	// Assistant goes quiet before the transcript lands.
	r.call.responseInFlight = false
	r.call.mu.Unlock()

	r.call.onTranscriptCompleted("item7", "tomorrow afternoon")

	require.Equal(t, 1, r.model.responseCount())
	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Nil(t, r.call.pending)
	assert.Len(t, r.call.offeredTimes, 2)
}

func TestWatchdog_PostStopForcesCommit(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)

	r.call.onSpeechStopped()
	time.Sleep(postStopCommitDelay + 150*time.Millisecond)

	r.model.mu.Lock()
	defer r.model.mu.Unlock()
	assert.Equal(t, 1, r.model.commits)
}

func TestWatchdog_CommittedClearsPostStop(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)

	r.call.onSpeechStopped()
	r.call.onCommitted("item1")
	time.Sleep(postStopCommitDelay + 150*time.Millisecond)

	r.model.mu.Lock()
	defer r.model.mu.Unlock()
	assert.Equal(t, 0, r.model.commits)
}

func TestWatchdog_SpeechStoppedClearsStuckTimer(t *testing.T) {
	r := newTestRig(t)
	r.putInCall(1)

	r.call.onSpeechStarted()
	r.call.mu.Lock()
	assert.NotNil(t, r.call.stuckTimer)
	r.call.mu.Unlock()

	r.call.onSpeechStopped()
	r.call.mu.Lock()
	defer r.call.mu.Unlock()
	assert.Nil(t, r.call.stuckTimer)
	assert.NotNil(t, r.call.postStopTimer)
}
