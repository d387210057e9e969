// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_call

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	internal_audio "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/audio"
	internal_booking "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/booking"
	internal_callcontext "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/callcontext"
	crm_client "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/crm"
	internal_script "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/script"
	"github.com/brysonmccleary/CoveCRM-sub002/config"
	"github.com/brysonmccleary/CoveCRM-sub002/pkg/commons"
)

// Engine timing constants. All of these are latency/robustness tradeoffs
// tuned against live calls; change with care.
const (
	ResponseTemperature = 0.6

	// Turn gate.
	signalFloorMs      = 280
	fillerGraceDelay   = 750 * time.Millisecond
	fillerMaxAudioMs   = 1700
	yesNoAudioOnlyMs   = 1200
	pendingTurnTTL     = 2 * time.Second
	antiLoopWindow     = 10 * time.Second
	discoveryCap       = 2
	recentSpeechWindow = 1500 * time.Millisecond
	minSpokeDurationMs = 250

	// Barge-in.
	bargeCooldown   = 650 * time.Millisecond
	bargeSustainMs  = 700
	bargeAudioCapMs = 800
	bargeRingSlots  = 10
	cancelThrottle  = 500 * time.Millisecond

	// Watchdogs.
	postStopCommitDelay = 220 * time.Millisecond
	stuckSpeechDelay    = 3400 * time.Millisecond

	// Human pause before response.create; a zero-latency reply sounds
	// robotic.
	humanPauseShort = 120 * time.Millisecond
	humanPauseLong  = 220 * time.Millisecond
)

// ClosingLine is spoken when the confirm step is answered and the script
// has nowhere left to advance.
const ClosingLine = "Perfect, you're all set. They'll give you a quick call then. Have a great day!"

// ModelSender is the slice of the realtime client the engine drives.
// *internal_realtime.Client satisfies it; tests substitute a recorder.
type ModelSender interface {
	AppendAudio(mulaw []byte) error
	AppendAudioB64(payload string) error
	CommitInput() error
	ClearInput() error
	CreateResponse(instructions string, temperature float64) error
	CancelResponse() error
	Close() error
}

// CarrierWriter emits one outbound media frame to the telephony stream.
type CarrierWriter interface {
	WriteMedia(frame []byte) error
}

// pendingCommittedTurn is the single parked user turn: committed while the
// assistant was busy or before a transcript existed, replayed later.
type pendingCommittedTurn struct {
	itemID     string
	transcript string
	audioMs    int
	at         time.Time
}

// itemTranscript accumulates per-item transcription state.
type itemTranscript struct {
	partial   string
	completed string
	done      bool
}

// Call is the per-stream engine instance. All state below mu is owned by
// the call; handlers from the telephony loop, the model loop, the pacer,
// and timers serialize on it.
type Call struct {
	mu sync.Mutex

	logger commons.Logger
	cfg    *config.AppConfig

	StreamSID string
	CallSID   string
	SessionID string

	Context *internal_callcontext.CallContext
	Script  *internal_script.Script

	model   ModelSender
	carrier CarrierWriter
	crm     crm_client.CoveCRMClient

	pacer   *OutboundPacer
	booking *internal_booking.Gate
	usage   *UsageReporter

	ctx    context.Context
	cancel context.CancelFunc

	// Phase and derived flags.
	phase                  Phase
	openAiReady            bool
	openAiConfigured       bool
	waitingForResponse     bool
	aiSpeaking             bool
	responseInFlight       bool
	outboundOpenAiDone     bool
	voicemailSkipArmed     bool
	greetingAdvancePending bool
	greetingAdvanceTo      int
	finalOutcomeSent       bool

	// answeredBy may be refreshed pre-greeting; Context stays immutable.
	answeredBy          string
	answeredByRefreshes int

	// Timing anchors.
	callStartedAt        time.Time
	aiAudioStartedAt     time.Time
	lastAiDoneAt         time.Time
	lastCancelAt         time.Time
	lastPromptSentAt     time.Time
	lastResponseCreateAt time.Time
	lastListenEnabledAt  time.Time
	lastSpeechStartedAt  time.Time
	lastSpeechStoppedAt  time.Time

	// Barge-in.
	bargeAudioMs   int
	ring           [][]byte
	ringFlushArmed bool

	// Turn-gate scratchpad.
	scriptStepIndex  int
	repromptAttempts int
	lowSignalCount   int
	discoveryCount   int
	ladderRung       int
	offeredTimes     []internal_script.OfferedTime
	offeredDay       internal_script.DayHint
	offeredWindow    internal_script.Window
	lastSpokenLine   string
	lastSpokenAt     time.Time
	lastTranscript   string
	speechAudioMs    int
	pending          *pendingCommittedTurn
	transcripts      map[string]*itemTranscript

	// Watchdog and grace timers; cleared in End.
	postStopTimer   *time.Timer
	stuckTimer      *time.Timer
	fillerTimer     *time.Timer
	pendingTTLTimer *time.Timer

	// dead mirrors "ended or voicemail-suppressed" for lock-free checks on
	// deferred work (human-pause closures, pacer sink).
	dead atomic.Bool

	// Test seams. Defaults cover production.
	now        func() time.Time
	speakDelay func(d time.Duration, fn func())
}

// NewCall assembles the engine for one telephony stream. The model link is
// attached separately once dialed.
func NewCall(ctx context.Context, cfg *config.AppConfig, logger commons.Logger,
	streamSID, callSID string,
	callCtx *internal_callcontext.CallContext,
	carrier CarrierWriter, crm crm_client.CoveCRMClient) *Call {

	callCtxDone, cancel := context.WithCancel(ctx)
	c := &Call{
		logger:      logger,
		cfg:         cfg,
		StreamSID:   streamSID,
		CallSID:     callSID,
		SessionID:   callCtx.SessionID,
		Context:     callCtx,
		Script:      internal_script.ScriptFor(callCtx),
		carrier:     carrier,
		crm:         crm,
		booking:     internal_booking.NewGate(),
		ctx:         callCtxDone,
		cancel:      cancel,
		phase:       PhaseInit,
		answeredBy:  callCtx.AnsweredBy,
		transcripts: make(map[string]*itemTranscript),
		now:         time.Now,
		speakDelay: func(d time.Duration, fn func()) {
			if d <= 0 {
				fn()
				return
			}
			time.AfterFunc(d, fn)
		},
	}
	c.callStartedAt = c.now()
	c.usage = NewUsageReporter(cfg, crm, logger)
	c.pacer = NewOutboundPacer(c.writeOutboundFrame, c.onPacerDrained, logger)
	return c
}

// AttachModel hands the dialed model link to the call.
func (c *Call) AttachModel(model ModelSender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}

// Done exposes the call lifetime for goroutines owned by the call.
func (c *Call) Done() <-chan struct{} { return c.ctx.Done() }

// writeOutboundFrame is the pacer's sink. Voicemail suppression is the last
// line of defense: once armed, not a single frame leaves.
func (c *Call) writeOutboundFrame(frame []byte) error {
	c.mu.Lock()
	suppressed := c.voicemailSkipArmed || c.phase == PhaseEnded
	c.mu.Unlock()
	if suppressed {
		return nil
	}
	return c.carrier.WriteMedia(frame)
}

// onPacerDrained runs after the final frame of a response was written:
// the assistant went quiet, so reopen listening and replay a parked turn.
func (c *Call) onPacerDrained() {
	c.mu.Lock()
	c.aiSpeaking = false
	c.lastListenEnabledAt = c.now()
	c.mu.Unlock()
	c.attemptPendingReplay()
}

// HandleInboundFrame ingests one decoded μ-law frame from the carrier.
func (c *Call) HandleInboundFrame(frame []byte) {
	c.mu.Lock()

	if c.phase == PhaseEnded || c.voicemailSkipArmed {
		c.mu.Unlock()
		return
	}
	if !c.openAiReady || c.model == nil {
		// Pre-ready audio is dropped; the session starts from a clean buffer.
		c.mu.Unlock()
		return
	}

	voice := !internal_audio.IsSilence(frame)
	if voice {
		c.speechAudioMs += internal_audio.FrameDuration
	}

	if c.aiSpeaking && c.responseInFlight && !c.outboundOpenAiDone {
		// Assistant is talking: frames feed barge-in, not the model.
		c.observeBargeFrame(frame, voice)
		c.mu.Unlock()
		return
	}

	var flush [][]byte
	if c.ringFlushArmed {
		// Post-cancel: replay the ring-buffered first words ahead of the
		// live frame so the model hears the whole interruption.
		flush = c.ring
		c.ring = nil
		c.ringFlushArmed = false
	}
	model := c.model
	c.mu.Unlock()

	for _, buffered := range flush {
		if err := model.AppendAudio(buffered); err != nil {
			c.logger.Warnw("ring flush append failed", "call_sid", c.CallSID, "error", err.Error())
			return
		}
	}
	if err := model.AppendAudio(frame); err != nil {
		c.logger.Warnw("inbound append failed", "call_sid", c.CallSID, "error", err.Error())
	}
}

// End transitions the call to its terminal state: stop pacing, silence all
// timers, close the model link, and bill usage exactly once. Idempotent.
func (c *Call) End(reason string) {
	c.mu.Lock()
	if c.phase == PhaseEnded {
		c.mu.Unlock()
		return
	}
	c.setPhase(PhaseEnded)
	c.dead.Store(true)
	c.stopTimersLocked()
	model := c.model
	started := c.callStartedAt
	c.mu.Unlock()

	c.logger.Infow("call ended",
		"call_sid", c.CallSID,
		"session_id", c.SessionID,
		"reason", reason,
		"duration_ms", c.now().Sub(started).Milliseconds())

	c.pacer.StopAndReset()
	if model != nil {
		_ = model.Close()
	}
	c.cancel()
	c.usage.Report(context.Background(), c.SessionID, c.CallSID, started, c.now())
}

func (c *Call) stopTimersLocked() {
	for _, t := range []*time.Timer{c.postStopTimer, c.stuckTimer, c.fillerTimer, c.pendingTTLTimer} {
		if t != nil {
			t.Stop()
		}
	}
	c.postStopTimer, c.stuckTimer, c.fillerTimer, c.pendingTTLTimer = nil, nil, nil, nil
}
