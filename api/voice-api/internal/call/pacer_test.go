// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_call

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_audio "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/audio"
	"github.com/brysonmccleary/CoveCRM-sub002/pkg/commons"
)

func newTestPacer(t *testing.T) (*OutboundPacer, *[][]byte, *int) {
	t.Helper()
	logger, err := commons.NewApplicationLogger(commons.WithLevel("error"))
	require.NoError(t, err)

	var frames [][]byte
	drains := 0
	p := NewOutboundPacer(func(frame []byte) error {
		buf := make([]byte, len(frame))
		copy(buf, frame)
		frames = append(frames, buf)
		return nil
	}, func() { drains++ }, logger)
	return p, &frames, &drains
}

func TestPacerTick_FullFrames(t *testing.T) {
	p, frames, _ := newTestPacer(t)
	p.Append(bytes.Repeat([]byte{0x11}, internal_audio.FrameBytes*2))

	assert.False(t, p.tick())
	assert.False(t, p.tick())
	require.Len(t, *frames, 2)
	for _, f := range *frames {
		assert.Len(t, f, internal_audio.FrameBytes)
		assert.Equal(t, byte(0x11), f[0])
	}
	assert.Equal(t, 0, p.Buffered())
}

func TestPacerTick_TailPaddedAndDrains(t *testing.T) {
	p, frames, _ := newTestPacer(t)
	p.Append(bytes.Repeat([]byte{0x22}, 40))
	p.MarkDone()

	drained := p.tick()
	assert.True(t, drained)
	require.Len(t, *frames, 1)
	frame := (*frames)[0]
	require.Len(t, frame, internal_audio.FrameBytes)
	assert.Equal(t, byte(0x22), frame[39])
	assert.Equal(t, byte(internal_audio.SilenceByte), frame[40])
	assert.Equal(t, byte(internal_audio.SilenceByte), frame[159])
}

func TestPacerTick_TailPaddedNotDoneKeepsGoing(t *testing.T) {
	p, frames, _ := newTestPacer(t)
	p.Append(bytes.Repeat([]byte{0x33}, 10))

	assert.False(t, p.tick(), "padded tail without done must not stop the pacer")
	require.Len(t, *frames, 1)
	assert.Len(t, (*frames)[0], internal_audio.FrameBytes)
}

func TestPacerTick_EmptyNotDoneEmitsSilence(t *testing.T) {
	p, frames, _ := newTestPacer(t)

	assert.False(t, p.tick())
	require.Len(t, *frames, 1)
	for _, b := range (*frames)[0] {
		require.Equal(t, byte(internal_audio.SilenceByte), b)
	}
}

func TestPacerTick_DoneAndEmptyDrains(t *testing.T) {
	p, frames, _ := newTestPacer(t)
	p.MarkDone()

	assert.True(t, p.tick())
	assert.Empty(t, *frames, "drain emits no frame")
}

func TestPacerReset(t *testing.T) {
	p, _, _ := newTestPacer(t)
	p.Append([]byte{1, 2, 3})
	p.MarkDone()
	p.Reset()

	assert.Equal(t, 0, p.Buffered())
	assert.False(t, p.tick(), "reset clears done; tick emits silence and keeps going")
}

func TestPacerEveryFrameIs160Bytes(t *testing.T) {
	p, frames, _ := newTestPacer(t)
	p.Append(bytes.Repeat([]byte{0x44}, 777))
	p.MarkDone()

	for !p.tick() {
	}
	require.NotEmpty(t, *frames)
	for i, f := range *frames {
		assert.Len(t, f, internal_audio.FrameBytes, "frame %d", i)
	}
}
