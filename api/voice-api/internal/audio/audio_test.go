// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zaf/g711"
)

// loudFrame builds a 160-byte μ-law frame from a square-ish PCM signal of
// the given amplitude.
func loudFrame(amplitude int16) []byte {
	pcm := make([]byte, FrameBytes*2)
	for i := 0; i < FrameBytes; i++ {
		v := amplitude
		if i%2 == 1 {
			v = -amplitude
		}
		pcm[2*i] = byte(uint16(v) & 0xFF)
		pcm[2*i+1] = byte(uint16(v) >> 8)
	}
	return g711.EncodeUlaw(pcm)
}

func TestSilenceFrame_SizeAndBytes(t *testing.T) {
	frame := SilenceFrame()
	assert.Len(t, frame, FrameBytes)
	for _, b := range frame {
		assert.Equal(t, byte(SilenceByte), b)
	}
}

func TestPadFrame(t *testing.T) {
	tail := []byte{0x01, 0x02, 0x03}
	padded := PadFrame(tail)
	assert.Len(t, padded, FrameBytes)
	assert.Equal(t, tail, padded[:3])
	for _, b := range padded[3:] {
		assert.Equal(t, byte(SilenceByte), b)
	}

	full := make([]byte, FrameBytes)
	assert.Equal(t, full, PadFrame(full))
}

func TestDecodeSample_SilenceCodesNearZero(t *testing.T) {
	// 0xFF and 0x7F are the μ-law codes closest to zero amplitude.
	assert.LessOrEqual(t, abs16(DecodeSample(0xFF)), int16(8))
	assert.LessOrEqual(t, abs16(DecodeSample(0x7F)), int16(8))
}

func abs16(v int16) int16 {
	if v < 0 {
		return -v
	}
	return v
}

func TestIsSilence_EmptyFrame(t *testing.T) {
	assert.True(t, IsSilence(nil))
	assert.True(t, IsSilence([]byte{}))
}

func TestIsSilence_FastPath(t *testing.T) {
	assert.True(t, IsSilence(SilenceFrame()))

	// Mixed 0xFF / 0x7F still clears the 95% byte-majority bar.
	frame := SilenceFrame()
	for i := 0; i < FrameBytes/2; i++ {
		frame[i] = 0x7F
	}
	assert.True(t, IsSilence(frame))
}

func TestIsSilence_Voice(t *testing.T) {
	assert.False(t, IsSilence(loudFrame(8000)))
}

func TestIsSilence_QuietNoise(t *testing.T) {
	// Low-amplitude noise below the 900 average / 0.85 quiet-ratio bar.
	assert.True(t, IsSilence(loudFrame(80)))
}
