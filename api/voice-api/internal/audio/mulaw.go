// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_audio

import (
	"encoding/binary"

	"github.com/zaf/g711"
)

// Carrier framing constants: G.711 μ-law at 8 kHz, 20 ms frames.
const (
	FrameBytes    = 160
	FrameDuration = 20 // ms
	SilenceByte   = 0xFF
)

// ulawToPCM is the 256-entry μ-law → linear PCM16 table. Built once at
// process start; the classifier runs on every inbound frame and must not
// allocate.
var ulawToPCM [256]int16

func init() {
	for i := 0; i < 256; i++ {
		lpcm := g711.DecodeUlaw([]byte{byte(i)})
		ulawToPCM[i] = int16(binary.LittleEndian.Uint16(lpcm))
	}
}

// DecodeSample returns the linear PCM16 value of a single μ-law byte.
func DecodeSample(b byte) int16 {
	return ulawToPCM[b]
}

// SilenceFrame returns a fresh 160-byte μ-law silence frame.
func SilenceFrame() []byte {
	frame := make([]byte, FrameBytes)
	for i := range frame {
		frame[i] = SilenceByte
	}
	return frame
}

// PadFrame pads a short μ-law tail to a full 160-byte frame with silence.
// Inputs of 160 bytes or more are returned unchanged.
func PadFrame(frame []byte) []byte {
	if len(frame) >= FrameBytes {
		return frame
	}
	padded := make([]byte, FrameBytes)
	copy(padded, frame)
	for i := len(frame); i < FrameBytes; i++ {
		padded[i] = SilenceByte
	}
	return padded
}
