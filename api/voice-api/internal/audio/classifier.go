// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_audio

// Classifier thresholds. The fast path catches carrier comfort noise and
// network silence without decoding; the amplitude path decides the rest.
const (
	silenceByteRatio   = 0.95
	silenceAvgAbsMax   = 900
	quietSampleMax     = 600
	quietRatioMin      = 0.85
	silenceFastBytes   = SilenceByte // 0xFF
	silenceFastBytePos = 0x7F
)

// IsSilence decides whether a 20 ms μ-law frame is silence. Empty or
// undecodable frames count as silence so a bad frame never triggers a
// response (cost safety).
func IsSilence(frame []byte) bool {
	if len(frame) == 0 {
		return true
	}

	// Fast path: byte-majority check for the two μ-law zero codes.
	zeroish := 0
	for _, b := range frame {
		if b == silenceFastBytes || b == silenceFastBytePos {
			zeroish++
		}
	}
	if float64(zeroish)/float64(len(frame)) >= silenceByteRatio {
		return true
	}

	// Amplitude path: decode through the LUT and measure mean absolute
	// amplitude plus the share of near-zero samples.
	var sumAbs int64
	quiet := 0
	for _, b := range frame {
		s := int64(DecodeSample(b))
		if s < 0 {
			s = -s
		}
		sumAbs += s
		if s < quietSampleMax {
			quiet++
		}
	}
	avgAbs := float64(sumAbs) / float64(len(frame))
	quietRatio := float64(quiet) / float64(len(frame))
	return avgAbs < silenceAvgAbsMax && quietRatio >= quietRatioMin
}
