package audio

// DefaultSilenceThreshold is the mean absolute amplitude (16-bit scale) below which a frame is silent
const DefaultSilenceThreshold = 50

// SilenceDetector classifies frames as silence or speech by mean absolute amplitude
type SilenceDetector struct {
	Threshold float64
}

// NewSilenceDetector creates a detector; a negative threshold falls back to the default
func NewSilenceDetector(threshold int) *SilenceDetector {
	if threshold < 0 {
		threshold = DefaultSilenceThreshold
	}
	return &SilenceDetector{Threshold: float64(threshold)}
}

// IsSilent reports whether the frame's mean absolute amplitude is below the threshold.
// An empty frame is silent.
func (d *SilenceDetector) IsSilent(frame Frame) bool {
	return DetectSilence(frame.Samples, d.Threshold)
}

// DetectSilence detects if audio samples represent silence
func DetectSilence(samples []int16, threshold float64) bool {
	return MeanAbsAmplitude(samples) < threshold
}

// MeanAbsAmplitude returns the mean of |sample| over the samples, 0 for none
func MeanAbsAmplitude(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum int64
	for _, s := range samples {
		v := int64(s)
		if v < 0 {
			v = -v
		}
		sum += v
	}
	return float64(sum) / float64(len(samples))
}
