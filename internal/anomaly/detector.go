package anomaly

import (
	"fmt"
)

// Assessment is the outcome of checking one power value against a sensor's
// recent history
type Assessment struct {
	Anomalous bool    `json:"anomalous"`
	Reason    string  `json:"reason,omitempty"`
	Baseline  float64 `json:"baseline,omitempty"`
	Samples   int     `json:"samples"`
}

// Detector flags negative power output and sudden spikes against a rolling
// average
type Detector struct {
	spikeThreshold            float64
	minDataPointsForDetection int
}

// NewDetector creates a new anomaly detector with the specified thresholds
func NewDetector(spikeThreshold float64, minDataPointsForDetection int) *Detector {
	return &Detector{
		spikeThreshold:            spikeThreshold,
		minDataPointsForDetection: minDataPointsForDetection,
	}
}

// Assess checks value against the previous power outputs of the same sensor
func (d *Detector) Assess(value float64, history []float64) Assessment {
	result := Assessment{Samples: len(history)}

	if value < 0 {
		result.Anomalous = true
		result.Reason = "negative power output"
		return result
	}

	if len(history) == 0 || len(history) < d.minDataPointsForDetection {
		return result
	}

	sum := 0.0
	for _, v := range history {
		sum += v
	}
	result.Baseline = sum / float64(len(history))

	if result.Baseline > 0 && value > d.spikeThreshold*result.Baseline {
		result.Anomalous = true
		result.Reason = fmt.Sprintf("sudden spike detected: power %.2f exceeds %.1fx rolling average %.2f",
			value, d.spikeThreshold, result.Baseline)
	}

	return result
}
