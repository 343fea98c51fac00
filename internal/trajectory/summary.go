// Package trajectory derives the summary of a finished task trajectory from
// its ordered samples.
package trajectory

import (
	"errors"
	"time"

	"github.com/jengzang/dispatch-backend-go/internal/spatial"
)

// ErrNoSamples is returned when there is nothing to summarize
var ErrNoSamples = errors.New("trajectory has no samples")

// Sample is one ordered position of a trajectory
type Sample struct {
	Point      spatial.Point
	RecordedAt time.Time
	Speed      *float64 // m/s, as reported by the device
}

// Summary describes a whole trajectory
type Summary struct {
	Points     []spatial.Point
	StartTime  time.Time
	EndTime    time.Time
	PointCount int
	PathLength float64  // meters
	AvgSpeed   *float64 // m/s, nil when it cannot be derived
}

// Summarize computes the summary of samples, which must be ordered by time.
// AvgSpeed is the mean of the reported speeds when any sample carries one;
// otherwise it is PathLength over the elapsed time when at least two samples
// span a positive duration.
func Summarize(samples []Sample) (*Summary, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	points := make([]spatial.Point, len(samples))
	var speedSum float64
	var speedCount int
	for i, s := range samples {
		points[i] = s.Point
		if s.Speed != nil {
			speedSum += *s.Speed
			speedCount++
		}
	}

	summary := &Summary{
		Points:     points,
		StartTime:  samples[0].RecordedAt,
		EndTime:    samples[len(samples)-1].RecordedAt,
		PointCount: len(samples),
		PathLength: spatial.PathLength(points),
	}

	switch elapsed := summary.EndTime.Sub(summary.StartTime).Seconds(); {
	case speedCount > 0:
		avg := speedSum / float64(speedCount)
		summary.AvgSpeed = &avg
	case len(samples) >= 2 && elapsed > 0:
		avg := summary.PathLength / elapsed
		summary.AvgSpeed = &avg
	}

	return summary, nil
}
