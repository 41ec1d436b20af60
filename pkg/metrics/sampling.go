package metrics

import (
	"math"
	"sync/atomic"
)

// SamplingObserver forwards one event in every N, where N comes from the
// configured rate (0.25 keeps every 4th event). It belongs in front of
// artifact exporters only: paired events such as a dispatch start and its
// finish lose their partner when thinned.
type SamplingObserver struct {
	inner   Observer
	stride  uint64
	counter atomic.Uint64
}

// NewSamplingObserver clamps rate into [0, 1]. Rate 0 mutes the inner
// observer entirely; rate 1 passes everything through.
func NewSamplingObserver(inner Observer, rate float64) *SamplingObserver {
	var stride uint64
	switch {
	case rate <= 0:
		stride = 0
	case rate >= 1:
		stride = 1
	default:
		stride = uint64(math.Round(1.0 / rate))
		if stride == 0 {
			stride = 1
		}
	}
	return &SamplingObserver{inner: inner, stride: stride}
}

func (s *SamplingObserver) RecordEvent(ev MetricsEvent) {
	switch s.stride {
	case 0:
		return
	case 1:
		s.inner.RecordEvent(ev)
	default:
		if s.counter.Add(1)%s.stride == 0 {
			s.inner.RecordEvent(ev)
		}
	}
}
