// Package metrics measures per-analysis latency and CPU load and exposes
// service counters in the Prometheus format.
package metrics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/procfs"

	"findoc/internal/logger"
)

// DefaultWindow is the CPU sampling window.
const DefaultWindow = 100 * time.Millisecond

// Snapshot is the metrics part of an analysis record.
type Snapshot struct {
	LatencySeconds float64
	CPUPercent     float64
}

// CPUSampler returns system-wide CPU utilization in percent.
type CPUSampler interface {
	Sample(ctx context.Context) (float64, error)
}

// Probe measures one analysis.
type Probe struct {
	sampler CPUSampler
	now     func() time.Time
}

// NewProbe returns a probe that samples CPU load with sampler.
func NewProbe(sampler CPUSampler) *Probe {
	return &Probe{sampler: sampler, now: time.Now}
}

// Measure reports the time elapsed since start, rounded to milliseconds, and
// one CPU sample rounded to a tenth of a percent. Sampling failures yield 0.
func (p *Probe) Measure(ctx context.Context, start time.Time) Snapshot {
	snap := Snapshot{LatencySeconds: roundTo(p.now().Sub(start).Seconds(), 3)}

	if p.sampler == nil {
		return snap
	}
	cpu, err := p.sampler.Sample(ctx)
	if err != nil {
		logger.FromContext(ctx).Debug().Err(err).Msg("CPU sample unavailable")
		return snap
	}
	snap.CPUPercent = roundTo(cpu, 1)
	return snap
}

// ProcSampler reads /proc/stat twice, one window apart.
type ProcSampler struct {
	window time.Duration
	read   func() (procfs.CPUStat, error)
}

// NewProcSampler returns a sampler over the default /proc mount.
func NewProcSampler(window time.Duration) *ProcSampler {
	if window <= 0 {
		window = DefaultWindow
	}
	return &ProcSampler{window: window, read: readCPUTotal}
}

func readCPUTotal() (procfs.CPUStat, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return procfs.CPUStat{}, fmt.Errorf("open procfs: %w", err)
	}
	stat, err := fs.Stat()
	if err != nil {
		return procfs.CPUStat{}, fmt.Errorf("read /proc/stat: %w", err)
	}
	return stat.CPUTotal, nil
}

// Sample implements CPUSampler. It blocks for the sampling window.
func (s *ProcSampler) Sample(ctx context.Context) (float64, error) {
	before, err := s.read()
	if err != nil {
		return 0, err
	}

	timer := time.NewTimer(s.window)
	select {
	case <-ctx.Done():
		timer.Stop()
		return 0, ctx.Err()
	case <-timer.C:
	}

	after, err := s.read()
	if err != nil {
		return 0, err
	}
	return busyPercent(before, after), nil
}

func busyPercent(before, after procfs.CPUStat) float64 {
	total := cpuTotal(after) - cpuTotal(before)
	if total <= 0 {
		return 0
	}
	idle := (after.Idle + after.Iowait) - (before.Idle + before.Iowait)
	busy := (total - idle) / total * 100
	return math.Max(0, math.Min(100, busy))
}

func cpuTotal(s procfs.CPUStat) float64 {
	// Guest time is already counted in User and Nice.
	return s.User + s.Nice + s.System + s.Idle + s.Iowait + s.IRQ + s.SoftIRQ + s.Steal
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
