// Package perf measures frame rate and process resource usage.
package perf

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Counter computes frames per second over windows of at least one second.
type Counter struct {
	now    func() time.Time
	target float64

	start  time.Time
	frames int
	total  uint64
	fps    float64
}

func NewCounter(target float64, now func() time.Time) *Counter {
	if now == nil {
		now = time.Now
	}
	return &Counter{now: now, target: target, start: now(), fps: target}
}

// Frame records one rendered frame.
func (c *Counter) Frame() {
	c.frames++
	c.total++

	elapsed := c.now().Sub(c.start)
	if elapsed >= time.Second {
		c.fps = float64(c.frames) / elapsed.Seconds()
		c.frames = 0
		c.start = c.now()
	}
}

// FPS is the rate of the last complete window, the target before that.
func (c *Counter) FPS() float64 { return c.fps }

func (c *Counter) Total() uint64 { return c.total }

// FrameBudget is the frame interval at the target rate.
func (c *Counter) FrameBudget() time.Duration {
	if c.target <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.target)
}

// Stats is one resource sample.
type Stats struct {
	FPS        float64
	Frames     uint64
	RSS        uint64
	CPUPercent float64
}

func (s Stats) String() string {
	return fmt.Sprintf("fps=%.1f frames=%d rss=%.1fMB cpu=%.1f%%",
		s.FPS, s.Frames, float64(s.RSS)/(1<<20), s.CPUPercent)
}

// Sampler reads the current process's memory and CPU usage.
type Sampler struct {
	proc *process.Process
}

func NewSampler() (*Sampler, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open process: %w", err)
	}
	return &Sampler{proc: p}, nil
}

// Sample combines the counter with process statistics.
func (s *Sampler) Sample(ctx context.Context, c *Counter) (Stats, error) {
	st := Stats{FPS: c.FPS(), Frames: c.Total()}
	mem, err := s.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return st, fmt.Errorf("memory info: %w", err)
	}
	st.RSS = mem.RSS
	cpu, err := s.proc.CPUPercentWithContext(ctx)
	if err != nil {
		return st, fmt.Errorf("cpu percent: %w", err)
	}
	st.CPUPercent = cpu
	return st, nil
}
