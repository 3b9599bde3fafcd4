// Package download simulates package transfers as a fixed sequence of timed
// progress steps. Nothing here runs on its own: the host advances a transfer
// by calling Tick.
package download

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/S1riyS/happyphone/server/internal/models"
)

const (
	StepCount     = 20
	MinStepWait   = 500 * time.Millisecond
	MinRecalcWait = 200 * time.Millisecond
	waitVariation = 0.1
	fallbackSpeed = 500
)

// Rand is the source of jitter. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Step is one progress increment. Wait is how long the step stays current
// before the next one may be shown.
type Step struct {
	Progress float64
	Message  string
	Wait     time.Duration
	Terminal bool
}

// TransferTime is the simulated duration of moving sizeKB over the link:
// raw transfer time plus latency and jitter, scaled up by packet loss.
// A disabled link takes no time.
func TransferTime(sizeKB float64, cfg models.NetworkConfig, rnd Rand) time.Duration {
	if !cfg.Enabled || sizeKB <= 0 {
		return 0
	}

	speed := cfg.SpeedMbps
	if speed <= 0 {
		speed = fallbackSpeed
	}

	ms := (sizeKB * 8 / (speed * 1000)) * 1000
	ms += math.Max(cfg.LatencyMs, 0)
	if cfg.JitterMs > 0 {
		ms += rnd.Float64() * cfg.JitterMs
	}
	if cfg.PacketLossPercent > 0 {
		ms *= 1 + cfg.PacketLossPercent/100
	}

	return time.Duration(math.Round(ms)) * time.Millisecond
}

// Plan builds the steps of a fresh transfer. A zero total gives a single
// terminal step.
func Plan(pkg string, sizeKB float64, total time.Duration, rnd Rand) []Step {
	if total <= 0 {
		return []Step{instantStep(sizeKB)}
	}

	stepSize := 100.0 / StepCount
	base := max(MinStepWait, roundMs(float64(total)/StepCount))

	steps := make([]Step, 0, StepCount)
	for i := range StepCount {
		progress := float64(i+1) * stepSize
		terminal := i == StepCount-1

		msg := progressMessage(pkg, progress, sizeKB)
		if terminal {
			msg = fmt.Sprintf("Downloaded %s in %s", FormatSize(sizeKB), FormatTime(total))
		}

		steps = append(steps, Step{
			Progress: progress,
			Message:  msg,
			Wait:     jitterWait(base, MinStepWait, rnd),
			Terminal: terminal,
		})
	}
	return steps
}

// Replan rebuilds the steps after current for a new link configuration,
// starting from the progress already reached. spent is the simulated
// time of the completed part and only shows up in the final message.
func Replan(pkg string, sizeKB float64, done Step, spent time.Duration, cfg models.NetworkConfig, rnd Rand) []Step {
	remainingPct := 100 - done.Progress
	count := int(math.Ceil(remainingPct/(100.0/StepCount) - 1e-9))
	if count <= 0 {
		return nil
	}

	remaining := TransferTime(sizeKB*remainingPct/100, cfg, rnd)
	if remaining <= 0 {
		return []Step{instantStep(sizeKB)}
	}

	stepSize := remainingPct / float64(count)
	base := max(MinRecalcWait, roundMs(float64(remaining)/float64(count)))

	steps := make([]Step, 0, count)
	for i := range count {
		progress := math.Min(done.Progress+float64(i+1)*stepSize, 100)
		terminal := i == count-1 || progress >= 100

		msg := progressMessage(pkg, progress, sizeKB)
		if terminal {
			msg = fmt.Sprintf("Downloaded %s in %s", FormatSize(sizeKB), FormatTime(remaining+spent))
		}

		steps = append(steps, Step{
			Progress: progress,
			Message:  msg,
			Wait:     jitterWait(base, MinRecalcWait, rnd),
			Terminal: terminal,
		})
		if terminal {
			break
		}
	}
	return steps
}

func instantStep(sizeKB float64) Step {
	return Step{
		Progress: 100,
		Message:  fmt.Sprintf("Downloaded %s instantly", FormatSize(sizeKB)),
		Terminal: true,
	}
}

func progressMessage(pkg string, progress, sizeKB float64) string {
	done := sizeKB * progress / 100
	return fmt.Sprintf("Downloading %s... %.1f%% (%s/%s)", pkg, progress, formatPartial(done), FormatSize(sizeKB))
}

// jitterWait varies base by up to ±10% and never goes below floor.
func jitterWait(base, floor time.Duration, rnd Rand) time.Duration {
	variation := 1 + (rnd.Float64()*2*waitVariation - waitVariation)
	return max(floor, roundMs(float64(base)*variation))
}

func roundMs(ns float64) time.Duration {
	return time.Duration(math.Round(ns/float64(time.Millisecond))) * time.Millisecond
}

// FormatSize renders a size given in KB, switching to MB from 1024 KB.
func FormatSize(sizeKB float64) string {
	if sizeKB < 1024 {
		return strconv.FormatFloat(sizeKB, 'f', -1, 64) + " KB"
	}
	return fmt.Sprintf("%.2f MB", sizeKB/1024)
}

func formatPartial(sizeKB float64) string {
	if sizeKB < 1024 {
		return fmt.Sprintf("%.1f KB", sizeKB)
	}
	return fmt.Sprintf("%.2f MB", sizeKB/1024)
}

// FormatTime renders d in milliseconds below one second, in seconds above.
func FormatTime(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%d ms", ms)
	}
	return fmt.Sprintf("%.2f seconds", float64(ms)/1000)
}
