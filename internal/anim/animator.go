// Package anim drives smooth transitions of one or many joints from their
// current pose to a target pose over a fixed duration.
//
// Frames tick at a configurable rate. Every frame checks its run token
// against the registry before applying angles: starting a new run issues a
// fresh token and silently stops any run still in flight, so concurrent
// restores resolve as deterministic preemption instead of fighting over the
// same controllers.
package anim

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/visiona/armdeck/internal/joint"
	"github.com/visiona/armdeck/internal/pose"
)

// DefaultFrameRateHz paces animation frames when no rate is configured.
const DefaultFrameRateHz = 60.0

// Registry is the part of the joint registry the animator needs.
type Registry interface {
	Snapshot() pose.Pose
	FindByName(name string) (*joint.Controller, bool)
	NewRunToken() uuid.UUID
	TokenValid(token uuid.UUID) bool
}

// Animator interpolates joint display angles with an ease-in-out curve.
type Animator struct {
	registry      Registry
	frameInterval time.Duration
}

// New creates an animator ticking at frameRateHz.
func New(registry Registry, frameRateHz float64) *Animator {
	if frameRateHz <= 0 {
		frameRateHz = DefaultFrameRateHz
	}
	return &Animator{
		registry:      registry,
		frameInterval: time.Duration(float64(time.Second) / frameRateHz),
	}
}

// Start begins a run toward target, preempting any run in flight. The start
// pose is the registry snapshot restricted to the joints named in target;
// names without a registered controller are ignored. The returned channel
// closes when the run completes, is preempted, or ctx is cancelled.
//
// On completion every targeted joint holds exactly its target angle: the
// easing curve reaches 1 at full progress, and the final frame applies the
// targets directly.
func (a *Animator) Start(ctx context.Context, target pose.Pose, duration time.Duration) <-chan struct{} {
	token := a.registry.NewRunToken()
	start := a.registry.Snapshot().Restrict(target)
	done := make(chan struct{})

	if duration <= 0 {
		a.applyFrame(start, target, 1)
		close(done)
		return done
	}

	slog.Debug("animation run starting",
		"joints", len(start),
		"duration", duration,
	)

	go a.run(ctx, token, start, target, duration, done)
	return done
}

func (a *Animator) run(ctx context.Context, token uuid.UUID, start, target pose.Pose, duration time.Duration, done chan struct{}) {
	defer close(done)

	startTime := time.Now()
	ticker := time.NewTicker(a.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !a.registry.TokenValid(token) {
				slog.Debug("animation run preempted")
				return
			}

			progress := joint.Clamp(float64(now.Sub(startTime))/float64(duration), 0, 1)
			a.applyFrame(start, target, easeInOutQuad(progress))

			if progress >= 1 {
				slog.Debug("animation run complete", "elapsed", now.Sub(startTime))
				return
			}
		}
	}
}

// applyFrame sets every targeted joint to its interpolated angle. Only
// joints captured in the start pose participate; the rest were not
// registered when the run began.
func (a *Animator) applyFrame(start, target pose.Pose, eased float64) {
	for name, targetAngle := range target {
		startAngle, ok := start[name]
		if !ok {
			continue
		}
		c, ok := a.registry.FindByName(name)
		if !ok {
			continue
		}
		if eased >= 1 {
			// Final frame lands on the target exactly, no interpolation rounding.
			c.SetDisplayAngle(targetAngle)
			continue
		}
		c.SetDisplayAngle(startAngle + (targetAngle-startAngle)*eased)
	}
}

// easeInOutQuad maps progress in [0,1] to an eased fraction in [0,1].
// Quadratic in, quadratic out; exactly 1 at progress 1.
func easeInOutQuad(progress float64) float64 {
	if progress < 0.5 {
		return 2 * progress * progress
	}
	f := -2*progress + 2
	return 1 - f*f/2
}
