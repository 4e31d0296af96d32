package core

import (
	"context"
	"fmt"
	"time"

	"github.com/visiona/armdeck/internal/bridge"
	"github.com/visiona/armdeck/internal/pose"
	"github.com/visiona/armdeck/internal/web"
)

// ctx returns the run context, or Background before Run starts.
func (a *Armdeck) ctx() context.Context {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.runCtx != nil {
		return a.runCtx
	}
	return context.Background()
}

func (a *Armdeck) defaultDuration() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return time.Duration(a.cfg.Animation.DefaultDurationMs) * time.Millisecond
}

// move applies a full or partial pose; shared by the bridge and the web
// surface. Joint names without a controller are ignored silently.
func (a *Armdeck) move(p pose.Pose, animate bool, duration time.Duration) error {
	if duration == 0 {
		duration = a.defaultDuration()
	}
	a.registry.Restore(a.ctx(), p, animate, duration)
	return nil
}

// moveJoint sets a single joint directly.
func (a *Armdeck) moveJoint(name string, angle float64) error {
	c, ok := a.registry.FindByName(name)
	if !ok {
		return fmt.Errorf("no joint %q", name)
	}
	c.SetDisplayAngle(angle)
	return nil
}

// home drives every joint to display angle zero, clamped to each joint's
// range.
func (a *Armdeck) home(animate bool) error {
	target := make(pose.Pose)
	for _, c := range a.registry.All() {
		target[c.Name()] = 0
	}
	return a.move(target, animate, a.defaultDuration())
}

// hover relays browser pointer events onto the scene node, which fans them
// back out to every client through the controller's hover callback.
func (a *Armdeck) hover(name string, hovered bool) {
	node, err := a.scene.ResolveNode(name)
	if err != nil {
		return
	}
	node.SetHovered(hovered)
}

func (a *Armdeck) bridgeCallbacks() bridge.Callbacks {
	return bridge.Callbacks{
		OnMove:      a.move,
		OnMoveJoint: a.moveJoint,
		OnHome:      a.home,
		OnGetPose:   a.emitter.PublishPose,
		OnSetRate:   a.emitter.SetRate,
		OnSetPublish: func(enabled bool) error {
			a.emitter.SetAutoPublish(enabled)
			return nil
		},
		OnUpdateConfig: a.UpdateConfig,
	}
}

func (a *Armdeck) webCallbacks() web.Callbacks {
	return web.Callbacks{
		OnSetJoint: func(name string, angle float64) {
			// Unknown joints from a stale client are ignored, same as restore.
			_ = a.moveJoint(name, angle)
		},
		OnRestore: func(p pose.Pose, animate bool, duration time.Duration) {
			_ = a.move(p, animate, duration)
		},
		OnHome: func(animate bool) {
			_ = a.home(animate)
		},
		OnHover:  a.hover,
		Snapshot: a.registry.Snapshot,
	}
}
