// Package core wires the armdeck components together: the simulated scene,
// one controller per joint, the registry, the animator, pose persistence,
// the browser control surface, and the MQTT bridge.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/visiona/armdeck/internal/anim"
	"github.com/visiona/armdeck/internal/bridge"
	"github.com/visiona/armdeck/internal/config"
	"github.com/visiona/armdeck/internal/joint"
	"github.com/visiona/armdeck/internal/pose"
	"github.com/visiona/armdeck/internal/posebus"
	"github.com/visiona/armdeck/internal/scene"
	"github.com/visiona/armdeck/internal/web"
)

// Armdeck is the service orchestrator.
type Armdeck struct {
	cfg *config.Config

	scene    *scene.Scene
	registry *joint.Registry
	animator *anim.Animator
	store    *pose.Store
	bus      *posebus.Bus
	web      *web.Server
	emitter  *bridge.Emitter
	handler  *bridge.Handler

	started   time.Time
	mu        sync.RWMutex
	wg        sync.WaitGroup
	isRunning bool
	runCtx    context.Context
}

// New loads the configuration at configPath and builds the service.
func New(configPath string) (*Armdeck, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds the service from an already-validated configuration.
func NewWithConfig(cfg *config.Config) (*Armdeck, error) {
	backend, err := pose.NewFileBackend(cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open pose storage: %w", err)
	}

	a := &Armdeck{
		cfg:      cfg,
		scene:    scene.New(),
		registry: joint.NewRegistry(),
		store:    pose.NewStore(backend),
		bus:      posebus.New(),
	}

	// Static registration contract: every node the controllers care about
	// is registered by name up front, no runtime tree search.
	for _, jc := range cfg.Joints {
		a.scene.Register(jc.Name, r3.Vec{X: jc.Axis[0], Y: jc.Axis[1], Z: jc.Axis[2]})
	}

	resolver := joint.ResolverFunc(func(name string) (joint.NodeHandle, error) {
		return a.scene.ResolveNode(name)
	})

	for _, jc := range cfg.Joints {
		c := joint.NewController(joint.ControllerConfig{
			Spec: joint.Spec{
				Name:              jc.Name,
				HomeOffsetDegrees: jc.HomeOffsetDeg,
				MinDisplayAngle:   jc.MinDeg,
				MaxDisplayAngle:   jc.MaxDeg,
				RotationAxis:      r3.Vec{X: jc.Axis[0], Y: jc.Axis[1], Z: jc.Axis[2]},
			},
			Resolver: resolver,
		})
		c.OnDisplayChanged(func(name string, angle float64) {
			a.bus.Publish(posebus.Update{
				Kind:      posebus.KindAngle,
				Joint:     name,
				Angle:     angle,
				Timestamp: time.Now(),
			})
		})
		c.OnHoverChanged(func(name string, hovered bool) {
			a.bus.Publish(posebus.Update{
				Kind:      posebus.KindHover,
				Joint:     name,
				Hovered:   hovered,
				Timestamp: time.Now(),
			})
		})
		if err := a.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register joint %q: %w", jc.Name, err)
		}
	}

	a.animator = anim.New(a.registry, cfg.Animation.FrameRateHz)
	a.registry.SetAnimator(a.animator)

	a.emitter = bridge.NewEmitter(cfg, a.registry.Snapshot)

	hub := web.NewHub(a.webCallbacks())
	a.web = web.NewServer(cfg, hub, a.store, a.Status)

	slog.Info("armdeck assembled", "joints", len(cfg.Joints))
	return a, nil
}

// Run starts all components and blocks until ctx is cancelled.
func (a *Armdeck) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.isRunning {
		a.mu.Unlock()
		return fmt.Errorf("service is already running")
	}
	a.isRunning = true
	a.started = time.Now()
	a.runCtx = ctx
	a.mu.Unlock()

	slog.Info("armdeck service starting", "instance_id", a.cfg.InstanceID)

	// The simulated scene finishes loading immediately; controllers attach
	// on their own goroutines and retry if a node resolves late.
	a.scene.MarkLoaded()
	for _, c := range a.registry.All() {
		a.wg.Add(1)
		go func(c *joint.Controller) {
			defer a.wg.Done()
			c.Attach(ctx)
		}(c)
	}

	// Restore the pose the last session left behind. A malformed payload is
	// reported and skipped; the arm stays at its construction pose.
	if p, err := a.store.LoadActive(); err != nil {
		slog.Warn("stored active pose unreadable, starting from defaults", "error", err)
	} else if p != nil {
		a.registry.Restore(ctx, p, false, 0)
		slog.Info("active pose restored", "joints", len(p))
	}

	// Browser control surface.
	webCh := make(chan posebus.Update, 64)
	if err := a.bus.Subscribe("web", webCh); err != nil {
		return fmt.Errorf("failed to subscribe web surface: %w", err)
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.web.PumpUpdates(ctx, webCh)
	}()
	a.web.Start(ctx)

	// MQTT bridge, only when a broker is configured. The control surface is
	// fully usable without it.
	if a.cfg.MQTT.Broker != "" {
		if err := a.emitter.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect mqtt: %w", err)
		}

		a.handler = bridge.NewHandler(a.cfg, a.emitter.Client, a.bridgeCallbacks())
		if err := a.handler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start command handler: %w", err)
		}

		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.emitter.Run(ctx)
		}()
	} else {
		slog.Info("no mqtt broker configured, network bridge disabled")
	}

	slog.Info("armdeck service running",
		"joints", len(a.registry.All()),
		"bridge_enabled", a.cfg.MQTT.Broker != "",
	)

	<-ctx.Done()

	slog.Info("armdeck service run loop exiting")
	return nil
}

// Shutdown persists the active pose and stops all components.
func (a *Armdeck) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if !a.isRunning {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	slog.Info("shutting down armdeck service")

	if err := a.store.SaveActive(a.registry.Snapshot()); err != nil {
		slog.Error("failed to persist active pose", "error", err)
	}

	if a.handler != nil {
		if err := a.handler.Stop(); err != nil {
			slog.Error("failed to stop command handler", "error", err)
		}
	}

	if err := a.web.Shutdown(ctx); err != nil {
		slog.Error("failed to stop control surface", "error", err)
	}

	a.bus.Close()

	slog.Info("waiting for goroutines to finish")
	a.wg.Wait()

	if a.emitter != nil {
		if err := a.emitter.Disconnect(); err != nil {
			slog.Error("failed to disconnect mqtt", "error", err)
		}
	}

	a.mu.Lock()
	uptime := time.Since(a.started)
	a.isRunning = false
	a.mu.Unlock()

	slog.Info("armdeck service shutdown complete", "uptime", uptime)
	return nil
}

// Status returns a snapshot of service state for the health endpoint.
func (a *Armdeck) Status() map[string]interface{} {
	health := a.HealthCheck()

	status := map[string]interface{}{
		"instance_id":     a.cfg.InstanceID,
		"status":          health.Status,
		"running":         health.Status != "unhealthy",
		"joints":          health.Joints,
		"joints_attached": health.JointsAttached,
		"uptime_s":        health.UptimeSeconds,
	}
	if a.cfg.MQTT.Broker != "" {
		status["mqtt_connected"] = health.MQTTConnected
	}
	return status
}

// ShutdownTimeout returns the configured graceful shutdown timeout,
// defaulting to 5 seconds.
func (a *Armdeck) ShutdownTimeout() time.Duration {
	timeout := time.Duration(a.cfg.ShutdownTimeoutS) * time.Second
	if timeout == 0 {
		return 5 * time.Second
	}
	return timeout
}
