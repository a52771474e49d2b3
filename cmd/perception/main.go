package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	bus "github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/npc"
	"github.com/zeusync/perception/internal/core/observability/log"
	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/core/systems"
	"github.com/zeusync/perception/internal/core/systems/physics"
	"github.com/zeusync/perception/internal/debugdraw"
	"github.com/zeusync/perception/internal/injector"
)

func main() {
	scenePath := flag.String("scene", "configs/scene.yaml", "Scene file")
	feedAddr := flag.String("feed", "", "Serve the debug feed on this address, e.g. 127.0.0.1:8090")
	tui := flag.Bool("tui", false, "Draw the first sensor in the terminal")
	debugMode := flag.Bool("debug", true, "Draw sensor bounds and labels")
	logFile := flag.String("log-file", "", "Write logs here instead of stderr")
	flag.Parse()

	if err := run(*scenePath, *feedAddr, *tui, *debugMode, *logFile); err != nil {
		fmt.Fprintln(os.Stderr, "perception:", err)
		os.Exit(1)
	}
}

func run(scenePath, feedAddr string, tui, debugMode bool, logFile string) error {
	sc, err := loadSceneFile(scenePath)
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}

	var outputs []string
	if logFile != "" {
		outputs = append(outputs, logFile)
	} else if tui {
		outputs = append(outputs, "perception.log")
	}
	logger := log.New(log.ParseLevel(sc.logLevel), outputs...)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := bus.New()
	sensors := make([]*perception.Sensor, 0, len(sc.sensors))
	byID := make(map[string]*perception.Sensor, len(sc.sensors))
	for _, spec := range sc.sensors {
		var s *perception.Sensor
		if spec.Eye == "" {
			s = injector.InitializeSensor(sc.space, sc.space, physics.BodyID(spec.Owner), sc.config, sc.catalog, events)
		} else {
			s = perception.New(sc.space, sc.space, physics.BodyID(spec.Owner),
				perception.WithID(spec.Owner),
				perception.WithConfig(sc.config),
				perception.WithEye(physics.BodyID(spec.Eye)),
				perception.WithClassifier(sc.catalog),
				perception.WithEvents(events),
				perception.WithLogger(logger),
			)
		}
		sensors = append(sensors, s)
		byID[s.ID()] = s
	}

	reg := npc.NewRegistry()
	npc.RegisterBuiltins(reg)
	npc.RegisterVision(reg, func(name string) (*perception.Sensor, bool) {
		s, ok := byID[name]
		return s, ok
	})
	agents := make([]*npc.Agent, 0, len(sc.agents))
	for _, spec := range sc.agents {
		tree := spec.Tree
		a, err := npc.BuildAgent(spec.Name, &tree, reg, npc.WithAgentEvents(events), npc.WithAgentLogger(logger))
		if err != nil {
			return err
		}
		agents = append(agents, a)
	}
	if _, err := events.Subscribe(npc.StepEvent, logStatusChanges(logger)); err != nil {
		return err
	}

	if feedAddr != "" {
		feed, err := injector.InitializeFeed(events)
		if err != nil {
			return err
		}
		if err := feed.Start(feedAddr); err != nil {
			return err
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			if err := feed.Stop(stopCtx); err != nil {
				logger.Warn("feed shutdown", log.Error(err))
			}
		}()
	}

	quit := make(chan struct{})
	if tui && len(sensors) > 0 {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		defer screen.Fini()

		follow := sensors[0]
		center, _ := sc.space.Position(follow.Owner())
		scale := float64(screenRows(screen)) / (2.2 * sc.config.SensorRadius)
		observer := debugdraw.NewObserver(debugdraw.NewTerminalDrawer(screen, center, scale), debugMode, logger)
		observer.Follow(follow.ID())
		if _, err := observer.Attach(events); err != nil {
			return err
		}
		go pollKeys(screen, observer, quit)
	}

	for _, s := range sensors {
		s.Start(ctx)
	}
	logger.Info("scene running",
		log.Int("bodies", sc.space.Len()),
		log.Int("sensors", len(sensors)),
		log.Int("agents", len(agents)))

	frame, err := newFrame(sc, agents, logger)
	if err != nil {
		return err
	}

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)

	interval := sc.config.ScanInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			logger.Info("shutting down")
			cancel()
			for _, s := range sensors {
				s.Stop()
			}
			return nil
		case <-quit:
			cancel()
			for _, s := range sensors {
				s.Stop()
			}
			return nil
		case <-ticker.C:
			// Failures are logged per system by the manager.
			_ = frame.Update(ctx, interval.Seconds())
		}
	}
}

// newFrame registers the per-frame systems: patrols move bodies before
// agents read what their sensors saw.
func newFrame(sc *scene, agents []*npc.Agent, logger log.Log) (*systems.Manager, error) {
	frame := systems.NewManager(logger)
	movement := systems.SystemFunc{
		SystemName:     "patrols",
		SystemPriority: systems.PriorityHigh,
		Fn: func(_ context.Context, dt float64) error {
			for _, p := range sc.patrols {
				if err := p.advance(sc.space, dt); err != nil {
					logger.Warn("patrol stopped", log.String("body", string(p.body)), log.Error(err))
				}
			}
			return nil
		},
	}
	brains := systems.SystemFunc{
		SystemName:     "agents",
		SystemPriority: systems.PriorityNormal,
		Fn: func(ctx context.Context, _ float64) error {
			var errs []error
			for _, a := range agents {
				if _, err := a.Step(ctx); err != nil {
					errs = append(errs, fmt.Errorf("agent %s: %w", a.Name(), err))
				}
			}
			return errors.Join(errs...)
		},
	}
	for _, s := range []systems.System{movement, brains} {
		if err := frame.Register(s); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func screenRows(screen tcell.Screen) int {
	_, h := screen.Size()
	return h
}

// pollKeys closes quit on Esc, q or Ctrl-C; d toggles debug mode.
func pollKeys(screen tcell.Screen, observer *debugdraw.Observer, quit chan struct{}) {
	for {
		switch ev := screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC,
				ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
				close(quit)
				return
			case ev.Key() == tcell.KeyRune && ev.Rune() == 'd':
				observer.SetDebugMode(!observer.DebugMode())
			}
		case *tcell.EventResize:
			screen.Sync()
		}
	}
}

// logStatusChanges logs an agent's root status whenever it differs from the
// previous step.
func logStatusChanges(logger log.Log) bus.EventHandler {
	last := make(map[string]npc.Status)
	return func(e bus.Event) error {
		res, ok := e.Data().(npc.StepResult)
		if !ok {
			return nil
		}
		if prev, seen := last[res.Agent]; seen && prev == res.Status {
			return nil
		}
		last[res.Agent] = res.Status
		logger.Info("agent status", log.String("agent", res.Agent), log.String("status", res.Status.String()))
		return nil
	}
}
