package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/term"

	"github.com/pleimann/keymode/internal/action"
	"github.com/pleimann/keymode/internal/command"
	"github.com/pleimann/keymode/internal/config"
	"github.com/pleimann/keymode/internal/display"
	"github.com/pleimann/keymode/internal/gesture"
	"github.com/pleimann/keymode/internal/hid"
	"github.com/pleimann/keymode/internal/input"
	"github.com/pleimann/keymode/internal/mode"
	"github.com/pleimann/keymode/internal/pty"
	"github.com/pleimann/keymode/internal/state"
	"github.com/pleimann/keymode/internal/stats"
	"github.com/pleimann/keymode/internal/utils"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	watcher *config.Watcher
	logger  *slog.Logger

	modes      *mode.Manager
	modeNames  []string
	state      *state.File
	saves      chan string
	savesDone  chan struct{}
	session    *pty.Session
	dispatcher *action.Dispatcher
	engine     *gesture.Engine
	normalizer *input.Normalizer
	source     input.Source
	hidDevice  *hid.Device
	display    *display.Manager
	stats      *stats.Store
}

func newApp(watcher *config.Watcher, logger *slog.Logger) (*App, error) {
	cfg := watcher.Get()
	app := &App{
		watcher:   watcher,
		logger:    logger,
		modeNames: cfg.ModeNames(),
		state:     state.Open(cfg.State.Path),
		saves:     make(chan string, 8),
		savesDone: make(chan struct{}),
	}

	modes, err := mode.NewManager(modeDefinitions(cfg), startMode(cfg, app.state, logger), logger)
	if err != nil {
		return nil, err
	}
	app.modes = modes

	if cfg.Session != nil {
		session, err := pty.NewSession(cfg.Session.Command, cfg.Session.Args, cfg.Session.WorkingDir, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		app.session = session
	}

	registry, table, err := app.buildCommands(cfg)
	if err != nil {
		return nil, err
	}

	app.dispatcher = action.NewDispatcher(action.Config{
		Workers:        cfg.Dispatch.Workers,
		QueueSize:      cfg.Dispatch.QueueSize,
		DefaultTimeout: time.Duration(cfg.Dispatch.TimeoutMs) * time.Millisecond,
	}, modes, table, registry, logger)
	app.dispatcher.AddReporter(action.NewLogReporter(logger))

	if store, err := stats.Open(statsPath(cfg), logger); err != nil {
		logger.Warn("statistics disabled", "path", statsPath(cfg), "err", err)
	} else {
		app.stats = store
		app.dispatcher.AddReporter(store)
		modes.OnChange(store.RecordModeChange)
	}

	modes.OnChange(func(_, to mode.Mode) {
		select {
		case app.saves <- to.Name:
		default:
			logger.Debug("state save skipped", "mode", to.Name)
		}
	})

	app.engine = gesture.NewEngine(cfg.Thresholds(), app.onGesture, logger)
	app.normalizer = input.NewNormalizer(cfg.MonitoredKeys, logger)

	if err := app.openSource(cfg); err != nil {
		app.closeStats()
		return nil, err
	}

	watcher.OnReload(app.reload)
	return app, nil
}

func modeDefinitions(cfg *config.Config) []mode.Definition {
	defs := make([]mode.Definition, len(cfg.Modes))
	for i, m := range cfg.Modes {
		defs[i] = mode.Definition{Name: m.Name, Title: m.Title}
	}
	return defs
}

// statsPath returns the statistics database, by default under the config dir
func statsPath(cfg *config.Config) string {
	if cfg.Stats.Path == "" {
		return filepath.Join(utils.ConfigDir(), "stats.db")
	}
	return utils.ExpandHome(cfg.Stats.Path)
}

// startMode picks the saved mode when it still exists, else the configured one
func startMode(cfg *config.Config, st *state.File, logger *slog.Logger) string {
	saved, err := st.Load()
	if err != nil {
		logger.Warn("failed to read state", "path", st.Path(), "err", err)
		return cfg.InitialMode
	}
	for _, name := range cfg.ModeNames() {
		if saved.Mode != "" && name == saved.Mode {
			return saved.Mode
		}
	}
	return cfg.InitialMode
}

func (a *App) buildCommands(cfg *config.Config) (*action.Registry, *action.Table, error) {
	deps := command.Deps{
		Modes:  a.modes,
		Logger: a.logger,
	}
	if a.session != nil {
		deps.Session = a.session
	}

	registry, err := command.Build(cfg, deps)
	if err != nil {
		return nil, nil, err
	}
	table, err := action.NewTable(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := registry.Check(table); err != nil {
		return nil, nil, err
	}
	return registry, table, nil
}

func (a *App) openSource(cfg *config.Config) error {
	switch cfg.Input.Source {
	case config.SourceHID:
		device, err := hid.NewDevice(cfg.Input.VendorID, cfg.Input.ProductID, a.logger)
		if err != nil {
			return fmt.Errorf("failed to open HID device: %w", err)
		}
		a.hidDevice = device
		a.source = input.NewHIDSource(device, a.logger)

		if cfg.Display.Enabled {
			a.display = display.NewManager(cfg.Display, device, a.logger)
			a.modes.OnChange(a.display.OnModeChange)
			a.dispatcher.AddReporter(action.ReporterFunc(a.display.ShowInvocation))
		}
	default:
		a.source = input.NewEvdevSource(cfg.Input.Device, a.logger)
	}
	return nil
}

// onGesture runs on the engine loop
func (a *App) onGesture(g gesture.Gesture) {
	a.logger.Debug("gesture", "gesture", g.String())
	if a.stats != nil {
		a.stats.RecordGesture(a.modes.Current(), g)
	}
	a.dispatcher.Dispatch(g)
}

// reload applies a changed config. Bindings, commands and timing change in
// place; the mode list, input and session need a restart.
func (a *App) reload(cfg *config.Config) {
	if !slices.Equal(cfg.ModeNames(), a.modeNames) {
		a.logger.Warn("mode list changed, restart to apply", "modes", cfg.ModeNames())
		return
	}

	registry, table, err := a.buildCommands(cfg)
	if err != nil {
		a.logger.Error("failed to apply config", "err", err)
		return
	}

	// Swap on the loop so no gesture resolves against a mixed table
	err = a.engine.Do(func() {
		a.dispatcher.SetTable(table)
		a.dispatcher.SetRegistry(registry)
	})
	if err == nil {
		err = a.engine.SetThresholds(cfg.Thresholds())
	}
	if err != nil {
		a.logger.Error("failed to apply config", "err", err)
		return
	}
	a.normalizer.SetKeys(cfg.MonitoredKeys)

	a.logger.Info("config applied", "bindings", table.Len(), "commands", len(registry.Commands()))
}

// saveState writes mode changes in order, off the engine loop
func (a *App) saveState() {
	defer close(a.savesDone)
	for name := range a.saves {
		if err := a.state.SaveMode(name); err != nil {
			a.logger.Warn("failed to save state", "path", a.state.Path(), "err", err)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	if a.stats != nil {
		if err := a.stats.StartSession(); err != nil {
			a.logger.Warn("failed to record session", "err", err)
		}
	}

	go a.saveState()
	a.dispatcher.Start()
	a.engine.Start(ctx)

	if a.session != nil {
		if err := a.session.Start(ctx); err != nil {
			a.shutdown()
			return fmt.Errorf("failed to start session: %w", err)
		}
		if cols, rows, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			if err := a.session.Resize(uint16(rows), uint16(cols)); err != nil {
				a.logger.Debug("failed to size session", "err", err)
			}
		}
	}

	a.watcher.Start()

	if a.display != nil {
		a.display.ShowMode(a.modes.Current())
		a.display.Start(ctx)
	}

	a.logger.Info("ready", "mode", a.modes.Current().Name, "source", a.watcher.Get().Input.Source)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	raw := make(chan input.RawKey, 64)
	sourceErr := make(chan error, 1)
	go func() {
		sourceErr <- a.source.Run(runCtx, raw)
		cancel()
	}()

	err := a.normalizer.Run(runCtx, raw, a.engine.Submit)
	cancel()
	if serr := <-sourceErr; serr != nil && !errors.Is(serr, context.Canceled) {
		err = serr
	}

	a.shutdown()

	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) shutdown() {
	a.logger.Debug("shutting down")

	a.watcher.Stop()
	a.engine.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.dispatcher.Stop(ctx); err != nil {
		a.logger.Warn("handlers still running at shutdown", "err", err)
	}

	if a.display != nil {
		a.display.Stop()
	}
	if a.session != nil {
		a.session.Stop()
	}

	close(a.saves)
	<-a.savesDone
	if err := a.state.SaveMode(a.modes.Current().Name); err != nil {
		a.logger.Warn("failed to save state", "path", a.state.Path(), "err", err)
	}

	a.closeStats()
	if a.hidDevice != nil {
		a.hidDevice.Close()
	}
}

func (a *App) closeStats() {
	if a.stats == nil {
		return
	}
	if err := a.stats.Close(); err != nil {
		a.logger.Warn("failed to close statistics", "err", err)
	}
}
