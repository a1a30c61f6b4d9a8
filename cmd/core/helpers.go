package core

import (
	"context"
	"fmt"

	units "github.com/docker/go-units"
	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	"github.com/projecteru2/apkfetch/config"
	"github.com/projecteru2/apkfetch/connectivity"
	"github.com/projecteru2/apkfetch/connectivity/dial"
	"github.com/projecteru2/apkfetch/connectivity/netlink"
	"github.com/projecteru2/apkfetch/engine"
	"github.com/projecteru2/apkfetch/handoff"
	"github.com/projecteru2/apkfetch/manager"
	"github.com/projecteru2/apkfetch/orchestrator"
	"github.com/projecteru2/apkfetch/prefs"
	"github.com/projecteru2/apkfetch/version"
)

// BaseHandler provides shared config access for all command handlers.
type BaseHandler struct {
	ConfProvider func() *config.Config
}

// Init returns the command context and validated config in one call.
func (h BaseHandler) Init(cmd *cobra.Command) (context.Context, *config.Config, error) {
	conf, err := h.Conf()
	if err != nil {
		return nil, nil, err
	}
	return CommandContext(cmd), conf, nil
}

// Conf validates and returns the config. All handlers call this first.
func (h BaseHandler) Conf() (*config.Config, error) {
	if h.ConfProvider == nil {
		return nil, fmt.Errorf("config provider is nil")
	}
	conf := h.ConfProvider()
	if conf == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	return conf, nil
}

// CommandContext returns command context, falling back to Background.
func CommandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// InitEngine builds the embedded engine from the engine config section.
func InitEngine(conf *config.Config) (*engine.Engine, error) {
	if err := conf.EnsureEngineDirs(); err != nil {
		return nil, fmt.Errorf("ensure dirs: %w", err)
	}
	opts, err := engine.OptionsFromConfig(conf.Engine)
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = version.UserAgent()
	}
	return engine.New(opts), nil
}

// InitManager builds the download manager on top of its own engine.
// Callers must Close it.
func InitManager(ctx context.Context, conf *config.Config) (*manager.Manager, error) {
	eng, err := InitEngine(conf)
	if err != nil {
		return nil, err
	}
	m, err := manager.New(ctx, conf, eng)
	if err != nil {
		return nil, fmt.Errorf("init manager: %w", err)
	}
	return m, nil
}

// InitMonitor builds the connectivity monitor for the configured source.
func InitMonitor(conf *config.Config) (*connectivity.Monitor, error) {
	c := conf.Connectivity
	switch c.Source {
	case config.SourceNetlink:
		return connectivity.New(netlink.New(c.Interfaces)), nil
	case config.SourceDial:
		return connectivity.New(dial.New(c.DialAddress, c.DialInterval, c.DialTimeout)), nil
	default:
		return nil, fmt.Errorf("unknown connectivity source %q", c.Source)
	}
}

// Backends bundles everything an Orchestrator is wired to.
type Backends struct {
	Orchestrator *orchestrator.Orchestrator
	Engine       *engine.Engine
	Manager      *manager.Manager
	Monitor      *connectivity.Monitor
	Prefs        *prefs.Store

	unsubscribe func()
}

// Close stops the manager and releases the connectivity subscription.
func (b *Backends) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	if b.Manager != nil {
		b.Manager.Close()
	}
}

// ResumePending restarts manager jobs an earlier run left unfinished. They
// run alongside the new download for as long as this process lives.
func (b *Backends) ResumePending(ctx context.Context) {
	logger := log.WithFunc("cmd.ResumePending")
	ids, err := b.Manager.ResumePending(ctx)
	if err != nil {
		logger.Warnf(ctx, "resume pending downloads: %v", err)
		return
	}
	if len(ids) > 0 {
		logger.Infof(ctx, "resumed downloads: %v", ids)
	}
}

// InitOrchestrator wires every backend into an Orchestrator. The monitor is
// subscribed for the lifetime of the returned Backends so the gate stays
// current.
func InitOrchestrator(ctx context.Context, conf *config.Config) (*Backends, error) {
	eng, err := InitEngine(conf)
	if err != nil {
		return nil, err
	}
	mgr, err := manager.New(ctx, conf, eng)
	if err != nil {
		return nil, fmt.Errorf("init manager: %w", err)
	}
	store, err := prefs.New(conf)
	if err != nil {
		mgr.Close()
		return nil, fmt.Errorf("init prefs: %w", err)
	}
	monitor, err := InitMonitor(conf)
	if err != nil {
		mgr.Close()
		return nil, err
	}
	_, unsubscribe := monitor.Subscribe(ctx)

	orch := orchestrator.New(orchestrator.Options{
		Engine:       eng,
		Manager:      mgr,
		Opener:       handoff.New(conf.Openers),
		Prefs:        store,
		Gate:         monitor,
		DownloadDir:  conf.DownloadsDir(),
		PollInterval: conf.Manager.PollInterval,
		PollTimeout:  conf.Manager.PollTimeout,
	})
	return &Backends{
		Orchestrator: orch,
		Engine:       eng,
		Manager:      mgr,
		Monitor:      monitor,
		Prefs:        store,
		unsubscribe:  unsubscribe,
	}, nil
}

func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "-"
	}
	return units.HumanSize(float64(bytes))
}
