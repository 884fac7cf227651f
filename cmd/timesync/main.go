package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/tnicklin/time_sync/clock"
	"github.com/tnicklin/time_sync/config"
	"github.com/tnicklin/time_sync/display"
	"github.com/tnicklin/time_sync/logger"
	"github.com/tnicklin/time_sync/privilege"
	"github.com/tnicklin/time_sync/status"
	"github.com/tnicklin/time_sync/store"
	"github.com/tnicklin/time_sync/syncer"
	"github.com/tnicklin/time_sync/timeservice"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := &runParams{}
	err := newRootCmd(p).ExecuteContext(ctx)
	p.Close()
	if err != nil {
		os.Exit(1)
	}
}

func build(ctx context.Context, files []string) (runParams, error) {
	cfg, err := config.LoadWithDefaults(files...)
	if err != nil {
		return runParams{}, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return runParams{}, fmt.Errorf("initialize logger: %w", err)
	}

	journal := status.NewJournal(status.Params{Sink: appLogger})

	history := store.NewSQLiteStore(store.Params{Path: cfg.Store.Path, Logger: appLogger})
	if err = history.Open(ctx); err != nil {
		return runParams{}, fmt.Errorf("open session store: %w", err)
	}

	var offsets store.OffsetStore
	switch cfg.Store.Kind {
	case store.KindFile:
		offsets = store.NewFileStore(cfg.Store.OffsetPath)
	case store.KindSQLite:
		offsets = history
	default:
		_ = history.Close()
		return runParams{}, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}

	probe := clock.NewProbe(append(cfg.Probe.Options(), clock.WithLogger(journal))...)
	var prober syncer.DriftProber
	if cfg.Probe.AfterSync {
		prober = probe
	}

	svc := timeservice.New(timeservice.Params{
		Runner:   &timeservice.ExecRunner{Timeout: cfg.Service.CommandTimeout},
		Commands: cfg.Service.Commands,
	})

	trigger := display.NewTrigger()
	ctrl := syncer.New(syncer.Params{
		Config:     cfg.Sync,
		Service:    svc,
		Privileged: privilege.IsPrivileged,
		Logger:     journal,
		History:    history,
		Probe:      prober,
		OnStart:    func(s *syncer.Session) { trigger.Started(s.ID()) },
		OnFinish:   trigger.Finished,
	})

	return runParams{
		Config:     cfg,
		Logger:     appLogger,
		Journal:    journal,
		Offsets:    offsets,
		History:    history,
		Virtual:    clock.NewVirtual(clock.VirtualParams{Logger: journal}),
		Probe:      probe,
		Controller: ctrl,
		Trigger:    trigger,
	}, nil
}

type runParams struct {
	Config     *config.AppConfig
	Logger     logger.Logger
	Journal    *status.Journal
	Offsets    store.OffsetStore
	History    *store.SQLiteStore
	Virtual    *clock.Virtual
	Probe      *clock.Probe
	Controller *syncer.Controller
	Trigger    *display.Trigger

	stopEcho func()
}

// echo prints journal entries to w until Close.
func (p *runParams) echo(w io.Writer) {
	entries, cancel := p.Journal.Subscribe(256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			fmt.Fprintln(w, e.String())
		}
	}()
	p.stopEcho = func() {
		cancel()
		<-done
	}
}

// banner logs the host platform and warns when only virtual time is
// available.
func (p *runParams) banner(ctx context.Context) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		p.Journal.WarnW("could not read host information", "error", err)
	} else {
		p.Journal.InfoW("time synchronization tool started",
			"os", info.OS,
			"platform", info.Platform,
			"version", info.PlatformVersion,
			"kernel", info.KernelVersion,
		)
	}
	if !privilege.IsPrivileged() {
		p.Journal.WarnW("not running with administrator privileges; only virtual time is available")
	}
}

// Close releases everything build acquired. It is safe on a zero value.
func (p *runParams) Close() {
	if p.stopEcho != nil {
		p.stopEcho()
	}
	if p.History != nil {
		if err := p.History.Close(); err != nil {
			p.Logger.ErrorW("close session store", "error", err)
		}
	}
	if p.Logger != nil {
		_ = p.Logger.Sync()
	}
}
