package timeservice

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Service drives the host time service through its command surface. It
// does not interpret results beyond exit codes and output markers.
type Service struct {
	runner   Runner
	commands Commands
}

// Params configures a Service.
type Params struct {
	Runner   Runner
	Commands Commands
}

// Config holds time-service configuration.
type Config struct {
	CommandTimeout time.Duration `yaml:"command_timeout"`
	Commands       Commands      `yaml:"commands"`
}

// Defaults applies default values to the config.
func (c *Config) Defaults() {
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 2 * time.Minute
	}
	c.Commands.Defaults()
}

// New creates a Service. Missing commands fall back to the Windows Time set.
func New(p Params) *Service {
	p.Commands.Defaults()
	runner := p.Runner
	if runner == nil {
		runner = &ExecRunner{}
	}
	return &Service{runner: runner, commands: p.Commands}
}

// Commands returns the effective command set.
func (s *Service) Commands() Commands { return s.commands }

// Status queries the service and classifies its state.
func (s *Service) Status(ctx context.Context) (Status, Result, error) {
	res, err := s.run(ctx, s.commands.QueryStatus)
	if err != nil {
		return StatusUnknown, res, err
	}
	return ParseStatus(res.Output), res, nil
}

// Enable configures the service for automatic start.
func (s *Service) Enable(ctx context.Context) (Result, error) {
	return s.run(ctx, s.commands.Enable)
}

// Stop stops the service.
func (s *Service) Stop(ctx context.Context) (Result, error) {
	return s.run(ctx, s.commands.Stop)
}

// Configure sets server as the manual, reliable peer and asks the service
// to pick up the change immediately.
func (s *Service) Configure(ctx context.Context, server string) (Result, error) {
	return s.run(ctx, expand(s.commands.Configure, server))
}

// Start starts the service with the primary command.
func (s *Service) Start(ctx context.Context) (Result, error) {
	return s.run(ctx, s.commands.Start)
}

// StartFallback starts the service with the alternate command.
func (s *Service) StartFallback(ctx context.Context) (Result, error) {
	return s.run(ctx, s.commands.StartFallback)
}

// Resync forces a resynchronization.
func (s *Service) Resync(ctx context.Context) (Result, error) {
	return s.run(ctx, s.commands.Resync)
}

// StoppedAlready reports whether a failed stop means the service was not
// running in the first place.
func (s *Service) StoppedAlready(res Result) bool {
	return HasMarker(res.Output, s.commands.NotRunningMarkers)
}

// Synchronized reports whether resync output carries a success marker.
func (s *Service) Synchronized(res Result) bool {
	return HasMarker(res.Output, s.commands.SuccessMarkers)
}

// Report is a snapshot of the service for diagnostics.
type Report struct {
	Status Status
	// Source is empty when the source query failed.
	Source string
	// Configuration holds the lines mentioning the important keys.
	Configuration []string
}

// Report queries status, time source and configuration.
func (s *Service) Report(ctx context.Context) (Report, error) {
	var rep Report

	st, _, err := s.Status(ctx)
	if err != nil {
		return rep, err
	}
	rep.Status = st

	src, err := s.run(ctx, s.commands.QuerySource)
	if err != nil {
		return rep, err
	}
	if src.OK() {
		rep.Source = strings.TrimSpace(src.Output)
	}

	cfg, err := s.run(ctx, s.commands.QueryConfiguration)
	if err != nil {
		return rep, err
	}
	rep.Configuration = FilterLines(cfg.Output, s.commands.ImportantKeys)
	return rep, nil
}

var errNoCommand = errors.New("timeservice: command not configured")

func (s *Service) run(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{ExitCode: -1}, errNoCommand
	}
	return s.runner.Run(ctx, argv[0], argv[1:]...)
}
