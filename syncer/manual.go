package syncer

import (
	"context"
	"strings"

	"github.com/tnicklin/time_sync/timeservice"
)

// CheckService reports the time service status, source and the important
// configuration lines.
func (c *Controller) CheckService(ctx context.Context) (timeservice.Report, error) {
	release, err := c.claimManual("check the time service")
	if err != nil {
		return timeservice.Report{}, err
	}
	defer release()

	rep, err := c.svc.Report(ctx)
	if err != nil {
		c.logger.ErrorW("failed to check the time service", "error", err)
		return rep, &UnexpectedError{Err: err}
	}

	kv := []any{"status", rep.Status.String()}
	if rep.Source != "" {
		kv = append(kv, "source", rep.Source)
	} else {
		kv = append(kv, "source", "unavailable")
	}
	c.logger.InfoW("time service status", kv...)
	return rep, nil
}

// StartService enables automatic start and starts the time service.
func (c *Controller) StartService(ctx context.Context) error {
	release, err := c.claimManual("start the time service")
	if err != nil {
		return err
	}
	defer release()

	res, err := c.svc.Enable(ctx)
	if err != nil {
		c.logger.ErrorW("failed to start the time service", "error", err)
		return &UnexpectedError{Err: err}
	}
	if !res.OK() {
		serr := &StageError{Op: "enable", Kind: ErrServiceEnableFailed, Result: res}
		c.logger.ErrorW("failed to enable automatic start of the time service",
			"output", strings.TrimSpace(res.Output), "error", serr)
		return serr
	}
	c.logger.InfoW("time service set to start automatically")

	res, err = c.svc.Start(ctx)
	if err != nil {
		c.logger.ErrorW("failed to start the time service", "error", err)
		return &UnexpectedError{Err: err}
	}
	if !res.OK() {
		serr := &StageError{Op: "start", Kind: ErrServiceStartFailed, Result: res}
		c.logger.ErrorW("failed to start the time service", "output", strings.TrimSpace(res.Output), "error", serr)
		return serr
	}
	c.logger.InfoW("time service started")
	return nil
}

// StopService stops the time service.
func (c *Controller) StopService(ctx context.Context) error {
	release, err := c.claimManual("stop the time service")
	if err != nil {
		return err
	}
	defer release()

	res, err := c.svc.Stop(ctx)
	if err != nil {
		c.logger.ErrorW("failed to stop the time service", "error", err)
		return &UnexpectedError{Err: err}
	}
	if !res.OK() {
		serr := &StageError{Op: "stop", Kind: ErrServiceStopWarning, Result: res}
		c.logger.ErrorW("failed to stop the time service", "output", strings.TrimSpace(res.Output), "error", serr)
		return serr
	}
	c.logger.InfoW("time service stopped")
	return nil
}

// claimManual applies the same privilege rule as Start and holds the
// in-progress flag for the duration of a manual operation, so a session
// cannot start underneath it.
func (c *Controller) claimManual(what string) (func(), error) {
	if !c.privileged() {
		c.logger.WarnW("administrator privileges are required to " + what)
		return nil, ErrPrivilegeDenied
	}
	if !c.inProgress.CompareAndSwap(false, true) {
		c.logger.WarnW("cannot " + what + " while synchronization is in progress")
		return nil, ErrAlreadyRunning
	}
	return func() { c.inProgress.Store(false) }, nil
}
