package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tnicklin/time_sync/display"
	"github.com/tnicklin/time_sync/syncer"
	"golang.org/x/sync/errgroup"
)

const watchHelp = `commands:
  +N, -N        shift the virtual clock by N seconds (or a duration: +1h, -30m)
  reset         return the virtual clock to system time
  save, load    persist or restore the virtual offset
  sync [server] synchronize the host clock
  simulate      run a simulated synchronization
  status        report the time service status
  servers       list the preset servers
  quit`

func newWatchCmd(p *runParams) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show local, UTC and virtual time every second and accept commands",
		Long:  "Show local, UTC and virtual time every second and accept commands on stdin.\n\n" + watchHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p.banner(cmd.Context())
			if _, err := p.Virtual.Load(cmd.Context(), p.Offsets); err != nil {
				p.Journal.WarnW("continuing with system time", "error", err)
			}
			return watch(cmd.Context(), p, cmd.InOrStdin(), cmd.OutOrStdout(), quiet)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print when the sync state changes")
	return cmd
}

var errQuit = errors.New("quit")

func watch(ctx context.Context, p *runParams, in io.Reader, out io.Writer, quiet bool) error {
	g, ctx := errgroup.WithContext(ctx)

	var last *syncer.Outcome
	loop := display.New(display.Params{
		Config:   p.Config.Display,
		Virtual:  p.Virtual,
		Trigger:  p.Trigger,
		Render: func(s display.Snapshot, st display.State) {
			if st.Last != last {
				last = st.Last
				fmt.Fprintln(out, notification(*last))
			}
			if quiet {
				return
			}
			trigger := "ready"
			if !st.SyncEnabled {
				trigger = "busy"
			}
			fmt.Fprintf(out, "local %s %s | utc %s %s | virtual %s %s (%s) | sync %s\n",
				s.LocalDate(), s.LocalTime(), s.UTCDate(), s.UTCTime(),
				s.VirtualDate(), s.VirtualTime(), s.OffsetText(), trigger)
		},
	})

	lines := make(chan string)
	go readLines(ctx, in, lines)

	g.Go(func() error { return loop.Run(ctx) })
	g.Go(func() error {
		src := (<-chan string)(lines)
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-src:
				if !ok {
					src = nil
					continue
				}
				if err := handle(ctx, p, out, line); err != nil {
					return err
				}
			}
		}
	})

	err := g.Wait()
	if s := p.Controller.Current(); s != nil {
		p.Journal.InfoW("waiting for the running synchronization to finish", "session", s.ID())
		<-s.Done()
	}
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

// readLines feeds lines from in until EOF or ctx ends, then closes lines.
func readLines(ctx context.Context, in io.Reader, lines chan<- string) {
	defer close(lines)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		select {
		case lines <- sc.Text():
		case <-ctx.Done():
			return
		}
	}
}

// handle runs one interactive command. Only quit ends the watch; other
// failures have already been journaled.
func handle(ctx context.Context, p *runParams, out io.Writer, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch cmd := fields[0]; {
	case strings.HasPrefix(cmd, "+") || strings.HasPrefix(cmd, "-"):
		delta, err := parseDelta(strings.TrimPrefix(cmd, "+"))
		if err != nil {
			fmt.Fprintln(out, err)
			return nil
		}
		p.Virtual.Adjust(delta)
	case cmd == "reset":
		p.Virtual.Reset()
	case cmd == "save":
		_ = p.Virtual.Save(ctx, p.Offsets)
	case cmd == "load":
		_, _ = p.Virtual.Load(ctx, p.Offsets)
	case cmd == "sync", cmd == "simulate":
		req := syncer.Request{Simulate: cmd == "simulate"}
		if len(fields) > 1 {
			req.Server = fields[1]
		}
		_, _ = p.Controller.Start(ctx, req)
	case cmd == "status":
		if rep, err := p.Controller.CheckService(ctx); err == nil {
			for _, l := range rep.Configuration {
				fmt.Fprintf(out, "  %s\n", l)
			}
		}
	case cmd == "servers":
		fmt.Fprintln(out, strings.Join(p.Controller.Servers(), ", "))
	case cmd == "quit", cmd == "q", cmd == "exit":
		return errQuit
	default:
		fmt.Fprintln(out, watchHelp)
	}
	return nil
}
