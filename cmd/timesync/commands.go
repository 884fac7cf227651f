package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tnicklin/time_sync/clock"
	"github.com/tnicklin/time_sync/syncer"
	"github.com/tnicklin/time_sync/timeutil"
)

func newRootCmd(p *runParams) *cobra.Command {
	var files []string

	root := &cobra.Command{
		Use:   "timesync",
		Short: "Virtual clock and OS time service synchronization",
		Long: `timesync shows local, UTC and virtual time, keeps a persisted virtual
offset, and synchronizes the host clock by driving the OS time service.

Synchronizing the host clock requires administrator privileges; without
them only the virtual clock is available.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			built, err := build(cmd.Context(), files)
			if err != nil {
				return err
			}
			*p = built
			p.echo(cmd.OutOrStdout())
			return nil
		},
	}
	root.PersistentFlags().StringSliceVar(&files, "config",
		[]string{"config/config.yaml", "config/local.yaml"},
		"configuration files; later files override earlier ones")

	root.AddCommand(
		newWatchCmd(p),
		newOffsetCmd(p),
		newSyncCmd(p),
		newServiceCmd(p),
		newServersCmd(p),
		newDriftCmd(p),
		newHistoryCmd(p),
	)
	return root
}

func newOffsetCmd(p *runParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offset",
		Short: "Inspect and change the persisted virtual time offset",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the saved offset and the virtual time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := p.Virtual.Load(cmd.Context(), p.Offsets); err != nil {
				return err
			}
			now := time.Now()
			fmt.Fprintf(cmd.OutOrStdout(), "offset:  %s\nvirtual: %s\n",
				timeutil.FormatOffset(p.Virtual.Offset()),
				p.Virtual.Now(now).Format(timeutil.DateTimeLayout))
			return nil
		},
	}

	adjust := &cobra.Command{
		Use:   "adjust <delta>",
		Short: "Shift the virtual clock and save it",
		Long: `Shift the virtual clock by delta and save the result. Delta is a signed
number of seconds or a duration such as 1h, -30m or 90s.`,
		Example: `  timesync offset adjust 3600
  timesync offset adjust -- -1h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := parseDelta(args[0])
			if err != nil {
				return err
			}
			if _, err := p.Virtual.Load(cmd.Context(), p.Offsets); err != nil {
				return err
			}
			p.Virtual.Adjust(delta)
			return p.Virtual.Save(cmd.Context(), p.Offsets)
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Return the virtual clock to system time and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p.Virtual.Reset()
			return p.Virtual.Save(cmd.Context(), p.Offsets)
		},
	}

	save := &cobra.Command{
		Use:   "save <seconds>",
		Short: "Store an absolute offset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			off, err := parseDelta(args[0])
			if err != nil {
				return err
			}
			p.Virtual.Reset()
			p.Virtual.Adjust(off)
			return p.Virtual.Save(cmd.Context(), p.Offsets)
		},
	}

	load := &cobra.Command{
		Use:   "load",
		Short: "Load the saved offset and report whether one was found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := p.Virtual.Load(cmd.Context(), p.Offsets)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", res, timeutil.FormatOffset(p.Virtual.Offset()))
			return nil
		},
	}

	cmd.AddCommand(show, adjust, reset, save, load)
	return cmd
}

func newSyncCmd(p *runParams) *cobra.Command {
	var (
		server   string
		simulate bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the host clock through the OS time service",
		Long: `Runs the five synchronization stages: query the time service, enable it
when disabled, stop it, point it at the server and start it again, then
force a resynchronization with one retry.

--simulate walks through the same stages without running any command.`,
		Example: `  timesync sync
  timesync sync --server pool.ntp.org
  timesync sync --simulate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p.banner(cmd.Context())

			out, err := p.Controller.Run(cmd.Context(), syncer.Request{Server: server, Simulate: simulate})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), notification(out))
			if out.Severity().Blocking() {
				return out.Err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "", "time server (default from config)")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "run the stages without touching the host")
	return cmd
}

func newServiceCmd(p *runParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Check, start or stop the OS time service",
	}

	check := &cobra.Command{
		Use:   "status",
		Short: "Report the service status, time source and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := p.Controller.CheckService(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "status: %s\n", rep.Status)
			if rep.Source != "" {
				fmt.Fprintf(w, "source: %s\n", rep.Source)
			}
			for _, line := range rep.Configuration {
				fmt.Fprintf(w, "  %s\n", line)
			}
			return nil
		},
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Enable automatic start and start the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return p.Controller.StartService(cmd.Context())
		},
	}

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return p.Controller.StopService(cmd.Context())
		},
	}

	cmd.AddCommand(check, start, stop)
	return cmd
}

func newServersCmd(p *runParams) *cobra.Command {
	return &cobra.Command{
		Use:   "servers",
		Short: "List the preset time servers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, s := range p.Controller.Servers() {
				mark := " "
				if s == p.Controller.DefaultServer() {
					mark = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mark, s)
			}
		},
	}
}

func newDriftCmd(p *runParams) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Measure the host clock offset against an NTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := p.Probe.Measure(cmd.Context(), server)
			if err != nil {
				return err
			}
			printDrift(cmd, d)
			return nil
		},
	}
	cmd.Flags().StringVarP(&server, "server", "s", "", "NTP server (default from config)")
	return cmd
}

func printDrift(cmd *cobra.Command, d clock.Drift) {
	fmt.Fprintf(cmd.OutOrStdout(), "server:  %s\noffset:  %v\nrtt:     %v\nstratum: %d\n",
		d.Server, d.Offset.Round(time.Microsecond), d.RTT.Round(time.Microsecond), d.Stratum)
}

func newHistoryCmd(p *runParams) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent synchronization sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := p.History.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tSERVER\tOUTCOME\tSTAGE\tATTEMPTS\tDURATION\tERROR")
			for _, r := range recs {
				server := r.Server
				if r.Simulated {
					server += " (simulated)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%v\t%s\n",
					r.StartedAt.Local().Format(timeutil.DateTimeLayout),
					server, r.Outcome, r.Stage, r.Attempts,
					r.Duration().Round(time.Millisecond), r.Error)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of sessions to list; 0 lists all")
	return cmd
}

// parseDelta reads a signed number of seconds or a Go duration.
func parseDelta(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid delta %q: want seconds or a duration like 1h or -30m", s)
	}
	return int64(d / time.Second), nil
}

// notification renders an outcome the way the user should be told about it.
func notification(o syncer.Outcome) string {
	switch o.Severity() {
	case syncer.SeverityNone:
		return o.Message()
	case syncer.SeverityUncertain:
		return "warning: " + o.Message()
	default:
		return "error: " + o.Message()
	}
}
