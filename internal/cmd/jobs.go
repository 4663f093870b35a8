// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/taibuivan/mangashelf/internal/admin"
)

var (
	maintenanceLong = templates.LongDesc(`
		Trigger the maintenance job. It archives the oldest live chapters when
		the library is over capacity and drains the pending-deletes queue.`)

	deployLong = templates.LongDesc(`
		Trigger the deploy job. With --watch the command follows the run until
		it succeeds, fails or the poll budget runs out.`)
)

// NewQueueCommand creates the `queue` command.
func NewQueueCommand(o *ShelfOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show the pending-deletes queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := o.Environment()
			if err != nil {
				return err
			}
			tasks, err := env.Service().PendingDeletes(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(o.Out, tasks)
		},
	}
}

// NewMaintenanceCommand creates the `maintenance` command.
func NewMaintenanceCommand(o *ShelfOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "maintenance",
		Short: "Trigger the maintenance job",
		Long:  maintenanceLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := o.Environment()
			if err != nil {
				return err
			}
			outcome, err := env.Dispatcher.Dispatch(cmd.Context(), cliActor(), admin.MaintenanceCommand{})
			if err != nil {
				return err
			}
			return printJSON(o.Out, outcome)
		},
	}
}

// DeployOptions defines the options for the `deploy` command.
type DeployOptions struct {
	*ShelfOptions

	Watch bool
}

// NewDeployOptions provides an initialised DeployOptions instance.
func NewDeployOptions(shelf *ShelfOptions) *DeployOptions {
	return &DeployOptions{ShelfOptions: shelf}
}

// NewDeployCommand creates the `deploy` command.
func NewDeployCommand(o *DeployOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Trigger the deploy job",
		Long:  deployLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd)
		},
	}

	cmd.Flags().BoolVarP(&o.Watch, "watch", "w", false, "Follow the deploy run until it finishes")

	return cmd
}

// Run triggers the deploy and, when watching, prints one line per poll.
func (o *DeployOptions) Run(cmd *cobra.Command) error {
	env, err := o.Environment()
	if err != nil {
		return err
	}

	ctx, cancel := interruptible(cmd.Context())
	defer cancel()

	if !o.Watch {
		outcome, err := env.Dispatcher.Dispatch(ctx, cliActor(), admin.DeployCommand{})
		if err != nil {
			return err
		}
		return printJSON(o.Out, outcome)
	}

	final, err := env.Service().Deploy(ctx, func(progress admin.DeployProgress) {
		fmt.Fprintf(o.Out, "[%3d%%] %-7s %s\n", progress.Percent, progress.Step, progress.Message)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(o.Out, final.Message)
	return nil
}

// NewStatsCommand creates the `stats` command.
func NewStatsCommand(o *ShelfOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := o.Environment()
			if err != nil {
				return err
			}
			dashboard, err := env.Service().Dashboard(cmd.Context())
			if err != nil {
				return err
			}

			stats := dashboard.Stats
			fmt.Fprintf(o.Out, "series:   %d\n", stats.Series)
			fmt.Fprintf(o.Out, "chapters: %d (%d archived)\n", stats.Chapters, stats.Archived)
			fmt.Fprintf(o.Out, "local:    %d/%d\n", stats.Local, stats.Capacity)
			if stats.Full {
				fmt.Fprintln(o.Out, "warning:  local capacity reached, run maintenance")
			}
			if mutation := dashboard.LastMutation; mutation != nil {
				fmt.Fprintf(o.Out, "last:     %s %s\n", mutation.Command, mutation.Target)
			}
			return nil
		},
	}
}
