// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package cmd implements shelfctl, the command-line console for the library.

Every mutating subcommand goes through the same admin dispatcher as the HTTP
console, so uploads, deletes and job triggers are logged and audited the same
way.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cliflag "github.com/tomasbasham/cli-runtime/flag"
	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/printer"
	"github.com/tomasbasham/cli-runtime/templates"
)

var (
	rootLong = templates.LongDesc(`
		Manage the manga library kept in a GitHub repository.

		The repository is located by GITHUB_OWNER, GITHUB_REPO and GITHUB_TOKEN;
		page URLs are built from SITE_URL, WORKER_URL and BACKUP_URL.`)

	rootExamples = templates.Examples(`
		# Upload chapter 12 of a series
		shelfctl upload solo-leveling --chapter 12 ./pages

		# Queue a series for removal, then run maintenance
		shelfctl delete-series solo-leveling
		shelfctl maintenance`)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// ShelfOptions defines the options shared by every subcommand.
type ShelfOptions struct {
	iooption.IOStreams

	// Load builds the environment on first use.
	Load EnvironmentFunc

	env *Environment
}

// NewShelfOptions provides an initialised ShelfOptions instance.
func NewShelfOptions(streams iooption.IOStreams) *ShelfOptions {
	return &ShelfOptions{IOStreams: streams, Load: LoadEnvironment}
}

// Environment builds the environment once and reuses it.
func (o *ShelfOptions) Environment() (*Environment, error) {
	if o.env != nil {
		return o.env, nil
	}

	env, err := o.Load(o.IOStreams)
	if err != nil {
		return nil, err
	}
	o.env = env
	return env, nil
}

// NewRootCommand creates the `shelfctl` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewShelfOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})

	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `shelfctl` command and its nested
// children.
func NewRootCommandWithArgs(o *ShelfOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "shelfctl [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Manga library console",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}

	printerOpts := printer.WarningPrinterOptions{Color: true}
	printer := printer.NewWarningPrinter(o.ErrOut, printerOpts)
	cmd.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc(printer))

	cmd.AddCommand(NewUploadCommand(NewUploadOptions(o)))
	cmd.AddCommand(NewDeleteChapterCommand(NewTargetOptions(o)))
	cmd.AddCommand(NewDeleteSeriesCommand(NewTargetOptions(o)))
	cmd.AddCommand(NewDeleteImagesCommand(NewTargetOptions(o)))
	cmd.AddCommand(NewMigrateCommand(NewTargetOptions(o)))
	cmd.AddCommand(NewImagesCommand(NewTargetOptions(o)))
	cmd.AddCommand(NewQueueCommand(o))
	cmd.AddCommand(NewMaintenanceCommand(o))
	cmd.AddCommand(NewDeployCommand(NewDeployOptions(o)))
	cmd.AddCommand(NewStatsCommand(o))
	cmd.AddCommand(NewBrowseCommand(NewBrowseOptions(o)))

	cmd.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc())

	return cmd
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
