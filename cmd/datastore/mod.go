// Package main provides a cli to read and write the settings data store.
//
// The store is selected by the global flags, or by the matching environment
// variables, on top of an optional YAML config file:
//
//	export DATASTORE_PATH=/var/lib/bottlerocket/datastore/current
//	datastore --backend filesystem set '{"settings":{"motd":"hello"}}'
//	datastore commit
//	datastore get settings.motd
//
// Values are read and printed as JSON trees.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jmt-lab/bottlerocket/cli"
	"github.com/jmt-lab/bottlerocket/cli/ucli"
)

const (
	flagConfig  = "config"
	flagBackend = "backend"
	flagPath    = "path"
	flagMetrics = "metrics"
	flagLive    = "live"
	flagPending = "pending"
	flagDefault = "defaults"
)

var printer io.Writer = os.Stderr
var out io.Writer = os.Stdout
var exit = os.Exit

func main() {
	err := run(os.Args)
	if err != nil {
		fmt.Fprintf(printer, "%+v\n", err)
		exit(1)
	}
}

func run(args []string) error {
	builder := ucli.NewBuilder("datastore", "manage the settings data store", nil,
		cli.PathFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			EnvVars: []string{"DATASTORE_CONFIG"},
			Usage:   "the path to a yaml config file",
		},
		cli.StringFlag{
			Name:    flagBackend,
			EnvVars: []string{"DATASTORE_BACKEND"},
			Usage:   "the backend of the store: memory, filesystem or bolt",
		},
		cli.PathFlag{
			Name:    flagPath,
			EnvVars: []string{"DATASTORE_PATH"},
			Usage:   "the base path of the store",
		},
		cli.BoolFlag{
			Name:  flagMetrics,
			Usage: "prints the metrics of the operations on the error output",
		},
	)

	setCommands(builder)

	return builder.Build().Run(args)
}

func setCommands(builder cli.Builder) {
	pending := cli.BoolFlag{
		Name:  flagPending,
		Usage: "uses the pending version instead of the live one",
	}

	cmd := builder.SetCommand("get")
	cmd.SetDescription("prints the settings starting with the prefix as a JSON tree")
	cmd.SetArgsUsage("[prefix]")
	cmd.SetFlags(pending)
	cmd.SetAction(withStore(getAction))

	cmd = builder.SetCommand("set")
	cmd.SetDescription("writes the settings of a JSON tree in the pending version")
	cmd.SetArgsUsage("<json>")
	cmd.SetFlags(
		cli.BoolFlag{
			Name:  flagLive,
			Usage: "writes directly in the live version",
		},
		cli.BoolFlag{
			Name:  flagDefault,
			Usage: "marks the settings as coming from the defaults",
		},
	)
	cmd.SetAction(withStore(setAction))

	cmd = builder.SetCommand("commit")
	cmd.SetDescription("applies the pending version and prints the committed keys")
	cmd.SetAction(withStore(commitAction))

	cmd = builder.SetCommand("delete-pending")
	cmd.SetDescription("drops the pending version and prints the removed keys")
	cmd.SetAction(withStore(deletePendingAction))

	cmd = builder.SetCommand("metadata")
	cmd.SetDescription("manages the metadata of the settings")

	sub := cmd.SetSubCommand("get")
	sub.SetDescription("prints a metadata value as JSON")
	sub.SetArgsUsage("<key> <name>")
	sub.SetFlags(pending)
	sub.SetAction(withStore(metadataGetAction))

	sub = cmd.SetSubCommand("set")
	sub.SetDescription("writes a metadata value given as JSON")
	sub.SetArgsUsage("<key> <name> <json>")
	sub.SetFlags(pending)
	sub.SetAction(withStore(metadataSetAction))

	sub = cmd.SetSubCommand("list")
	sub.SetDescription("prints the metadata names of the settings starting with the prefix")
	sub.SetArgsUsage("[prefix]")
	sub.SetFlags(pending)
	sub.SetAction(withStore(metadataListAction))
}
