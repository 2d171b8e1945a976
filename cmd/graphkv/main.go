package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func newRootCommand() *cobra.Command {
	a := newApp()

	root := &cobra.Command{
		Use:   "graphkv",
		Short: "graphkv - graph elements on a sorted key/value store",
		Long: `graphkv converts graph entities and edges to sorted key/value records
and back, and stores them in memory, in PostgreSQL or in MySQL.

Every flag of the root command can also be set from the environment with
the GRAPHKV_ prefix, e.g. GRAPHKV_SCHEMA=schema.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if err := a.bindFlags(root); err != nil {
		panic(err)
	}

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "graphkv v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(
		newEncodeCommand(a),
		newDecodeCommand(a),
		newLoadCommand(a),
		newQueryCommand(a),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
