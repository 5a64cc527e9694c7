package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	envFile string
	backend string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "onclickctl",
		Short:         "Inspect OnClick handles and pages",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path of the .env file to load")
	rootCmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "Override ONCLICK_STORAGE_BACKEND")

	rootCmd.AddCommand(handleCmd(opts))
	rootCmd.AddCommand(draftCmd(opts))
	rootCmd.AddCommand(shareCmd(opts))
	rootCmd.AddCommand(qrCmd(opts))
	return rootCmd
}
