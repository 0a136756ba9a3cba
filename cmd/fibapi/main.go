package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

var configDir string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fibapi",
		Short:         "Serve exact Fibonacci numbers over HTTP and NATS",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config", "", "directory containing config.yaml")
	root.AddCommand(newServeCmd(), newComputeCmd())
	return root
}

func configPaths() []string {
	if configDir == "" {
		return nil
	}
	return []string{configDir}
}
