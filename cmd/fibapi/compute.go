package main

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	appConfig "github.com/Mirai3103/fib-api/internal/config"
	"github.com/Mirai3103/fib-api/internal/core"
	"github.com/Mirai3103/fib-api/internal/logging"
	"github.com/Mirai3103/fib-api/internal/models"
)

func newComputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compute <n | path>",
		Short: "Print the JSON result for a single index or request path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appConfig.LoadConfig(configPaths()...)
			if err != nil {
				return err
			}
			if err := logging.Setup(cfg.Log, cmd.ErrOrStderr()); err != nil {
				return err
			}

			runner := core.NewRunner(nil, &cfg.Fib, nil)
			result := runner.Run(cmd.Context(), parseComputeArg(args[0]))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

// parseComputeArg treats a bare number as an index and anything else as a path.
func parseComputeArg(arg string) models.FibRequest {
	req := models.FibRequest{Source: models.SourceCLI}
	if n, err := strconv.ParseUint(arg, 10, 64); err == nil {
		req.N = &n
	} else {
		req.Path = arg
	}
	return req
}
