package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "microres",
		Short: "Microservice resilience evaluation",
		Long: `Rank which metrics explain the shift between a normal and a faulty window and
reduce the ranking to a resilience index in (0,1).`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "Path to configuration file (overrides MICRORES_CONFIG)")
	root.PersistentFlags().String("log-level", "", "Log level (debug/info/warn/error)")

	root.AddCommand(newServeCmd(), newEvalCmd(), newHistoryCmd())
	return root
}
