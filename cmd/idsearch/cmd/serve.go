package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

func newServeCmd(global *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search service",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), global, os.Stdout)
			if err != nil {
				return err
			}
			if addr != "" {
				a.Config.Server.Addr = addr
			}
			return a.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides IDSEARCH_ADDR)")
	return cmd
}
