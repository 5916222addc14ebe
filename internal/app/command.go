package app

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"restapidemo/internal/platform/config"
)

const dotEnvFile = ".env"

// newRootCommand builds the CLI. The root command and "serve" both start the
// server; serve is spelled out for process managers that expect a verb.
func newRootCommand(serve func(ctx context.Context, cfg config.Server) error, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "restapidemo",
		Short:         "User management REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
	}
	config.RegisterFlags(root.PersistentFlags())
	root.SetOut(out)
	root.SetErr(out)

	runServe := func(cmd *cobra.Command, _ []string) error {
		if err := config.LoadDotEnv(dotEnvFile); err != nil {
			return err
		}
		v, err := config.NewViper(cmd.Flags())
		if err != nil {
			return err
		}
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	}
	root.RunE = runServe

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	})
	return root
}
