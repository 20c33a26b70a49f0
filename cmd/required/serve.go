package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"required-backend/internal/auth"
	"required-backend/internal/config"
	"required-backend/internal/logging"
	"required-backend/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var configDir string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the validation HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var paths []string
			if configDir != "" {
				paths = append(paths, configDir)
			}
			cfg, err := config.Load(paths...)
			if err != nil {
				return err
			}
			if opts.rulesDir != "" {
				cfg.Rules.Dir = opts.rulesDir
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()})
			ctx, stop := signal.NotifyContext(opts.context(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx = logging.WithLogger(ctx, log)

			srv, err := server.New(ctx, cfg)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&configDir, "config", "", "directory containing required.yaml")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password PASSWORD",
		Short: "Print a bcrypt hash for auth.admin_password_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
