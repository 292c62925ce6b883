package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"depot/internal/blobstore"
	"depot/internal/config"
	"depot/internal/metrics"
	"depot/internal/server"
	"depot/internal/store"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the depot API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			blobRoot := filepath.Join(filepath.Dir(cfg.DBPath), ".depot", "blobs")
			bs, err := blobstore.NewLocalCAS(blobRoot)
			if err != nil {
				return err
			}

			srv := server.New(addr, st, bs, server.Options{
				Policy:          server.NewUploadPolicy(cfg.Uploads.AllowedMediaTypes, cfg.Uploads.MaxUploadBytes),
				Metrics:         metrics.NewProm("depot"),
				Logger:          logger,
				DBPath:          cfg.DBPath,
				MultipartMemory: cfg.Uploads.MultipartMaxMemory,
			})
			return srv.ListenAndServe()
		},
	}
}
