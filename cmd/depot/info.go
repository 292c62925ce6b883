package main

import (
	"github.com/spf13/cobra"

	"depot/internal/api"
	"depot/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}
				resp.DBPath = cfg.DBPath

				if *jsonOutput {
					return writeJSON(resp)
				}

				_ = writePlain("db_path: %s\n", resp.DBPath)
				_ = writePlain("schema_version: %d\n", resp.SchemaVersion)
				_ = writePlain("file_count: %d\n", resp.FileCount)
				_ = writePlain("blob_count: %d\n", resp.BlobCount)
				_ = writePlain("total_size: %s\n", formatSize(resp.TotalSizeBytes))
				_ = writePlain("unique_size: %s\n", formatSize(resp.UniqueSizeBytes))
				if saved := resp.TotalSizeBytes - resp.UniqueSizeBytes; saved > 0 {
					_ = writePlain("dedup_saved: %s\n", formatSize(saved))
				}
				return nil
			})
		},
	}
}
