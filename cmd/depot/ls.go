package main

import (
	"github.com/spf13/cobra"

	"depot/internal/api"
	"depot/internal/config"
)

func newLsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List stored files, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ListFiles(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writeFileList(resp)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "limit results (server default when 0)")
	return cmd
}
