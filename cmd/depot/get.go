package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"depot/internal/api"
	"depot/internal/config"
)

func newGetCmd(cfg *config.Config) *cobra.Command {
	var (
		outPath string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Download file content",
		Args:  requireExactlyArgs(1, "file id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				if strings.TrimSpace(outPath) == "-" {
					return client.Download(cmd.Context(), args[0], os.Stdout)
				}

				target := strings.TrimSpace(outPath)
				if target == "" {
					resp, err := client.GetFile(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					target = downloadTarget(resp.Name)
				}
				if !force {
					if _, err := os.Stat(target); err == nil {
						return fmt.Errorf("output file exists (use --force to overwrite)")
					}
				}

				f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()

				if err := client.Download(cmd.Context(), args[0], f); err != nil {
					return err
				}
				return writePlain("%s\n", target)
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path (\"-\" for stdout, stored name when empty)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite output path if it exists")
	return cmd
}

// downloadTarget strips any path components from a stored name so a download
// always lands in the current directory.
func downloadTarget(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == "/" {
		return "download"
	}
	return base
}
