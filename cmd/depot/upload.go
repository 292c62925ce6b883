package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"depot/internal/api"
	"depot/internal/config"
)

type uploadOptions struct {
	name      string
	mediaType string
}

func newUploadCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &uploadOptions{}
	cmd := &cobra.Command{
		Use:   "upload <path> [<path>...]",
		Short: "Upload one or more files",
		Args:  requireAtLeastArgs(1, "path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 && strings.TrimSpace(opts.name) != "" {
				return fmt.Errorf("--name is only valid with a single path")
			}

			return withClient(cfg, func(client *api.Client) error {
				responses := make([]api.FileResponse, 0, len(args))
				for _, path := range args {
					resp, err := uploadOne(cmd, client, path, opts)
					if err != nil {
						return fmt.Errorf("upload %s: %w", path, err)
					}
					responses = append(responses, resp)
				}

				if *jsonOutput {
					if len(responses) == 1 {
						return writeJSON(responses[0])
					}
					return writeJSON(responses)
				}
				return writeFileList(responses)
			})
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "stored name (defaults to the file name)")
	cmd.Flags().StringVar(&opts.mediaType, "media-type", "", "media type (MIME); guessed from the extension when empty")
	return cmd
}

func uploadOne(cmd *cobra.Command, client *api.Client, path string, opts *uploadOptions) (api.FileResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return api.FileResponse{}, err
	}
	defer file.Close()

	req := api.UploadRequest{
		Name:      chooseFirst(opts.name, filepath.Base(path)),
		MediaType: chooseFirst(opts.mediaType, guessMediaType(path)),
	}
	return client.Upload(cmd.Context(), req, file)
}

// guessMediaType maps a file extension to a bare media type, without the
// charset parameters mime.TypeByExtension tacks on.
func guessMediaType(path string) string {
	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mediaType == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		return parsed
	}
	return mediaType
}
