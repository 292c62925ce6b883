package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"depot/internal/api"
	"depot/internal/config"
)

// seedManifest is the YAML format consumed by `depot seed`. Paths are
// resolved relative to the manifest file.
type seedManifest struct {
	Files []seedEntry `yaml:"files"`
}

type seedEntry struct {
	Path      string `yaml:"path"`
	Name      string `yaml:"name"`
	MediaType string `yaml:"media_type"`
}

type seedResult struct {
	Path  string `json:"path"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

func newSeedCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <manifest>",
		Short: "Batch-upload files listed in a YAML manifest",
		Args:  requireExactlyArgs(1, "manifest path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := loadSeedManifest(args[0])
			if err != nil {
				return err
			}
			baseDir := filepath.Dir(args[0])

			return withClient(cfg, func(client *api.Client) error {
				results := make([]seedResult, 0, len(manifest.Files))
				failures := 0
				for _, entry := range manifest.Files {
					result := seedOne(cmd, client, baseDir, entry)
					if result.Error != "" {
						failures++
					}
					results = append(results, result)
				}

				if *jsonOutput {
					if err := writeJSON(results); err != nil {
						return err
					}
				} else {
					for _, result := range results {
						if result.Error != "" {
							_ = writePlain("failed %s: %s\n", result.Path, result.Error)
							continue
						}
						_ = writePlain("%s %s\n", result.ID, result.Path)
					}
					_ = writePlain("uploaded %d of %d\n", len(results)-failures, len(results))
				}

				if failures > 0 && failures == len(results) {
					return fmt.Errorf("all %d uploads failed", failures)
				}
				return nil
			})
		},
	}
}

func loadSeedManifest(path string) (*seedManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var manifest seedManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(manifest.Files) == 0 {
		return nil, fmt.Errorf("manifest %s lists no files", path)
	}
	for i, entry := range manifest.Files {
		if strings.TrimSpace(entry.Path) == "" {
			return nil, fmt.Errorf("manifest entry %d is missing a path", i+1)
		}
	}
	return &manifest, nil
}

// seedOne uploads a single manifest entry. Failures are reported per entry so
// one bad file does not abort the rest of the run.
func seedOne(cmd *cobra.Command, client *api.Client, baseDir string, entry seedEntry) seedResult {
	path := entry.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	result := seedResult{Path: entry.Path}

	file, err := os.Open(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer file.Close()

	req := api.UploadRequest{
		Name:      chooseFirst(entry.Name, filepath.Base(path)),
		MediaType: chooseFirst(entry.MediaType, guessMediaType(path)),
	}
	resp, err := client.Upload(cmd.Context(), req, file)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.ID = resp.ID
	return result
}
