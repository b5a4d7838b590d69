// Package scaffold writes a starter ideabid.yml and .env into a directory.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/ideabid/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// EnvFile is the environment file written next to the configuration.
const EnvFile = ".env"

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes the starter files into dir and returns their paths.
// If force is true, existing files are overwritten.
func Initialize(dir string, force bool) ([]string, error) {
	if !force {
		if err := CheckExisting(dir); err != nil {
			return nil, err
		}
	}

	files, err := templateFiles(dir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(files))
	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
		paths = append(paths, file.Path)
	}

	// The written configuration must load exactly as ideabid would load it
	if _, err := config.Load(filepath.Join(dir, config.DefaultPath)); err != nil {
		return nil, fmt.Errorf("created %s is invalid: %w", config.DefaultPath, err)
	}

	return paths, nil
}

func templateFiles(dir string) ([]FileInfo, error) {
	cfg, err := templatesFS.ReadFile("templates/ideabid.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s template: %w", config.DefaultPath, err)
	}
	env, err := templatesFS.ReadFile("templates/env.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s template: %w", EnvFile, err)
	}

	return []FileInfo{
		{Path: filepath.Join(dir, config.DefaultPath), Content: cfg, Permissions: 0o644},
		// May hold an API key
		{Path: filepath.Join(dir, EnvFile), Content: env, Permissions: 0o600},
	}, nil
}
