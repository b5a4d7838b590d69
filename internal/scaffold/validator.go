package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyluth/ideabid/internal/config"
)

// CheckExisting returns an error naming any starter file that already exists in dir.
func CheckExisting(dir string) error {
	var existing []string
	for _, name := range []string{config.DefaultPath, EnvFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			existing = append(existing, name)
		}
	}

	if len(existing) == 0 {
		return nil
	}
	return fmt.Errorf("project already initialized: found %s (use 'ideabid init --force' to overwrite)",
		strings.Join(existing, ", "))
}
