package constants

import (
	"strings"
	"testing"
)

func TestDefaultPaths(t *testing.T) {
	if DefaultConfigPath != "./config.toml" {
		t.Errorf("DefaultConfigPath = %s, want './config.toml'", DefaultConfigPath)
	}
	if DefaultEnvPath != "./.env" {
		t.Errorf("DefaultEnvPath = %s, want './.env'", DefaultEnvPath)
	}
	if !strings.HasPrefix(DefaultWorkspacePath, "~/") {
		t.Errorf("DefaultWorkspacePath should live under the home directory, got: %s", DefaultWorkspacePath)
	}
}
