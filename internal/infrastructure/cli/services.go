package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/pacer/internal/infrastructure/config"
	"github.com/felixgeelhaar/pacer/internal/infrastructure/wiring"
)

func loadServices(root string) (*wiring.AppServices, error) {
	services, loadErr := wiring.BuildAppServices(root, os.Stderr)
	if services == nil {
		return nil, fmt.Errorf("failed to build services: %w", loadErr)
	}
	if loadErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", loadErr)
	}
	return services, nil
}

// getProjectRoot resolves --root, then PACER_ROOT, then the working directory.
func getProjectRoot() (string, error) {
	path := projectPath
	if path == "" {
		if env, err := config.LoadEnv(); err == nil {
			path = env.Root
		}
	}
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("invalid project path %q: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("project path %q: %w", abs, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("project path %q is not a directory", abs)
		}
		return abs, nil
	}
	return os.Getwd()
}

func loadServicesForCurrentDir() (*wiring.AppServices, error) {
	root, err := getProjectRoot()
	if err != nil {
		return nil, err
	}
	return loadServices(root)
}

// currentUser resolves --user, then PACER_USER, then the login name.
func currentUser() (string, error) {
	if userFlag != "" {
		return userFlag, nil
	}
	if env, err := config.LoadEnv(); err == nil && env.User != "" {
		return env.User, nil
	}
	if u := os.Getenv("USER"); u != "" {
		return u, nil
	}
	return "", NewCLIError("no user given", "Pass --user or set PACER_USER", nil)
}
