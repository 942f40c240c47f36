package wiring

import (
	"io"
	"log/slog"

	"github.com/felixgeelhaar/pacer/internal/infrastructure/config"
	"github.com/felixgeelhaar/pacer/internal/infrastructure/logging"
	"github.com/felixgeelhaar/pacer/pkg/storage"
)

// Workspace bundles core infrastructure dependencies.
type Workspace struct {
	Root   string
	Repo   *storage.FilesystemRepository
	Config *config.Config
	Logger *slog.Logger
}

// NewWorkspace loads the configuration of root and builds its repository and
// logger. Logs go to logOut.
func NewWorkspace(root string, logOut io.Writer) (*Workspace, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return &Workspace{
		Root:   root,
		Repo:   storage.NewFilesystemRepository(root),
		Config: cfg,
		Logger: logging.New(logOut, cfg.Log),
	}, nil
}
