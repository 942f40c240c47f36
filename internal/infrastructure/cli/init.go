package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/pacer/internal/infrastructure/config"
	"github.com/felixgeelhaar/pacer/pkg/storage"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a pacer workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		repo := storage.NewFilesystemRepository(root)
		if err := repo.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize workspace: %w", err)
		}

		cfgPath := filepath.Join(repo.Dir(), config.FileName)
		if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
			if err := config.Save(root, config.Default()); err != nil {
				return fmt.Errorf("failed to write default config: %w", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Initialized pacer workspace in %s\n", repo.Dir())
		return nil
	},
}

func init() {
	RootCmd.AddCommand(initCmd)
}
