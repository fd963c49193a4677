package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a " + DBFile + " database in the current directory (or at --db)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		path := dbPath
		if path == "" {
			path = cfg.Database
		}
		if path == "" {
			path = DBFile
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}
		}

		a, err := newApp(cfg, log, path)
		if err != nil {
			return err
		}
		defer a.Close()

		abs, _ := filepath.Abs(path)
		return emit(map[string]string{"database": abs}, nil, func(map[string]string) {
			fmt.Printf("Initialized %s\n", abs)
		})
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
