package cmd

import (
	"log"
	"path/filepath"

	"github.com/josephlewis42/grsh/core/config"
	"github.com/spf13/cobra"
)

var initDir string

// initCmd writes the default configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration if there isn't one.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := log.New(cmd.ErrOrStderr(), "", 0)

		_, err := config.Initialize(initDir, logger)
		return err
	},
}

func init() {
	initCmd.Flags().StringVar(&initDir, "dir", filepath.Dir(config.DefaultPath()), "directory to write the configuration to")
	rootCmd.AddCommand(initCmd)
}
