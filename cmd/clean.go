package cmd

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/rangedl/internal/output"
	"github.com/tanq16/rangedl/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [path]",
		Short: "Remove partial files left by failed downloads",
		Long:  "With a file path, removes the partial file for that output. With a directory or no argument, removes every partial file in it.",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var err error
			target := "."
			if len(args) > 0 {
				target = args[0]
			}
			if info, statErr := os.Stat(target); statErr == nil && info.IsDir() {
				err = utils.CleanDir(target)
			} else {
				err = utils.CleanOutput(filepath.Clean(target))
			}
			if err != nil {
				log.Error().Str("op", "clean").Err(err).Msg("Cleanup failed")
				output.PrintError("Error cleaning up temporary files")
				os.Exit(1)
			}
			output.PrintSuccess("Temporary files cleaned up")
		},
	}
}
