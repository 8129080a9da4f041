package cmd

import (
	"fmt"
	"os"

	"github.com/ostanik/parget/internal/engine"
	"github.com/ostanik/parget/internal/output"
	"github.com/spf13/cobra"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [DIR]",
		Short: "Remove leftover partial files and state sidecars",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			removed, err := engine.CleanArtifacts(dir)
			if err != nil {
				output.PrintError("Error cleaning up partial files: " + err.Error())
				os.Exit(1)
			}
			if len(removed) == 0 {
				output.PrintInfo("Nothing to clean")
				return
			}
			for _, path := range removed {
				output.PrintInfo("Removed " + path)
			}
			output.PrintSuccess(fmt.Sprintf("Cleaned %d file(s)", len(removed)))
		},
	}
}
