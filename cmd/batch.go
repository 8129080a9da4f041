package cmd

import (
	"os"

	"github.com/ostanik/parget/internal/output"
	"github.com/ostanik/parget/internal/scheduler"
	"github.com/ostanik/parget/internal/utils"
	"github.com/spf13/cobra"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE]",
		Short: "Process multiple downloads from a YAML file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			entries, err := utils.ReadDownloadList(args[0])
			if err != nil {
				output.PrintError("Failed to read download list: " + err.Error())
				os.Exit(1)
			}
			if len(entries) == 0 {
				output.PrintError("No valid entries found in the batch file")
				os.Exit(1)
			}
			connectionsPerLink := connections
			if workers*connectionsPerLink > 64 {
				connectionsPerLink = max(64/workers, 1)
			}
			var jobs []utils.Job
			for _, entry := range entries {
				job := utils.Job{
					JobType:          entry.Type,
					URL:              entry.URL,
					OutputPath:       entry.OutputPath,
					Connections:      connectionsPerLink,
					HTTPClientConfig: globalHTTPConfig,
					Metadata:         make(map[string]any),
				}
				if entry.Type == "s3" {
					job.Metadata["profile"] = "default"
				}
				jobs = append(jobs, job)
			}
			scheduler.New().Run(jobs, workers)
		},
	}
	return cmd
}
