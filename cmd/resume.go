package cmd

import (
	"github.com/ostanik/parget/internal/scheduler"
	"github.com/ostanik/parget/internal/utils"
	"github.com/spf13/cobra"
)

func newResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume [PART_FILE or TARGET_PATH]",
		Short: "Resume an interrupted download from its saved state",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var jobs []utils.Job
			for _, arg := range args {
				jobs = append(jobs, utils.Job{
					JobType:          "resume",
					URL:              arg,
					Connections:      connections,
					HTTPClientConfig: globalHTTPConfig,
					Metadata:         make(map[string]any),
				})
			}
			scheduler.New().Run(jobs, workers)
		},
	}
	return cmd
}
