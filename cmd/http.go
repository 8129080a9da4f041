package cmd

import (
	"github.com/ostanik/parget/internal/scheduler"
	"github.com/ostanik/parget/internal/utils"
	"github.com/spf13/cobra"
)

func newHTTPCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "http [URL] [--output OUTPUT_PATH]",
		Short: "Download file via HTTP/HTTPS",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			job := utils.Job{
				JobType:          "http",
				URL:              args[0],
				OutputPath:       outputPath,
				Connections:      connections,
				HTTPClientConfig: globalHTTPConfig,
				Metadata:         make(map[string]any),
			}
			scheduler.New().Run([]utils.Job{job}, workers)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path")
	return cmd
}
