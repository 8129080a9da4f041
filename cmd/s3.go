package cmd

import (
	"github.com/ostanik/parget/internal/scheduler"
	"github.com/ostanik/parget/internal/utils"
	"github.com/spf13/cobra"
)

func newS3Cmd() *cobra.Command {
	var outputPath string
	var profile string

	cmd := &cobra.Command{
		Use:   "s3 [BUCKET/KEY or s3://BUCKET/KEY]",
		Short: "Download objects from AWS S3",
		Long: `Download objects or whole prefixes from AWS S3.

Examples:
  parget s3 mybucket/path/to/file.zip
  parget s3 s3://mybucket/path/to/folder/
  parget s3 mybucket/file.zip --profile myprofile`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			job := utils.Job{
				JobType:          "s3",
				URL:              args[0],
				OutputPath:       outputPath,
				Connections:      connections,
				HTTPClientConfig: globalHTTPConfig,
				Metadata:         make(map[string]any),
			}
			job.Metadata["profile"] = profile
			scheduler.New().Run([]utils.Job{job}, workers)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path")
	cmd.Flags().StringVar(&profile, "profile", "default", "AWS profile to use")
	return cmd
}
