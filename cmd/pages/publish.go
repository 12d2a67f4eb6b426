package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/vango-dev/pages/internal/build"
	"github.com/vango-dev/pages/internal/errors"
	"github.com/vango-dev/pages/internal/publish"
)

func publishCmd(flags *globalFlags) *cobra.Command {
	var (
		bucket      string
		prefix      string
		region      string
		concurrency int
		dryRun      bool
		runBuild    bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the build output to S3",
		Long: `Upload the build output to an S3 bucket (or any S3-compatible store).

HTML is uploaded last and marked no-cache; files under assets/ are
cached for a year. Credentials come from the standard AWS chain:
environment, shared config files, or instance roles.

Examples:
  pages publish --bucket=my-site
  pages publish --build --bucket=my-site --prefix=preview/42
  pages publish --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if bucket != "" {
				cfg.Publish.Bucket = bucket
			}
			if cmd.Flags().Changed("prefix") {
				cfg.Publish.Prefix = prefix
			}
			if region != "" {
				cfg.Publish.Region = region
			}
			if concurrency > 0 {
				cfg.Publish.Concurrency = concurrency
			}
			if cfg.Publish.Bucket == "" {
				return errors.New("E121").
					WithDetail("publish.bucket is not set").
					WithSuggestion("Pass --bucket or set publish.bucket in the config file")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			if runBuild {
				builder := build.New(cfg, build.Options{
					Stdout:     out,
					Stderr:     cmd.ErrOrStderr(),
					OnProgress: func(step string) { info(out, "%s", step) },
				})
				if _, err := builder.Build(ctx); err != nil {
					return err
				}
			}

			var loadOpts []func(*awsconfig.LoadOptions) error
			if cfg.Publish.Region != "" {
				loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Publish.Region))
			}
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
			if err != nil {
				return errors.New("E160").
					WithDetail("loading AWS configuration").
					Wrap(err)
			}

			publisher := publish.New(s3.NewFromConfig(awsCfg), cfg.Publish.Bucket, cfg.Publish.Prefix, publish.Options{
				Concurrency: cfg.Publish.Concurrency,
				DryRun:      dryRun,
				OnUpload: func(key string, size int64) {
					info(out, "%s (%s)", key, formatBytes(size))
				},
			})

			result, err := publisher.Publish(ctx, cfg.OutputPath())
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			target := "s3://" + cfg.Publish.Bucket + "/" + publisher.Key("")
			if dryRun {
				success(out, "Would upload %d files (%s) to %s", result.Files, formatBytes(result.Bytes), target)
			} else {
				success(out, "Uploaded %d files (%s) to %s", result.Files, formatBytes(result.Bytes), target)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "Destination bucket (default from config)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix inside the bucket (default from config)")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default from config or the AWS chain)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel uploads (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List files without uploading")
	cmd.Flags().BoolVar(&runBuild, "build", false, "Run the build before publishing")

	return cmd
}
