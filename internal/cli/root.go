// Package cli implements the s3role command line interface.
package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

// Connector returns a client acting as role, or under the ambient
// credentials when role is empty.
type Connector func(ctx context.Context, role string, opts []s3types.Option) (*s3role.Client, error)

type app struct {
	out     io.Writer
	errOut  io.Writer
	connect Connector
	logger  *slog.Logger

	region    string
	profile   string
	endpoint  string
	pathStyle bool
	role      string
	verbose   bool
}

// NewRootCommand builds the s3role command tree using AWS for every request.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	return newRootCommand(out, errOut, connectAWS)
}

func newRootCommand(out, errOut io.Writer, connect Connector) *cobra.Command {
	a := &app{out: out, errOut: errOut, connect: connect}

	root := &cobra.Command{
		Use:           "s3role",
		Short:         "Read S3 objects under assumed IAM roles and copy them across accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.region, "region", "", "AWS region (defaults to the SDK's resolution, then us-east-1)")
	flags.StringVar(&a.profile, "profile", "", "shared config profile for the base credentials")
	flags.StringVar(&a.endpoint, "endpoint", "", "custom S3 and STS endpoint URL")
	flags.BoolVar(&a.pathStyle, "path-style", false, "use path-style S3 addressing")
	flags.StringVar(&a.role, "role", "", "ARN of the IAM role to assume")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.newSizeCommand(),
		a.newGlacierCommand(),
		a.newListCommand(),
		a.newGetCommand(),
		a.newCopyCommand(),
	)
	return root
}

// options maps the global flags onto client options.
func (a *app) options() []s3types.Option {
	var opts []s3types.Option
	if a.region != "" {
		opts = append(opts, s3role.WithRegion(a.region))
	}
	if a.profile != "" {
		opts = append(opts, s3role.WithProfile(a.profile))
	}
	if a.endpoint != "" {
		opts = append(opts, s3role.WithEndpoint(a.endpoint))
	}
	if a.pathStyle {
		opts = append(opts, s3role.WithForcePathStyle(true))
	}
	if a.logger != nil {
		opts = append(opts, s3role.WithLogger(a.logger))
	}
	return opts
}

func (a *app) client(ctx context.Context, role string) (*s3role.Client, error) {
	return a.connect(ctx, role, a.options())
}

func connectAWS(ctx context.Context, role string, opts []s3types.Option) (*s3role.Client, error) {
	if role == "" {
		return s3role.New(ctx, opts...)
	}
	assumer, err := s3role.NewAssumer(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return assumer.AssumeRole(ctx, role)
}
