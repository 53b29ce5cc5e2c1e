package s3role

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/operations/assume"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

const (
	defaultRegion     = "us-east-1"
	defaultMaxRetries = 3
	defaultPartSize   = 8 * 1024 * 1024
)

// Client is an S3 handle bound to one set of credentials.
//
// A Client is never modified after construction and is safe for concurrent
// use. Handles created by an Assumer carry the role they were assumed for and
// the instant from which they should be renewed; handles created by New or
// NewWithClient never need renewal.
type Client struct {
	s3Client s3api.S3API
	uploader s3api.UploaderAPI

	roleARN    string
	expiration time.Time
	renewAt    time.Time

	fs      billy.Filesystem
	tempDir string
	logger  *slog.Logger
}

// New creates a client using the default AWS credential chain.
//
// Example:
//
//	client, err := s3role.New(ctx,
//	    s3role.WithRegion("us-west-2"),
//	    s3role.WithProfile("archive"),
//	)
func New(ctx context.Context, opts ...s3types.Option) (*Client, error) {
	cfg := applyOptions(opts)

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return newClient(newS3Client(awsCfg, cfg), cfg), nil
}

// NewWithClient creates a client around a caller-supplied, already
// authenticated S3 implementation. The handle never needs renewal.
func NewWithClient(s3Client s3api.S3API, opts ...s3types.Option) *Client {
	return newClient(s3Client, applyOptions(opts))
}

// RoleARN returns the role the handle was assumed for, or "" when it was not
// created by role assumption.
func (c *Client) RoleARN() string {
	return c.roleARN
}

// Expiration returns when the handle's credentials expire. Zero for role-less handles.
func (c *Client) Expiration() time.Time {
	return c.expiration
}

// RenewAt returns the instant from which the handle should be replaced.
// Zero for role-less handles.
func (c *Client) RenewAt() time.Time {
	return c.renewAt
}

// NeedsRenewal reports whether the handle has reached its renewal threshold at now.
func (c *Client) NeedsRenewal(now time.Time) bool {
	if c.roleARN == "" {
		return false
	}
	return assume.NeedsRenewal(now, c.renewAt)
}

// Close releases any resources held by the client.
// Currently a no-op; the SDK clients hold nothing that needs releasing.
func (c *Client) Close() error {
	return nil
}

func defaultConfig() *s3types.ClientConfig {
	return &s3types.ClientConfig{
		MaxRetries:    defaultMaxRetries,
		Concurrency:   1,
		PartSize:      defaultPartSize,
		SessionName:   assume.DefaultSessionName,
		RenewalWindow: assume.DefaultRenewalWindow,
		Clock:         time.Now,
	}
}

func applyOptions(opts []s3types.Option) *s3types.ClientConfig {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// loadAWSConfig resolves the base AWS configuration shared by STS and S3.
func loadAWSConfig(ctx context.Context, cfg *s3types.ClientConfig) (aws.Config, error) {
	var awsCfg aws.Config

	if cfg.CustomAWSConfig != nil {
		awsCfg = cfg.CustomAWSConfig.Copy()
	} else {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
		}
		if cfg.Profile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
		}

		loaded, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return aws.Config{}, errors.NewError("loadConfig", err)
		}
		awsCfg = loaded
	}

	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	} else if awsCfg.Region == "" {
		awsCfg.Region = defaultRegion
	}
	if cfg.MaxRetries > 0 {
		awsCfg.RetryMaxAttempts = cfg.MaxRetries
	}
	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	switch {
	case cfg.HTTPClient != nil:
		awsCfg.HTTPClient = cfg.HTTPClient
	case cfg.Timeout > 0:
		awsCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return awsCfg, nil
}

// newS3Client builds an SDK client from awsCfg, applying endpoint overrides.
func newS3Client(awsCfg aws.Config, cfg *s3types.ClientConfig) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
}

func newClient(s3Client s3api.S3API, cfg *s3types.ClientConfig) *Client {
	filesystem := cfg.Filesystem
	if filesystem == nil {
		filesystem = osfs.New("")
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	uploader := manager.NewUploader(s3Client, func(u *manager.Uploader) {
		if cfg.PartSize > 0 {
			u.PartSize = cfg.PartSize
		}
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
	})

	return &Client{
		s3Client: s3Client,
		uploader: uploader,
		fs:       filesystem,
		tempDir:  tempDir,
		logger:   cfg.Logger,
	}
}
