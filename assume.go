package s3role

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/operations/assume"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

// Assumer turns role ARNs into Clients and renews Clients nearing expiry.
// It is immutable after construction and safe for concurrent use.
type Assumer struct {
	assumer *assume.Assumer
	awsCfg  aws.Config
	config  *s3types.ClientConfig
}

// NewAssumer loads the default AWS configuration and creates an STS client
// for assuming roles. Options apply to the Assumer and every Client it returns.
func NewAssumer(ctx context.Context, opts ...s3types.Option) (*Assumer, error) {
	cfg := applyOptions(opts)

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Assumer{
		assumer: assume.New(sts.NewFromConfig(awsCfg)),
		awsCfg:  awsCfg,
		config:  cfg,
	}, nil
}

// NewAssumerWithAPI creates an Assumer around a caller-supplied STS implementation.
// The base AWS configuration comes from WithAWSConfig, or is empty apart from
// the region.
func NewAssumerWithAPI(stsClient s3api.STSAPI, opts ...s3types.Option) *Assumer {
	cfg := applyOptions(opts)

	var awsCfg aws.Config
	if cfg.CustomAWSConfig != nil {
		awsCfg = cfg.CustomAWSConfig.Copy()
	}
	awsCfg.Region = cfg.Region
	if awsCfg.Region == "" {
		awsCfg.Region = defaultRegion
	}

	return &Assumer{
		assumer: assume.New(stsClient),
		awsCfg:  awsCfg,
		config:  cfg,
	}
}

// AssumeRole obtains temporary credentials for roleARN and returns a Client
// that uses them. The Client should be renewed from RenewAt onwards, which is
// the credential expiry minus the renewal window.
//
// Errors:
//   - ErrInvalidRoleARN: if roleARN is not an IAM role ARN
//   - ErrInvalidInput: if the session duration is outside 15 minutes to 12 hours
//   - STS errors such as AccessDenied, wrapped but otherwise unchanged
//   - ErrNoCredentials: if STS answered without credentials
func (a *Assumer) AssumeRole(ctx context.Context, roleARN string) (*Client, error) {
	if err := validation.ValidateRoleARN(roleARN); err != nil {
		return nil, errors.NewError("assumeRole", err)
	}
	if err := validation.ValidateSessionDuration(a.config.SessionDuration); err != nil {
		return nil, errors.NewError("assumeRole", err)
	}

	if a.config.Logger != nil {
		a.config.Logger.DebugContext(ctx, "assuming role", "role_arn", roleARN)
	}

	creds, err := a.assumer.AssumeRole(ctx, assume.Request{
		RoleARN:     roleARN,
		SessionName: a.config.SessionName,
		Duration:    a.config.SessionDuration,
		ExternalID:  a.config.ExternalID,
	})
	if err != nil {
		if a.config.Logger != nil {
			a.config.Logger.ErrorContext(ctx, "failed to assume role",
				"role_arn", roleARN,
				"error", err,
			)
		}
		return nil, err
	}

	awsCfg := a.awsCfg.Copy()
	awsCfg.Credentials = aws.NewCredentialsCache(creds.Provider())

	client := newClient(newS3Client(awsCfg, a.config), a.config)
	client.roleARN = roleARN
	client.expiration = creds.Expiration
	client.renewAt = assume.RenewAt(creds.Expiration, a.config.RenewalWindow)

	if a.config.Logger != nil {
		a.config.Logger.InfoContext(ctx, "role assumed",
			"role_arn", roleARN,
			"renew_at", client.renewAt,
		)
	}

	return client, nil
}

// Validate returns client unchanged while it is before its renewal threshold,
// and otherwise assumes the same role again and returns the new Client.
// Clients not created by role assumption are always returned unchanged.
//
// Validate does not coordinate callers: two goroutines validating the same
// stale Client may each assume the role.
func (a *Assumer) Validate(ctx context.Context, client *Client) (*Client, error) {
	if client == nil {
		return nil, errors.NewError("validate", errors.ErrInvalidInput).WithMessage("client cannot be nil")
	}
	if !client.NeedsRenewal(a.config.Clock()) {
		return client, nil
	}

	if a.config.Logger != nil {
		a.config.Logger.InfoContext(ctx, "renewing role credentials",
			"role_arn", client.roleARN,
			"renew_at", client.renewAt,
		)
	}
	return a.AssumeRole(ctx, client.roleARN)
}
