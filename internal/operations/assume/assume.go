// Package assume obtains temporary credentials for an IAM role from STS and
// computes when a handle built from them must be renewed.
package assume

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/s3api"
)

const (
	// DefaultSessionName is the role session name used when none is configured
	DefaultSessionName = "assumed-role"

	// DefaultRenewalWindow is how long before expiry a handle is renewed
	DefaultRenewalWindow = 5 * time.Minute
)

// Request describes one AssumeRole call.
type Request struct {
	RoleARN     string
	SessionName string
	Duration    time.Duration
	ExternalID  string
}

// Credentials are the temporary credentials returned by STS.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

// Provider returns a static provider over the credentials.
func (c *Credentials) Provider() aws.CredentialsProvider {
	return credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
}

// Assumer calls STS.
type Assumer struct {
	stsClient s3api.STSAPI
}

// New creates a new Assumer instance.
func New(stsClient s3api.STSAPI) *Assumer {
	return &Assumer{
		stsClient: stsClient,
	}
}

// AssumeRole requests temporary credentials for req.RoleARN.
// STS errors are returned wrapped with the original error reachable via Unwrap.
func (a *Assumer) AssumeRole(ctx context.Context, req Request) (*Credentials, error) {
	sessionName := req.SessionName
	if sessionName == "" {
		sessionName = DefaultSessionName
	}

	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(req.RoleARN),
		RoleSessionName: aws.String(sessionName),
	}
	if req.Duration > 0 {
		input.DurationSeconds = aws.Int32(int32(req.Duration / time.Second))
	}
	if req.ExternalID != "" {
		input.ExternalId = aws.String(req.ExternalID)
	}

	output, err := a.stsClient.AssumeRole(ctx, input)
	if err != nil {
		return nil, errors.NewError("assumeRole", err).WithMessage(req.RoleARN)
	}

	creds := output.Credentials
	if creds == nil || creds.AccessKeyId == nil || creds.SecretAccessKey == nil || creds.Expiration == nil {
		return nil, errors.NewError("assumeRole", errors.ErrNoCredentials).WithMessage(req.RoleARN)
	}

	return &Credentials{
		AccessKeyID:     aws.ToString(creds.AccessKeyId),
		SecretAccessKey: aws.ToString(creds.SecretAccessKey),
		SessionToken:    aws.ToString(creds.SessionToken),
		Expiration:      aws.ToTime(creds.Expiration),
	}, nil
}

// RenewAt returns the instant from which credentials expiring at expiry are
// considered stale. A non-positive window uses DefaultRenewalWindow.
func RenewAt(expiry time.Time, window time.Duration) time.Time {
	if window <= 0 {
		window = DefaultRenewalWindow
	}
	return expiry.Add(-window)
}

// NeedsRenewal reports whether now has reached renewAt.
func NeedsRenewal(now, renewAt time.Time) bool {
	return !now.Before(renewAt)
}
