package assume

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/testutil"
)

func TestAssumer_AssumeRole(t *testing.T) {
	expiry := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		req       Request
		check     func(t *testing.T, input *sts.AssumeRoleInput)
		output    *sts.AssumeRoleOutput
		apiErr    error
		wantErr   error
		wantCreds *Credentials
	}{
		{
			name: "defaults",
			req:  Request{RoleARN: testutil.TestRoleARN},
			check: func(t *testing.T, input *sts.AssumeRoleInput) {
				assert.Equal(t, testutil.TestRoleARN, aws.ToString(input.RoleArn))
				assert.Equal(t, DefaultSessionName, aws.ToString(input.RoleSessionName))
				assert.Nil(t, input.DurationSeconds)
				assert.Nil(t, input.ExternalId)
			},
			output: testutil.AssumeRoleOutput(expiry),
			wantCreds: &Credentials{
				AccessKeyID:     "ASIATESTACCESSKEY",
				SecretAccessKey: "test-secret",
				SessionToken:    "test-session-token",
				Expiration:      expiry,
			},
		},
		{
			name: "session options",
			req: Request{
				RoleARN:     testutil.TestRoleARN,
				SessionName: "nightly-copy",
				Duration:    2 * time.Hour,
				ExternalID:  "ext-123",
			},
			check: func(t *testing.T, input *sts.AssumeRoleInput) {
				assert.Equal(t, "nightly-copy", aws.ToString(input.RoleSessionName))
				assert.Equal(t, int32(7200), aws.ToInt32(input.DurationSeconds))
				assert.Equal(t, "ext-123", aws.ToString(input.ExternalId))
			},
			output: testutil.AssumeRoleOutput(expiry),
		},
		{
			name:    "missing credentials",
			req:     Request{RoleARN: testutil.TestRoleARN},
			output:  &sts.AssumeRoleOutput{Credentials: &ststypes.Credentials{}},
			wantErr: s3errors.ErrNoCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockSTSClient{
				AssumeRoleFunc: func(ctx context.Context, input *sts.AssumeRoleInput, opts ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
					if tt.check != nil {
						tt.check(t, input)
					}
					return tt.output, tt.apiErr
				},
			}

			creds, err := New(mock).AssumeRole(context.Background(), tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantCreds != nil {
				assert.Equal(t, tt.wantCreds, creds)
			}
			assert.Len(t, mock.Calls, 1)
		})
	}
}

func TestAssumer_AssumeRole_AccessDeniedPassesThrough(t *testing.T) {
	denied := &smithy.GenericAPIError{Code: "AccessDenied", Message: "not authorized to perform sts:AssumeRole"}
	mock := &testutil.MockSTSClient{
		AssumeRoleFunc: func(ctx context.Context, input *sts.AssumeRoleInput, opts ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
			return nil, denied
		},
	}

	creds, err := New(mock).AssumeRole(context.Background(), Request{RoleARN: testutil.TestRoleARN})
	require.Error(t, err)
	assert.Nil(t, creds)
	assert.True(t, s3errors.IsAccessDenied(err))

	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "AccessDenied", apiErr.ErrorCode())
	assert.Contains(t, err.Error(), testutil.TestRoleARN)
}

func TestCredentials_Provider(t *testing.T) {
	creds := &Credentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET", SessionToken: "TOKEN"}

	got, err := creds.Provider().Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", got.AccessKeyID)
	assert.Equal(t, "SECRET", got.SecretAccessKey)
	assert.Equal(t, "TOKEN", got.SessionToken)
}

func TestRenewal(t *testing.T) {
	expiry := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	renewAt := RenewAt(expiry, 0)
	assert.Equal(t, expiry.Add(-DefaultRenewalWindow), renewAt)
	assert.Equal(t, expiry.Add(-time.Minute), RenewAt(expiry, time.Minute))

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"well before", renewAt.Add(-time.Hour), false},
		{"one nanosecond before", renewAt.Add(-time.Nanosecond), false},
		{"at threshold", renewAt, true},
		{"after threshold", renewAt.Add(time.Second), true},
		{"after expiry", expiry.Add(time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsRenewal(tt.now, renewAt))
		})
	}
}
