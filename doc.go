// Package s3role provides S3 helpers that run under a temporarily assumed IAM role.
//
// An Assumer calls STS AssumeRole and returns a Client built from the returned
// credentials. A Client is immutable: when its credentials come within the
// renewal window of expiry, Assumer.Validate returns a fresh Client and leaves
// the old one untouched.
//
// Key features:
//   - Role assumption with renewal ahead of credential expiry
//   - Streaming downloads into seekable sinks, with optional byte ranges
//   - Cross-account copies through a scoped temporary file
//   - Glacier and Deep Archive restore inspection
//   - Prefix listing that follows continuation tokens and projects fields
//
// Example usage:
//
//	assumer, err := s3role.NewAssumer(ctx, s3role.WithRegion("eu-west-1"))
//	if err != nil {
//	    return err
//	}
//
//	client, err := assumer.AssumeRole(ctx, "arn:aws:iam::123456789012:role/reader")
//	if err != nil {
//	    return err
//	}
//
//	// Later, before each batch of work
//	client, err = assumer.Validate(ctx, client)
//	if err != nil {
//	    return err
//	}
//
//	rows, err := client.ListObjects(ctx, "my-bucket", "logs/",
//	    []s3types.ObjectField{s3types.FieldKey, s3types.FieldSize})
package s3role
