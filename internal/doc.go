// Package internal holds the private building blocks of the s3role module.
//
// Layout:
//   - operations: one subpackage per S3 or STS operation
//   - restore: x-amz-restore header parsing
//   - validation: bucket, key, range, role ARN and field checks
//   - pool: reusable copy buffers
//   - s3api: the SDK surfaces the module depends on
//   - cli: the s3role command tree
package internal
