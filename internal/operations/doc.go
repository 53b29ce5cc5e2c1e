// Package operations contains the request-level implementations behind the
// public Client and Assumer.
//
// Each operation lives in its own subpackage and talks to the SDK only through
// the interfaces in internal/s3api.
package operations
