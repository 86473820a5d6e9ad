// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client wrapper with timeouts that decodes the
// query API responses into domain values.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
