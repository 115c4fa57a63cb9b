// Package internal contains private implementation details for the upstream
// module. These packages are not intended for external use and may change
// without notice.
//
// The internal packages are organized as follows:
//   - storeapi: the object store primitive interface
//   - validation: input and content-signature validation
//   - keygen: storage key generation
//   - transfer: the multipart transfer engine
//   - pool: bounded store slots and buffer reuse
//   - testutil: store mocks shared across package tests
package internal
