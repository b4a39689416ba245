// Package splitter provides implementations of interfaces.Splitter.
//
// ShamirSplitter splits secrets in-process with Shamir's Secret Sharing
// (github.com/hashicorp/vault/shamir) and tags its shares "shamir1".
// RemoteSplitter delegates to an external splitting service over HTTP and tags
// its shares with the service protocol, "fxc1" by default.
//
// MockSplitter is a testify mock for tests of code depending on a Splitter.
package splitter
