// Package version exposes build information set at link time.
//
//	go build -ldflags "-X github.com/tikalinvest/brokerage-ledger/internal/version.Version=1.2.0"
package version

// Version is the application version.
var Version = "dev"
