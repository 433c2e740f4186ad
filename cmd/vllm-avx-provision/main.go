// Package main is the entry point for the vllm-avx-provision CLI.
//
// This binary checks a host for AVX support and provisions a CPU-only vLLM
// build with the AVX-512 code paths disabled. It delegates all
// functionality to the internal/cli package, which defines cobra commands.
//
// Build-time variables (version, commit, date) are injected via ldflags
// by GoReleaser during the release process.
package main

import (
	"github.com/shinji-kodama/vllm-avx-provision/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
