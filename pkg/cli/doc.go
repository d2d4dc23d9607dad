// Package cli provides shared helpers for the h2ogate command-line
// interface: signal-aware contexts, typed command errors, and output
// formatting for query subcommands.
package cli
