// Package commands defines the dreammover CLI and wires the core service for subcommands.
//
// Commands
//
//   - vet          Vet every plan in a directory and optionally write a report
//   - marketplace  Upload certified plans and list listings
//   - tier         Check, record rituals against, or upgrade the tier profile
//   - collab       Open team share requests and vote on them
//   - audit        Append to and list the audit ledger
//   - feedback     Record post-rite satisfaction scores
//   - viral        Generate a social share for a rite
//
// # Implementation
//
// The root command loads configuration from the environment, builds the
// logger, tracer and Prometheus registry, and opens the configured state
// backend before any subcommand runs. Results are written to stdout as
// indented JSON; logs and the optional metrics dump go to stderr.
package commands
