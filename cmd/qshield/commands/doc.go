// Package commands defines the qshield CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - init       Create the config directory and record relay/profile choices
//   - establish  Bind base-handshake outputs into a suite-2 session
//   - send       Encrypt, pad, and send a message to a peer
//   - recv       Fetch, unwrap, and decrypt queued envelopes
//   - status     Show session counters for a peer
//
// # Implementation
//
// The root command constructs an HTTP client and builds a dependency graph
// (session store, relay client, protocol engine) before any subcommand runs,
// so handlers share one app context with timeouts and connection pooling.
// Reject reason codes surface verbatim in command errors so scripted callers
// can match on reason_code tokens.
package commands
