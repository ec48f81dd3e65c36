// Package commands defines the cloak CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init           Create the local identity
//   - register       Publish your pre-key bundle to a relay
//   - start-session  Establish an X3DH session with a peer
//   - verify         Verify a session fingerprint compared out of band
//   - send           Scan, encrypt and send a message
//   - recv           Fetch and decrypt queued messages
//   - scan           Run the content scanner without sending
//   - status         List sessions and verification state
//   - clear          Delete a session
//
// # Implementation
//
// The root command binds its persistent flags to viper (environment prefix
// CLOAK) and builds the dependency graph (stores, services, relay client)
// before any subcommand runs, so handlers share one app context.
package commands
