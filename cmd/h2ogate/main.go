// H2Ogate exposes an OpenAI-compatible chat completions API backed by a
// H2OGPTE deployment.
//
// It translates inbound OpenAI-style requests into the backend's private
// RPC and WebSocket protocol, managing guest credentials and a pool of
// pre-warmed chat sessions so that requests never wait on session setup.
//
// Usage:
//
//	# Start the gateway with default configuration
//	h2ogate run
//
//	# Start with a custom configuration file
//	h2ogate run --config /etc/h2ogate/config.yaml
//
//	# Validate configuration without starting
//	h2ogate validate
//
//	# Inspect recorded turn usage
//	h2ogate usage recent --limit 20 --output json
//
//	# Show version information
//	h2ogate version
package main

func main() {
	Execute()
}
