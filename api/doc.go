// Package api documents the plugstore HTTP API.
//
// # API Overview
//
// plugstore exposes a RESTful API for:
//   - Plugin registration, lookup, patching and removal (/api/plugins)
//   - Merged tool sets for a chat request (/api/tools)
//   - Dispatching a model's function call to the plugin API (/api/tools/invoke)
//   - The local forwarding proxy for plugins marked usingProxy (/api/proxy/)
//   - Health monitoring and metrics
//
// # Authentication
//
// When API keys are configured, API endpoints require the X-API-Key header:
//
//	X-API-Key: your-api-key
//
// Health endpoints are public. Proxy requests arriving from a loopback
// address are exempt so that the server can reach its own proxy with the
// plugin's credentials.
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
//
// # Generating Documentation
//
// The handlers carry swag annotations:
//
//	swag init -g cmd/plugstore/main.go -o api --parseDependency --parseInternal
package api
