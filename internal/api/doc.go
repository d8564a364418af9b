// Package api provides the HTTP status and metrics server for the JeeLabs bridge.
//
// It exposes liveness and readiness probes, the Prometheus scrape endpoint,
// and read-only views of bridge health and the last reading of each node.
//
//	GET /healthz              liveness, always 200 while the process runs
//	GET /readyz               200 when the bridge is healthy, else 503
//	GET /metrics              Prometheus exposition format
//	GET /api/v1/status        current health message
//	GET /api/v1/nodes         last reading of every node
//	GET /api/v1/nodes/{id}    last reading of one node
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
