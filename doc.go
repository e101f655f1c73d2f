// Package core is the root of MeshGate, a multi-protocol agent-tool
// gateway. It ingests requests in any of several agent-to-tool wire
// protocols (MCP, A2A, UCP, ACP, and two internal versions), normalizes
// them into a single intent representation, routes that intent to the
// best-matching tool by embedding similarity, executes the tool inside
// an isolated sandbox pool, and emits a human-reviewable audit trail at
// every transition.
//
// # Architecture
//
//	Raw request → protocol.Dispatcher (detect + normalize)
//	            → router.Router (embed + select)
//	            → sandbox.Pool (execute in isolation)
//	            → audit.Stream (record every transition)
//
// A narrow credential.Lookup facade resolves secrets a selected tool
// requires without ever handling key management itself.
//
// # Packages
//
//	pkg/protocol   - adapters for each wire protocol plus the dispatcher
//	pkg/router     - embedding-similarity tool selection
//	pkg/embedder   - embedding generation, caching, similarity
//	pkg/sandbox    - process-isolated tool execution pool
//	pkg/audit      - append-only audit stream and human-readable views
//	pkg/credential - secret resolution facade
//	pkg/observability - metrics and tracing
//	pkg/registry   - generic concurrent-safe catalog
//	pkg/types      - shared wire and domain types
//
// cmd/meshgate is the reference binary wiring these packages behind an
// HTTP surface.
package core
