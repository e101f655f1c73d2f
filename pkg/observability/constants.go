package observability

const (
	AttrServiceName      = "service.name"
	AttrServiceVersion   = "service.version"
	AttrProtocol         = "meshgate.protocol"
	AttrToolName         = "meshgate.tool_name"
	AttrSandboxID        = "meshgate.sandbox_id"
	AttrRequestID        = "meshgate.request_id"
	AttrErrorType        = "error.type"
	AttrStatusCode       = "http.status_code"
	AttrHTTPMethod       = "http.method"
	AttrHTTPPath         = "http.path"
	AttrHTTPStatusCode   = "http.status_code"
	AttrHTTPResponseSize = "http.response_size"

	SpanEmbed         = "meshgate.embedder.embed"
	SpanRoute         = "meshgate.router.route"
	SpanSandboxCreate = "meshgate.sandbox.create"
	SpanToolExecution = "meshgate.sandbox.execute"
	SpanAuditPersist  = "meshgate.audit.persist"
	SpanHTTPRequest   = "meshgate.http.request"

	DefaultServiceName  = "meshgate"
	DefaultSamplingRate = 1.0
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultMetricsPath  = "/metrics"
)
