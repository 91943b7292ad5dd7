package utils

type contextKey string

// Request scoped values attached by handlers
const (
	RequestIDKey  contextKey = "request_id"
	UserAgentKey  contextKey = "user_agent"
	IPAddressKey  contextKey = "ip_address"
	EndpointKey   contextKey = "endpoint"
	OperatorIDKey contextKey = "operator_id"
)
