package metrics

const (
	ErrorsTotalName      = "errors_total"
	PanicsTotalName      = "panics_total"
	ErrorsByEndpointName = "errors_by_endpoint"
)

// RecordError records an error response by code and HTTP status.
func RecordError(errorCode string, httpStatus int) {
	counter(ErrorsTotalName, map[string]string{"error_code": errorCode, "http_status": statusLabel(httpStatus)})
}

// RecordPanic records a recovered handler panic.
func RecordPanic() {
	counter(PanicsTotalName, nil)
}

// RecordErrorByEndpoint records an error response by route.
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	counter(ErrorsByEndpointName, map[string]string{"endpoint": endpoint, "error_code": errorCode})
}
