package types

// CheckConfig describes one HTTP probe.
type CheckConfig struct {
	URL            string `json:"url"`
	Method         string `json:"method"`
	ExpectedStatus int    `json:"expected_status"`
	TimeoutMs      int    `json:"timeout_ms"`
}

// CheckResult is the classified outcome of a probe. HTTPStatus and ErrorMessage are nil
// when not observed.
type CheckResult struct {
	Status         HealthStatus `json:"status"`
	ResponseTimeMs int          `json:"response_time_ms"`
	HTTPStatus     *int         `json:"http_status"`
	ErrorMessage   *string      `json:"error_message"`
}
