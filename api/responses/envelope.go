package responses

// Body wraps every successful JSON response as {"data": ...}.
type Body struct {
	Data any `json:"data"`
}

// ErrorBody wraps every error response as {"error": {...}}.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-facing view of a pkg/errors.Error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
