package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	ErrorKind  string      `json:"error_kind,omitempty"` // Structured error kind, verbatim
	Error      string      `json:"error,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ErrorWithKind returns an error response carrying the structured error kind
// so callers never have to parse messages.
func ErrorWithKind(statusCode int, kind, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		ErrorKind:  kind,
		Error:      err,
	}
}
