package response

// Response represents a standard API response format
type Response struct {
	Status     string `json:"status"`      // "success" or "error"
	StatusCode int    `json:"status_code"` // HTTP status code
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	// Code is a stable machine readable error identifier
	Code string `json:"code,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data any) Response {
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

// ErrorWithCode is Error plus a machine readable code
func ErrorWithCode(statusCode int, code, err string) Response {
	r := Error(statusCode, err)
	r.Code = code
	return r
}
