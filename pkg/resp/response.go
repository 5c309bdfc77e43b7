package resp

import "fmt"

// ErrorBody is the wire shape of a failed request. Clients surface the reason
// verbatim.
type ErrorBody struct {
	Error string `json:"error"`
}

func NewError(message string) ErrorBody {
	return ErrorBody{Error: message}
}

func NewErrorf(format string, args ...interface{}) ErrorBody {
	return ErrorBody{Error: fmt.Sprintf(format, args...)}
}

// SuccessBody acknowledges a mutation that returns no entity.
type SuccessBody struct {
	Success bool `json:"success"`
}

func OK() SuccessBody {
	return SuccessBody{Success: true}
}
