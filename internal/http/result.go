package httpapi

// Result response envelope
// - code: 2000 on success, -1 on error
// - type: 'success' | 'error'
// - message: human readable outcome
// - result: payload
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return OkMessage("ok", result)
}

// OkMessage success envelope with a custom message
func OkMessage[T any](message string, result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: message, Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}
