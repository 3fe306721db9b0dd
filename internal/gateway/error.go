package gateway

import "fmt"

// Error is the only error type the client returns. Transport failures carry
// Status 0 and the text "Request failed: <detail>"; non-2xx responses carry
// the upstream status code and body as "<status>: <body>". The exact strings
// are load-bearing: callers and operators match on them.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return "Request failed: " + e.Detail
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Detail)
}

func transportErr(err error) *Error {
	return &Error{Detail: err.Error()}
}

func statusErr(code int, body []byte) *Error {
	return &Error{Status: code, Detail: string(body)}
}
