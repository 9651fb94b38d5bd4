// File: internal/jsonrpc/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package jsonrpc

import "fmt"

// JSON-RPC 2.0 error codes, plus the permission failure code clients of
// this interface already understand.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeBadPermission  = -32099
)

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func newError(code int, data any) *Error {
	msg := "Internal error"
	switch code {
	case CodeParseError:
		msg = "Parse error"
	case CodeInvalidRequest:
		msg = "Invalid request"
	case CodeMethodNotFound:
		msg = "Method not found"
	case CodeInvalidParams:
		msg = "Invalid params"
	case CodeBadPermission:
		msg = "Bad client permission"
	}
	return &Error{Code: code, Message: msg, Data: data}
}

// InvalidParams reports a params problem described by detail.
func InvalidParams(detail string) *Error {
	return newError(CodeInvalidParams, detail)
}
