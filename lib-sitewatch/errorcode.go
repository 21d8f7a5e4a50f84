package sitewatch

import (
	"strconv"
	"strings"
)

// ErrorCode is the reason of a failed probe.
// The empty ErrorCode means no error.
type ErrorCode string

const (
	ErrorNone       ErrorCode = ""
	ErrorTimeout    ErrorCode = "timeout"
	ErrorConnection ErrorCode = "connection_error"
)

const httpServerErrorPrefix = "http_5xx:"

// HTTPServerError makes ErrorCode for HTTP response that has 5xx status code.
func HTTPServerError(code int) ErrorCode {
	return ErrorCode(httpServerErrorPrefix + strconv.Itoa(code))
}

// HTTPStatus returns the HTTP status code if the code is made by HTTPServerError.
func (c ErrorCode) HTTPStatus() (code int, ok bool) {
	s, found := strings.CutPrefix(string(c), httpServerErrorPrefix)
	if !found {
		return 0, false
	}
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return code, true
}

func (c ErrorCode) String() string {
	return string(c)
}
