package httpmsg

import "errors"

// ErrBadRequestLine describes a request line that does not match the
// fixed "(GET|POST) target HTTP/d.d" grammar. Parse reports that case by
// returning false; it does not return this error.
var ErrBadRequestLine = errors.New("httpmsg: malformed request line")
