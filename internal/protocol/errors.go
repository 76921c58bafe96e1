package protocol

import "errors"

var (
	ErrSendTimeout     = errors.New("protocol: wait send timed out")
	ErrResponseTimeout = errors.New("protocol: wait response timed out")
)
