package sessions

import "errors"

var (
	ErrSessionDeleted = errors.New("chat session deleted")
	ErrLockLost       = errors.New("session lock expired before release")
)
