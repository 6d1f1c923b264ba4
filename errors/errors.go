package errors

import "fmt"

var (
	ErrWorkerPanic  = fmt.Errorf("worker panic")
	ErrRoomFull     = fmt.Errorf("room is full")
	ErrRoomClosed   = fmt.Errorf("room is closed")
	ErrInvalidToken = fmt.Errorf("invalid or expired token")

	ErrInvalidPassword    = fmt.Errorf("password does not meet the complexity rules")
	ErrMalformedHash      = fmt.Errorf("malformed password hash")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
)
