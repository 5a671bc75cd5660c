package relay

// Error is the routing error used across the relay surface. Every
// failure a handler may show to a user carries a stable machine code,
// which also feeds the err_code field of handler summary logs.
type Error struct {
	code  string
	text  string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.text + ": " + e.cause.Error()
	}
	return e.text
}

// Code returns the stable machine-readable error code.
func (e *Error) Code() string { return e.code }

func (e *Error) Unwrap() error { return e.cause }

// Is matches by code so wrapped instances compare equal to sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.code == e.code
}

var (
	ErrOwnerAlreadySet  = &Error{code: "OWNER_ALREADY_SET", text: "owner already claimed"}
	ErrDuplicateRoom    = &Error{code: "DUPLICATE_ROOM", text: "room already exists"}
	ErrRoomNotFound     = &Error{code: "ROOM_NOT_FOUND", text: "room not found"}
	ErrAdminNotFound    = &Error{code: "ADMIN_NOT_FOUND", text: "admin not found in room"}
	ErrNoAdmins         = &Error{code: "NO_ADMINS", text: "room has no admins"}
	ErrTokenNotFound    = &Error{code: "TOKEN_NOT_FOUND", text: "correlation token not found"}
	ErrPermissionDenied = &Error{code: "PERMISSION_DENIED", text: "permission denied"}
	ErrParse            = &Error{code: "PARSE_ERROR", text: "malformed input"}
	ErrPersistence      = &Error{code: "PERSISTENCE_FAILURE", text: "state snapshot not saved"}
	ErrDelivery         = &Error{code: "DELIVERY_FAILURE", text: "message delivery failed"}
)

func persistFailed(cause error) error {
	return &Error{code: ErrPersistence.code, text: ErrPersistence.text, cause: cause}
}

func deliveryFailed(cause error) error {
	return &Error{code: ErrDelivery.code, text: ErrDelivery.text, cause: cause}
}
