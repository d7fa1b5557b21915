/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Board and Session Business Logic Errors
const (
	// ErrRoomCodeInvalid indicates that a malformed board code was provided.
	ErrRoomCodeInvalid = 2101

	// ErrRoomCodeExists indicates that the attempted board code for creation already exists.
	ErrRoomCodeExists = 2102

	// ErrRoomNotFound indicates that the attempted board code for operation does not exist.
	ErrRoomNotFound = 2103

	// ErrRoomIsFull indicates that the board being joined has reached its maximum user capacity.
	ErrRoomIsFull = 2104

	// ErrUserIDInvalid indicates that a malformed user (session) id was provided.
	ErrUserIDInvalid = 2201
)

// 3xxx: Connection and Security Errors
const (
	// ErrSessionKicked indicates that the current client connection has been terminated
	// because a newer connection claimed the same user id.
	ErrSessionKicked = 3001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
