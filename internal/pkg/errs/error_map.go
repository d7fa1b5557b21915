/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Board and Session Business Logic Errors
	ErrRoomCodeInvalid: {Code: ErrRoomCodeInvalid, Message: "Invalid board code."},
	ErrRoomCodeExists:  {Code: ErrRoomCodeExists, Message: "Board code already exists."},
	ErrRoomNotFound:    {Code: ErrRoomNotFound, Message: "Board not found."},
	ErrRoomIsFull:      {Code: ErrRoomIsFull, Message: "This board is full."},
	ErrUserIDInvalid:   {Code: ErrUserIDInvalid, Message: "Invalid user id."},

	// 3xxx: Connection and Security Errors
	ErrSessionKicked: {Code: ErrSessionKicked, Message: "You joined this board from another window."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
