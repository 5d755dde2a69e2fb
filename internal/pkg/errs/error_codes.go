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

	// ErrRateLimitExceeded indicates that the request rate has exceeded the configured window.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Room and Message Business Logic Errors
const (
	// ErrRoomNotFound indicates that the referenced room does not exist.
	ErrRoomNotFound = 2101

	// ErrRoomNameInvalid indicates that the room name is outside the 2-100 character range.
	ErrRoomNameInvalid = 2102

	// ErrPrivateRoomForbidden indicates a private-room history read by someone other than its creator.
	ErrPrivateRoomForbidden = 2103

	// ErrMessageEmpty indicates that both the message content and the file reference are empty.
	ErrMessageEmpty = 2201

	// ErrMessageTooLong indicates that the message content exceeded the maximum length.
	ErrMessageTooLong = 2202

	// ErrMessageTargetInvalid indicates that a message or history query specified both a
	// room and a receiver, or neither.
	ErrMessageTargetInvalid = 2203

	// ErrFileRefInvalid indicates that the attached file reference does not point at an uploaded object.
	ErrFileRefInvalid = 2204

	// ErrFileSizeTooLarge indicates that the file exceeds the upload size limit.
	ErrFileSizeTooLarge = 2301

	// ErrFileTypeInvalid indicates a file name or MIME type outside the allowed set.
	ErrFileTypeInvalid = 2302
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrUnauthorized indicates a missing, malformed, expired, or signature-invalid credential.
	ErrUnauthorized = 3001

	// ErrInvalidCredentials indicates a failed email/password login attempt.
	ErrInvalidCredentials = 3002

	// ErrUserAlreadyExists indicates that the registration email is already taken.
	ErrUserAlreadyExists = 3003

	// ErrUserNotFound indicates that the referenced user does not exist.
	ErrUserNotFound = 3004

	// ErrReceiverNotFound indicates that the direct-message receiver does not exist.
	ErrReceiverNotFound = 3005

	// ErrInvalidName indicates a display name outside the 1-80 character range.
	ErrInvalidName = 3006

	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = 3007

	// ErrInvalidPassword indicates a password outside the accepted length range.
	ErrInvalidPassword = 3008
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStoreUnavailable indicates that the persistence layer failed transiently.
	// It is surfaced distinctly from business errors so the caller can decide to retry.
	ErrStoreUnavailable = 5001

	// ErrFileStorageFailed indicates that the object storage backend rejected an operation.
	ErrFileStorageFailed = 5002
)
