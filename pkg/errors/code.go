package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Authentication errors
// 12000-12999: Session lifecycle errors
// 13000-13999: Puzzle & Test execution errors
// 14000-14999: Remote service errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalError  ErrorCode = 10001
	InvalidParams  ErrorCode = 10002
	NotFound       ErrorCode = 10003
	TransportError ErrorCode = 10004

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Authentication Errors (11000-11999) ==========

	LoginRequired     ErrorCode = 11000
	LoginFailed       ErrorCode = 11001
	EmailRequired     ErrorCode = 11002
	MalformedEmail    ErrorCode = 11003
	PasswordRequired  ErrorCode = 11004
	EmailNotLinked    ErrorCode = 11005
	IncorrectPassword ErrorCode = 11006

	// ========== Session Lifecycle Errors (12000-12999) ==========

	SessionNotFound ErrorCode = 12000
	SessionStarted  ErrorCode = 12001
	SessionFinished ErrorCode = 12002
	SessionFull     ErrorCode = 12003

	// ========== Puzzle & Test Execution Errors (13000-13999) ==========

	SolutionNotShared ErrorCode = 13002

	// ========== Remote Service Errors (14000-14999) ==========

	// RemoteError marks a remote failure whose code is not in any mapping table.
	RemoteError ErrorCode = 14000
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	Success:        "Success",
	InternalError:  "Internal error",
	InvalidParams:  "Invalid parameters",
	NotFound:       "Resource not found",
	TransportError: "Remote call failed",

	CacheError: "Cache operation failed",

	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	LoginRequired:     "You must be logged in to perform this action",
	LoginFailed:       "Login failed",
	EmailRequired:     "Email is required",
	MalformedEmail:    "Email is not well formed",
	PasswordRequired:  "Password is required",
	EmailNotLinked:    "Email is not linked to an account",
	IncorrectPassword: "Incorrect password",

	SessionNotFound: "Session not found",
	SessionStarted:  "Session has already started",
	SessionFinished: "Session has already finished",
	SessionFull:     "Session is full",

	SolutionNotShared: "Solution is not shared",

	RemoteError: "Remote service error",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// Conflict reports whether the code reflects genuine remote session state
// rather than a transient failure.
func (c ErrorCode) Conflict() bool {
	switch c {
	case SessionNotFound, SessionStarted, SessionFinished, SessionFull:
		return true
	default:
		return false
	}
}
