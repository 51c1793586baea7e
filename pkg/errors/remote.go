package errors

// conflictCodes maps remote session error ids to session conflict codes.
var conflictCodes = map[int]ErrorCode{
	502: SessionNotFound,
	504: SessionStarted,
	505: SessionFinished,
	506: SessionFull,
}

// loginCodes maps remote login error ids to authentication codes.
var loginCodes = map[int]ErrorCode{
	332: EmailRequired,
	334: MalformedEmail,
	336: PasswordRequired,
	393: EmailNotLinked,
	396: IncorrectPassword,
}

// FromRemote translates a remote (id, message) pair raised by a session
// operation. Ids outside the table return cause unchanged.
func FromRemote(id int, message string, cause error) error {
	code, ok := conflictCodes[id]
	if !ok {
		return cause
	}
	return remoteError(code, id, message, cause)
}

// FromLoginRemote translates a remote login failure. Unknown ids become
// LoginFailed wrapping cause.
func FromLoginRemote(id int, message string, cause error) error {
	code, ok := loginCodes[id]
	if !ok {
		code = LoginFailed
	}
	return remoteError(code, id, message, cause)
}

func remoteError(code ErrorCode, id int, message string, cause error) *Error {
	e := Wrap(cause, code)
	if e == nil {
		e = New(code)
	}
	if message != "" {
		e.Message = message
	} else {
		e.Message = code.Message()
	}
	e.Stack = getStack(3)
	return e.WithDetail("remote_id", id)
}
