package session

import "errors"

var (
	ErrNotRegistered    = errors.New("connection is not registered")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrEmptyContent     = errors.New("message content is empty")
	ErrSelfMessage      = errors.New("sender and receiver are the same user")
	ErrIdentityMismatch = errors.New("user id does not match authenticated user")
	ErrDisconnected     = errors.New("connection is closed")
)

// failure carries the notice shown to the client next to the internal cause.
type failure struct {
	notice string
	err    error
}

func (f *failure) Error() string {
	return f.notice + ": " + f.err.Error()
}

func (f *failure) Unwrap() error {
	return f.err
}

func fail(notice string, err error) error {
	return &failure{notice: notice, err: err}
}

// notices for errors raised before any store access.
var clientNotices = map[error]string{
	ErrNotRegistered:    "User is not registered.",
	ErrUnknownEvent:     "Unknown event.",
	ErrInvalidPayload:   "Invalid payload.",
	ErrEmptyContent:     "Message content is required.",
	ErrSelfMessage:      "Cannot send a message to yourself.",
	ErrIdentityMismatch: "User id does not match the authenticated user.",
	ErrDisconnected:     "Connection is closed.",
}

// noticeFor returns the client-facing message for err and whether err was
// caused by the client rather than a dependency.
func noticeFor(err error) (string, bool) {
	for sentinel, notice := range clientNotices {
		if errors.Is(err, sentinel) {
			return notice, true
		}
	}
	var f *failure
	if errors.As(err, &f) {
		return f.notice, false
	}
	return "Request failed.", false
}
