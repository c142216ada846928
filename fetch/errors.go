package fetch

import "errors"

var (
	// ErrInvalidTemplate is returned when a feed URL template lacks the
	// {keyword} placeholder or does not produce an absolute URL.
	ErrInvalidTemplate = errors.New("invalid feed url template")

	// ErrUnexpectedStatus is returned when a feed or page request does not
	// answer 200 OK.
	ErrUnexpectedStatus = errors.New("unexpected http status")
)
