package plug

import (
	"errors"
	"fmt"
)

var (
	// ErrIncorrectState is returned when the conn was already sent,
	// chunked or upgraded.
	ErrIncorrectState = errors.New("plug: incorrect conn state")
	// ErrInvalidHeader is returned for header values carrying CR or LF.
	ErrInvalidHeader = errors.New("plug: invalid header value")
	// ErrSignAndEncrypt is returned when a cookie asks to be both signed
	// and encrypted.
	ErrSignAndEncrypt = errors.New("plug: cookie cannot be both signed and encrypted")
	// ErrAlreadySent is the panic value raised on a sent conn.
	ErrAlreadySent = errors.New("plug: conn already sent")
)

func stateError(op string, s State) error {
	return fmt.Errorf("%s: %w (state %s)", op, ErrIncorrectState, s)
}

func mustNotBeSent(op string, s State) {
	if s == Sent {
		panic(fmt.Errorf("%s: %w", op, ErrAlreadySent))
	}
}
