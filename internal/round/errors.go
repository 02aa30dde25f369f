package round

import "errors"

var (
	// ErrOutChanFull is returned when the out channel cannot accept another
	// message. It should only happen when the channel was created with
	// insufficient capacity.
	ErrOutChanFull = errors.New("out channel is full")
	// ErrInvalidContent is returned when the content of a message is not
	// the type expected by the current round.
	ErrInvalidContent = errors.New("message content is invalid")
	// ErrNilFields is returned when a message contains unexpected nil fields.
	ErrNilFields = errors.New("message contains nil fields")
	// ErrDuplicate is returned when a message from the same sender was
	// already handled in this round.
	ErrDuplicate = errors.New("message already handled")
)
