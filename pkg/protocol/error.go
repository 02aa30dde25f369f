package protocol

import (
	"errors"
	"fmt"

	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

// Error is the error returned by a failed protocol execution. It records the
// round in which the failure occurred, and the party responsible when its
// identity could be established.
type Error struct {
	// RoundNumber where the error occurred.
	RoundNumber round.Number
	// Culprit is nil if the identity of the misbehaving party cannot be known.
	Culprit *party.ID
	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	if e.Culprit == nil {
		return fmt.Sprintf("round %d: %s", e.RoundNumber, e.Err)
	}
	return fmt.Sprintf("round %d: party %s: %s", e.RoundNumber, *e.Culprit, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrMessageDuplicate is returned when a message was already received
	// from the same sender for the same round.
	ErrMessageDuplicate = errors.New("message: duplicate")
	// ErrMessageUnknownSender is returned when the sender is not a
	// participant of the session.
	ErrMessageUnknownSender = errors.New("message: unknown sender")
	// ErrMessageWrongSSID is returned when the message belongs to a
	// different session.
	ErrMessageWrongSSID = errors.New("message: wrong SSID")
	// ErrMessageWrongProtocolID is returned when the message belongs to a
	// different protocol.
	ErrMessageWrongProtocolID = errors.New("message: wrong protocol ID")
	// ErrMessageWrongDestination is returned when the message is not
	// intended for us.
	ErrMessageWrongDestination = errors.New("message: wrong destination")
	// ErrMessageWrongRound is returned when the round number embedded in
	// the content does not match the header.
	ErrMessageWrongRound = errors.New("message: wrong round number")
	// ErrMessageInvalidRoundNumber is returned when the round number is
	// beyond the final round of the protocol.
	ErrMessageInvalidRoundNumber = errors.New("message: invalid round number")
	// ErrMessageUnexpected is returned when the current round does not
	// expect a message of this kind.
	ErrMessageUnexpected = errors.New("message: unexpected")
	// ErrMessageMalformed is returned when the message content cannot be
	// decoded.
	ErrMessageMalformed = errors.New("message: malformed")
	// ErrProtocolFinished is returned when the protocol already produced a
	// result or failed.
	ErrProtocolFinished = errors.New("protocol: already finished")
)
