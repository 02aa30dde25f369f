package round

// Round represents one round of a protocol, where each party
// processes the messages of the previous round and produces
// messages for the next one.
type Round interface {
	// VerifyMessage handles an incoming Message from j and validates its content
	// with regard to the protocol specification.
	// The content argument can be cast to the appropriate type for this round
	// without error check.
	// In the first round, this function returns nil.
	// This function should not modify any saved state as it may be running concurrently.
	VerifyMessage(msg Message) error

	// StoreMessage should be called after VerifyMessage and should only store
	// the appropriate fields from the content.
	StoreMessage(msg Message) error

	// Finalize is called after all messages from the parties have been processed
	// in the current round. Messages for the next round are sent out through the
	// out channel.
	// If a non-critical error occurs (like a failure to sample, hash, or send a
	// message), the current round can be returned so that the caller may try to
	// finalize again.
	//
	// In the last round, Finalize should return
	//   r.ResultRound(result), nil
	// where result is the output of the protocol.
	// When an abort is detected, it should return
	//   r.AbortRound(err, culprits...), nil
	Finalize(out chan<- *Message) (Session, error)

	// MessageContent returns an uninitialized message.Content for this round.
	//
	// The first round of a protocol, and rounds expecting only broadcast
	// messages, should return nil.
	MessageContent() Content

	// Number returns the current round number.
	Number() Number
}

// BroadcastRound extends Round for rounds that expect a broadcast message
// before the p2p messages.
//
// The broadcast channel is assumed to be consistent: all parties receive the
// same broadcast message from a given sender.
type BroadcastRound interface {
	Round

	// StoreBroadcastMessage is run before Round.VerifyMessage and
	// Round.StoreMessage.
	StoreBroadcastMessage(msg Message) error

	// BroadcastContent returns an uninitialized message.Content for this
	// round's broadcast message.
	BroadcastContent() Content
}

// Content represents a message body, either broadcast or p2p, produced by a
// round during finalization.
type Content interface {
	RoundNumber() Number
}
