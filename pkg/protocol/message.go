package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

// Message is the wire format for a single protocol message.
type Message struct {
	// SSID is a byte string which uniquely identifies the session this
	// message belongs to.
	SSID []byte
	// From is the party.ID of the sender.
	From party.ID
	// To is the intended recipient. It is only meaningful when Broadcast is
	// false.
	To party.ID
	// Broadcast indicates that the message is intended for all participants.
	Broadcast bool
	// Protocol identifies the protocol this message belongs to.
	Protocol string
	// RoundNumber is the index of the round this message belongs to.
	RoundNumber round.Number
	// Data is the serialized content consumed by the round.
	Data []byte
}

// String implements fmt.Stringer.
func (m Message) String() string {
	if m.Broadcast {
		return fmt.Sprintf("message: round %d, from: %s, broadcast, protocol: %s", m.RoundNumber, m.From, m.Protocol)
	}
	return fmt.Sprintf("message: round %d, from: %s, to: %s, protocol: %s", m.RoundNumber, m.From, m.To, m.Protocol)
}

// IsFor returns true if the message is intended for the designated party.
func (m Message) IsFor(id party.ID) bool {
	if m.From == id {
		return false
	}
	return m.Broadcast || m.To == id
}

// Hash returns a digest of the message content, including the headers.
// It can be used to produce a transport signature for the message.
func (m Message) Hash() []byte {
	var broadcast byte
	if m.Broadcast {
		broadcast = 1
	}
	h := hash.New(
		&hash.BytesWithDomain{TheDomain: "SSID", Bytes: m.SSID},
		m.From,
		m.To,
		&hash.BytesWithDomain{TheDomain: "Broadcast", Bytes: []byte{broadcast}},
		&hash.BytesWithDomain{TheDomain: "Protocol", Bytes: []byte(m.Protocol)},
		m.RoundNumber,
		&hash.BytesWithDomain{TheDomain: "Content", Bytes: m.Data},
	)
	return h.Sum()
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *Message) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(m)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (m *Message) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, m)
}

// unmarshalContent decodes the message data into the given preallocated
// content, and checks that the embedded round number matches the header.
func (m *Message) unmarshalContent(content round.Content) error {
	if content == nil {
		return ErrMessageUnexpected
	}
	if err := cbor.Unmarshal(m.Data, content); err != nil {
		return fmt.Errorf("protocol: %w: %s", ErrMessageMalformed, err)
	}
	if content.RoundNumber() != m.RoundNumber {
		return ErrMessageWrongRound
	}
	return nil
}
