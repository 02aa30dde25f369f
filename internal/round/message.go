package round

import (
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

// Message is a message sent during a round, together with its routing header.
type Message struct {
	From, To  party.ID
	Broadcast bool
	Content   Content
}
