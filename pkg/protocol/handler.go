package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"

	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

// StartFunc creates the first round of a protocol.
//
// The sessionID must be unique for each execution of the protocol.
type StartFunc func(sessionID []byte) (round.Session, error)

// Handler represents an execution of a given protocol.
//
// It provides a simple interface for the user to receive/deliver protocol
// messages.
type Handler interface {
	// Result returns the result of the protocol execution, or an error.
	Result() (interface{}, error)
	// Listen returns a channel with outgoing messages that must be sent to
	// other parties. A message with Broadcast set must be delivered to all
	// participants over a consistent broadcast channel.
	// The channel is closed when the protocol finishes or fails.
	Listen() <-chan *Message
	// Stop cancels the protocol execution.
	Stop()
	// CanAccept checks whether the message is addressed to us and belongs to
	// this execution.
	CanAccept(msg *Message) bool
	// Accept delivers a message to the handler.
	Accept(msg *Message)
}

// MultiHandler runs a protocol between multiple parties.
type MultiHandler struct {
	currentRound round.Session
	result       interface{}
	err          error
	messages     map[round.Number]map[party.ID]*Message
	broadcast    map[round.Number]map[party.ID]*Message
	out          chan *Message
	done         bool
	mtx          sync.Mutex

	// Log can be replaced before any message is delivered.
	Log zerolog.Logger
}

// NewMultiHandler creates a handler for the protocol returned by create, and
// runs its first round.
func NewMultiHandler(create StartFunc, sessionID []byte) (*MultiHandler, error) {
	r, err := create(sessionID)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to create round: %w", err)
	}

	h := &MultiHandler{
		currentRound: r,
		messages:     newQueue(r.OtherPartyIDs(), r.FinalRoundNumber()),
		broadcast:    newQueue(r.OtherPartyIDs(), r.FinalRoundNumber()),
		out:          make(chan *Message, 2*r.N()*int(r.FinalRoundNumber())),
	}
	h.Log = zerolog.New(zerolog.NewConsoleWriter()).Level(zerolog.InfoLevel).With().
		Str("protocol", r.ProtocolID()).
		Stringer("party", r.SelfID()).
		Logger()
	h.Log.Info().Int("round", int(r.Number())).Msg("start")

	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.advance()
	return h, h.err
}

// Result implements Handler.
func (h *MultiHandler) Result() (interface{}, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.result != nil {
		return h.result, nil
	}
	if h.err != nil {
		return nil, h.err
	}
	return nil, errors.New("protocol: not finished")
}

// Listen implements Handler.
func (h *MultiHandler) Listen() <-chan *Message {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.out
}

// Stop implements Handler.
func (h *MultiHandler) Stop() {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.result == nil && h.err == nil {
		h.err = &Error{
			RoundNumber: h.roundNumber(),
			Err:         errors.New("protocol: aborted by caller"),
		}
	}
	h.stop()
}

// CanAccept implements Handler.
func (h *MultiHandler) CanAccept(msg *Message) bool {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.validate(msg) == nil
}

// Accept implements Handler.
//
// Messages for future rounds are queued until the protocol advances far
// enough to process them.
func (h *MultiHandler) Accept(msg *Message) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	if h.done {
		return
	}
	if err := h.validate(msg); err != nil {
		h.Log.Warn().Err(err).Stringer("msg", msg).Msg("rejected message")
		return
	}

	if msg.Broadcast {
		h.broadcast[msg.RoundNumber][msg.From] = msg
	} else {
		h.messages[msg.RoundNumber][msg.From] = msg
	}
	h.advance()
}

func (h *MultiHandler) validate(msg *Message) error {
	if h.currentRound == nil {
		return ErrProtocolFinished
	}
	if msg == nil || len(msg.Data) == 0 {
		return ErrMessageMalformed
	}
	r := h.currentRound
	if !msg.IsFor(r.SelfID()) {
		return ErrMessageWrongDestination
	}
	if !bytes.Equal(msg.SSID, r.SSID()) {
		return ErrMessageWrongSSID
	}
	if msg.Protocol != r.ProtocolID() {
		return ErrMessageWrongProtocolID
	}
	if msg.RoundNumber > r.FinalRoundNumber() || msg.RoundNumber < 1 {
		return ErrMessageInvalidRoundNumber
	}
	if msg.RoundNumber < r.Number() {
		return ErrMessageDuplicate
	}
	if !r.OtherPartyIDs().Contains(msg.From) {
		return ErrMessageUnknownSender
	}
	q := h.messages
	if msg.Broadcast {
		q = h.broadcast
	}
	if q[msg.RoundNumber][msg.From] != nil {
		return ErrMessageDuplicate
	}
	return nil
}

// advance processes full rounds for as long as possible.
func (h *MultiHandler) advance() {
	for h.currentRound != nil && h.receivedAll() {
		if !h.processRound() {
			return
		}
	}
}

// processRound consumes the stored messages of the current round, finalizes
// it, and installs the next round. It reports whether the protocol can keep
// advancing.
func (h *MultiHandler) processRound() bool {
	r := h.currentRound
	number := r.Number()

	if br, ok := r.(round.BroadcastRound); ok {
		for _, id := range r.OtherPartyIDs() {
			msg := h.broadcast[number][id]
			content := br.BroadcastContent()
			if err := msg.unmarshalContent(content); err != nil {
				return h.abort(err, id)
			}
			if err := br.StoreBroadcastMessage(round.Message{
				From:      id,
				Broadcast: true,
				Content:   content,
			}); err != nil {
				return h.abort(err, id)
			}
		}
	}

	if r.MessageContent() != nil {
		for _, id := range r.OtherPartyIDs() {
			msg := h.messages[number][id]
			content := r.MessageContent()
			if err := msg.unmarshalContent(content); err != nil {
				return h.abort(err, id)
			}
			roundMsg := round.Message{From: id, To: r.SelfID(), Content: content}
			if err := r.VerifyMessage(roundMsg); err != nil {
				return h.abort(err, id)
			}
			if err := r.StoreMessage(roundMsg); err != nil {
				return h.abort(err, id)
			}
		}
	}

	roundOut := make(chan *round.Message, 2*r.N())
	nextRound, err := r.Finalize(roundOut)
	close(roundOut)
	if err != nil {
		return h.abort(err)
	}
	for msg := range roundOut {
		data, err := cbor.Marshal(msg.Content)
		if err != nil {
			return h.abort(fmt.Errorf("protocol: failed to marshal content: %w", err))
		}
		h.out <- &Message{
			SSID:        r.SSID(),
			From:        r.SelfID(),
			To:          msg.To,
			Broadcast:   msg.Broadcast,
			Protocol:    r.ProtocolID(),
			RoundNumber: msg.Content.RoundNumber(),
			Data:        data,
		}
	}

	switch next := nextRound.(type) {
	case *round.Output:
		h.result = next.Result
		h.currentRound = nil
		if h.result == nil {
			h.err = &Error{RoundNumber: number, Err: errors.New("protocol: finished without result")}
		}
		h.stop()
		return false
	case *round.Abort:
		err := &Error{RoundNumber: number, Err: next.Err}
		if len(next.Culprits) > 0 {
			culprit := next.Culprits[0]
			err.Culprit = &culprit
		}
		h.err = err
		h.currentRound = nil
		h.stop()
		return false
	default:
		h.currentRound = nextRound
		h.Log.Info().Int("round", int(nextRound.Number())).Msg("round advanced")
		return true
	}
}

// receivedAll reports whether the current round has everything it is waiting
// for.
func (h *MultiHandler) receivedAll() bool {
	r := h.currentRound
	number := r.Number()
	if _, ok := r.(round.BroadcastRound); ok {
		for _, id := range r.OtherPartyIDs() {
			if h.broadcast[number][id] == nil {
				return false
			}
		}
	}
	if r.MessageContent() != nil {
		for _, id := range r.OtherPartyIDs() {
			if h.messages[number][id] == nil {
				return false
			}
		}
	}
	return true
}

func (h *MultiHandler) abort(err error, culprits ...party.ID) bool {
	wrapped := &Error{
		RoundNumber: h.roundNumber(),
		Err:         err,
	}
	if len(culprits) > 0 {
		culprit := culprits[0]
		wrapped.Culprit = &culprit
	}
	if h.err == nil {
		h.err = wrapped
	}
	h.Log.Error().Err(err).Msg("protocol aborted")
	h.currentRound = nil
	h.stop()
	return false
}

func (h *MultiHandler) roundNumber() round.Number {
	if h.currentRound == nil {
		return 0
	}
	return h.currentRound.Number()
}

func (h *MultiHandler) stop() {
	if !h.done {
		h.done = true
		close(h.out)
	}
}

func newQueue(senders party.IDSlice, finalRound round.Number) map[round.Number]map[party.ID]*Message {
	q := make(map[round.Number]map[party.ID]*Message, finalRound)
	for i := round.Number(1); i <= finalRound; i++ {
		q[i] = make(map[party.ID]*Message, len(senders))
	}
	return q
}
