package test

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/sync/errgroup"

	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

// Rule describes various hooks that can be applied to a protocol execution.
type Rule interface {
	// ModifyBefore modifies r before r.Finalize() is called.
	ModifyBefore(r round.Session)
	// ModifyAfter modifies rNext, which is the round returned by r.Finalize().
	ModifyAfter(rNext round.Session)
	// ModifyContent modifies content for the message that is delivered in rNext.
	ModifyContent(rNext round.Session, to party.ID, content round.Content)
}

// Rounds executes one round of the protocol for all given sessions in
// lockstep, delivering the produced messages to every other session. It
// reports whether the protocol reached its output or abort round.
func Rounds(rounds []round.Session, rule Rule) (error, bool) {
	var (
		err       error
		roundType reflect.Type
		errGroup  errgroup.Group
		N         = len(rounds)
		out       = make(chan *round.Message, N*(N+1))
	)

	if roundType, err = checkAllRoundsSame(rounds); err != nil {
		return err, false
	}

	for id := range rounds {
		idx := id
		r := rounds[idx]
		errGroup.Go(func() error {
			var rNew round.Session
			var finalizeErr error
			if rule != nil {
				rule.ModifyBefore(r)
				outFake := make(chan *round.Message, N+1)
				rNew, finalizeErr = r.Finalize(outFake)
				close(outFake)
				rule.ModifyAfter(rNew)
				for msg := range outFake {
					rule.ModifyContent(rNew, msg.To, msg.Content)
					out <- msg
				}
			} else {
				rNew, finalizeErr = r.Finalize(out)
			}

			if finalizeErr != nil {
				return finalizeErr
			}

			if rNew != nil {
				rounds[idx] = rNew
			}
			return nil
		})
	}
	if err = errGroup.Wait(); err != nil {
		return err, false
	}
	close(out)

	if roundType, err = checkAllRoundsSame(rounds); err != nil {
		return err, false
	}
	if roundType == reflect.TypeOf(&round.Output{}) || roundType == reflect.TypeOf(&round.Abort{}) {
		return nil, true
	}

	// Broadcasts are stored before any p2p message is verified, mirroring
	// the handler.
	var broadcasts, p2p []*round.Message
	for msg := range out {
		if msg.Broadcast {
			broadcasts = append(broadcasts, msg)
		} else {
			p2p = append(p2p, msg)
		}
	}
	if err = deliver(rounds, broadcasts, &errGroup); err != nil {
		return err, false
	}
	if err = deliver(rounds, p2p, &errGroup); err != nil {
		return err, false
	}

	return nil, false
}

func deliver(rounds []round.Session, msgs []*round.Message, errGroup *errgroup.Group) error {
	for _, msg := range msgs {
		msgBytes, err := cbor.Marshal(msg.Content)
		if err != nil {
			return err
		}
		for _, r := range rounds {
			m := *msg
			r := r
			if msg.From == r.SelfID() || msg.Content.RoundNumber() != r.Number() {
				continue
			}
			if !m.Broadcast && m.To != r.SelfID() {
				continue
			}
			errGroup.Go(func() error {
				if m.Broadcast {
					b, ok := r.(round.BroadcastRound)
					if !ok {
						return errors.New("broadcast message but not broadcast round")
					}
					m.Content = b.BroadcastContent()
					if err := cbor.Unmarshal(msgBytes, m.Content); err != nil {
						return err
					}
					return b.StoreBroadcastMessage(m)
				}

				m.Content = r.MessageContent()
				if err := cbor.Unmarshal(msgBytes, m.Content); err != nil {
					return err
				}
				if err := r.VerifyMessage(m); err != nil {
					return err
				}
				return r.StoreMessage(m)
			})
		}
		if err := errGroup.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func checkAllRoundsSame(rounds []round.Session) (reflect.Type, error) {
	var t reflect.Type
	for _, r := range rounds {
		t2 := reflect.TypeOf(r)
		if t == nil {
			t = t2
		} else if t != t2 {
			return t, fmt.Errorf("two different rounds: %s %s", t, t2)
		}
	}
	return t, nil
}
