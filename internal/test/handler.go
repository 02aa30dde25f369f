package test

import (
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
	"github.com/quorumkey/threshold-ecdsa/pkg/protocol"
)

// HandlerLoop blocks until the handler has finished. The result of the
// execution is given by Handler.Result().
func HandlerLoop(id party.ID, h protocol.Handler, network *Network) {
	for {
		select {
		case msg, ok := <-h.Listen():
			if !ok {
				// the channel was closed, indicating that the protocol is done.
				<-network.Done(id)
				return
			}
			go network.Send(msg)
		case msg := <-network.Next(id):
			h.Accept(msg)
		}
	}
}
