package ot

import "errors"

var (
	// ErrProtocol indicates a malformed or missing OT message.
	ErrProtocol = errors.New("protocol violation")
	// ErrConsistency indicates a failed consistency check, meaning the
	// counterparty deviated from the protocol.
	ErrConsistency = errors.New("consistency check failed")
)
