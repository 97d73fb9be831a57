package faucet

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Resolver maps human-readable names to addresses on the reference network.
type Resolver interface {
	Resolve(ctx context.Context, name string) (common.Address, error)
}

// Kind classifies the terminal state of one request.
type Kind int

const (
	// KindDispensed means funds were sent and confirmed.
	KindDispensed Kind = iota
	// KindSelfSufficient means the target already held the target amount.
	KindSelfSufficient
	// KindWrongChannel means the invocation happened outside the
	// network's designated channel.
	KindWrongChannel
	// KindAlreadyPending means the user already holds the dispense lock.
	KindAlreadyPending
	// KindMissingRole means the caller holds none of the allowed roles.
	KindMissingRole
	// KindRateLimited means the request landed inside the rate window.
	KindRateLimited
	// KindInvalidTarget means the address or name could not be used.
	KindInvalidTarget
	// KindFaucetEmpty means the reserve could not cover the send.
	KindFaucetEmpty
	// KindFailed means an upstream call failed mid-request.
	KindFailed
)

// Request is one inbound dispense invocation.
type Request struct {
	UserID   string
	UserName string
	Roles    []string
	Channel  string
	Target   string

	// Progress, when set, receives interim status lines for long steps.
	Progress func(text string)
}

func (r Request) progress(text string) {
	if r.Progress != nil {
		r.Progress(text)
	}
}

func (r Request) hasRole(role string) bool {
	for _, held := range r.Roles {
		if held == role {
			return true
		}
	}
	return false
}

// Outcome is the terminal result reported back to the caller.
type Outcome struct {
	Kind    Kind
	Message string
	TxHash  common.Hash
}
