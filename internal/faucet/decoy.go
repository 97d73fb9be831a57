package faucet

import (
	"encoding/binary"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// DecoyWait derives a stable pseudo-random "remaining wait" for a flagged
// user, scaled into the network's rate-limit window. The same user id
// always maps to the same duration, so repeated probing sees a rejection
// indistinguishable from a genuine rate limit. It never touches the store
// and never dispenses.
func DecoyWait(userID string, window time.Duration) time.Duration {
	if window <= 0 {
		return 0
	}
	digest := crypto.Keccak256([]byte(userID))
	seed := binary.BigEndian.Uint64(digest[:8])
	return time.Duration(seed % uint64(window))
}
