package beacon

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Uint64String decodes the beacon API's string-encoded integers.
type Uint64String uint64

// UnmarshalJSON accepts both "123" and 123.
func (u *Uint64String) UnmarshalJSON(data []byte) error {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	text := string(raw)
	if len(text) >= 2 && text[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		text = s
	}

	parsed, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return fmt.Errorf("parse uint %q: %w", text, err)
	}
	*u = Uint64String(parsed)
	return nil
}

// HeadEvent is one streamed slot notification. Transient, never persisted.
type HeadEvent struct {
	Slot            uint64
	EpochTransition bool
}

// Inclusion carries the validator-inclusion metric for one epoch boundary.
type Inclusion struct {
	CurrentEpochActiveGwei           uint64 `json:"current_epoch_active_gwei"`
	PreviousEpochActiveGwei          uint64 `json:"previous_epoch_active_gwei"`
	CurrentEpochTargetAttestingGwei  uint64 `json:"current_epoch_target_attesting_gwei"`
	PreviousEpochTargetAttestingGwei uint64 `json:"previous_epoch_target_attesting_gwei"`
}

// IndexedAttestation is the signer set of one conflicting attestation.
type IndexedAttestation struct {
	AttestingIndices []Uint64String `json:"attesting_indices"`
}

// AttesterSlashing is a pair of conflicting attestations.
type AttesterSlashing struct {
	Attestation1 IndexedAttestation `json:"attestation_1"`
	Attestation2 IndexedAttestation `json:"attestation_2"`
}

// BlockHeader names the proposer of one conflicting header.
type BlockHeader struct {
	ProposerIndex Uint64String `json:"proposer_index"`
}

// SignedBlockHeader wraps a header with its signature envelope.
type SignedBlockHeader struct {
	Message BlockHeader `json:"message"`
}

// ProposerSlashing is a pair of conflicting signed headers.
type ProposerSlashing struct {
	SignedHeader1 SignedBlockHeader `json:"signed_header_1"`
	SignedHeader2 SignedBlockHeader `json:"signed_header_2"`
}

// Block is the slashing-relevant subset of a beacon block.
type Block struct {
	Slot              uint64
	AttesterSlashings []AttesterSlashing
	ProposerSlashings []ProposerSlashing
}

// QueueStats is the activation/exit queue snapshot.
type QueueStats struct {
	Entering        uint64 `json:"beaconchain_entering"`
	Exiting         uint64 `json:"beaconchain_exiting"`
	ActiveValidator uint64 `json:"validators_count"`
}
