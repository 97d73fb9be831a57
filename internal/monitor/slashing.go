package monitor

import (
	"fmt"
	"sort"
	"strings"

	"testnet-faucet/internal/beacon"
)

const maxRenderedFindings = 5

// ScanBlock extracts slashed validator indices from a block, deduplicated
// and sorted per category. Attester findings are the indices present in
// both conflicting attestations' signer sets; proposer findings are the
// proposer named by both conflicting headers.
func ScanBlock(block *beacon.Block) (attesters, proposers []uint64) {
	attesterSet := make(map[uint64]struct{})
	for _, slashing := range block.AttesterSlashings {
		first := make(map[uint64]struct{}, len(slashing.Attestation1.AttestingIndices))
		for _, index := range slashing.Attestation1.AttestingIndices {
			first[uint64(index)] = struct{}{}
		}
		for _, index := range slashing.Attestation2.AttestingIndices {
			if _, ok := first[uint64(index)]; ok {
				attesterSet[uint64(index)] = struct{}{}
			}
		}
	}

	proposerSet := make(map[uint64]struct{})
	for _, slashing := range block.ProposerSlashings {
		first := uint64(slashing.SignedHeader1.Message.ProposerIndex)
		second := uint64(slashing.SignedHeader2.Message.ProposerIndex)
		if first == second {
			proposerSet[first] = struct{}{}
		}
	}

	return sortedIndices(attesterSet), sortedIndices(proposerSet)
}

// RenderSlashingAlert formats one combined alert for a slot, or "" when
// there is nothing to report.
func RenderSlashingAlert(network string, slot uint64, attesters, proposers []uint64) string {
	if len(attesters) == 0 && len(proposers) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔪 Slashing detected on %s at slot %d", network, slot)
	if len(attesters) > 0 {
		fmt.Fprintf(&b, "\nAttester slashings: %s", renderIndices(attesters))
	}
	if len(proposers) > 0 {
		fmt.Fprintf(&b, "\nProposer slashings: %s", renderIndices(proposers))
	}
	return b.String()
}

func renderIndices(indices []uint64) string {
	shown := indices
	truncated := 0
	if len(shown) > maxRenderedFindings {
		truncated = len(shown) - maxRenderedFindings
		shown = shown[:maxRenderedFindings]
	}

	parts := make([]string, len(shown))
	for i, index := range shown {
		parts[i] = fmt.Sprintf("validator %d", index)
	}

	rendered := strings.Join(parts, ", ")
	if truncated > 0 {
		rendered += fmt.Sprintf(" …and %d more", truncated)
	}
	return rendered
}

func sortedIndices(set map[uint64]struct{}) []uint64 {
	if len(set) == 0 {
		return nil
	}
	indices := make([]uint64, 0, len(set))
	for index := range set {
		indices = append(indices, index)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}
