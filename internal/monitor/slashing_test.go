package monitor

import (
	"strings"
	"testing"

	"testnet-faucet/internal/beacon"
)

func indices(values ...uint64) []beacon.Uint64String {
	out := make([]beacon.Uint64String, len(values))
	for i, v := range values {
		out[i] = beacon.Uint64String(v)
	}
	return out
}

// Scenario F: one attester-slashing pair whose index sets intersect at {42}.
func TestScanBlockSingleIntersection(t *testing.T) {
	block := &beacon.Block{
		Slot: 6400,
		AttesterSlashings: []beacon.AttesterSlashing{{
			Attestation1: beacon.IndexedAttestation{AttestingIndices: indices(10, 42, 77)},
			Attestation2: beacon.IndexedAttestation{AttestingIndices: indices(42, 99)},
		}},
	}

	attesters, proposers := ScanBlock(block)
	if len(attesters) != 1 || attesters[0] != 42 {
		t.Fatalf("expected exactly validator 42, got %v", attesters)
	}
	if len(proposers) != 0 {
		t.Fatalf("expected no proposer findings, got %v", proposers)
	}

	alert := RenderSlashingAlert("holesky", 6400, attesters, proposers)
	if strings.Count(alert, "validator 42") != 1 {
		t.Fatalf("validator 42 should appear exactly once: %s", alert)
	}
}

func TestScanBlockDeduplicatesAcrossPairs(t *testing.T) {
	block := &beacon.Block{
		AttesterSlashings: []beacon.AttesterSlashing{
			{
				Attestation1: beacon.IndexedAttestation{AttestingIndices: indices(1, 2, 3)},
				Attestation2: beacon.IndexedAttestation{AttestingIndices: indices(2, 3, 4)},
			},
			{
				Attestation1: beacon.IndexedAttestation{AttestingIndices: indices(3, 5)},
				Attestation2: beacon.IndexedAttestation{AttestingIndices: indices(3, 6)},
			},
		},
	}

	attesters, _ := ScanBlock(block)
	if len(attesters) != 2 || attesters[0] != 2 || attesters[1] != 3 {
		t.Fatalf("expected deduplicated sorted [2 3], got %v", attesters)
	}
}

func TestScanBlockProposer(t *testing.T) {
	block := &beacon.Block{
		ProposerSlashings: []beacon.ProposerSlashing{
			{
				SignedHeader1: beacon.SignedBlockHeader{Message: beacon.BlockHeader{ProposerIndex: 7}},
				SignedHeader2: beacon.SignedBlockHeader{Message: beacon.BlockHeader{ProposerIndex: 7}},
			},
			{
				// Conflicting headers from different proposers are not a
				// valid proposer slashing; ignore the pair.
				SignedHeader1: beacon.SignedBlockHeader{Message: beacon.BlockHeader{ProposerIndex: 8}},
				SignedHeader2: beacon.SignedBlockHeader{Message: beacon.BlockHeader{ProposerIndex: 9}},
			},
		},
	}

	_, proposers := ScanBlock(block)
	if len(proposers) != 1 || proposers[0] != 7 {
		t.Fatalf("expected exactly proposer 7, got %v", proposers)
	}
}

func TestRenderSlashingAlertTruncates(t *testing.T) {
	attesters := []uint64{1, 2, 3, 4, 5, 6, 7, 8}

	alert := RenderSlashingAlert("holesky", 10, attesters, nil)
	if !strings.Contains(alert, "…and 3 more") {
		t.Fatalf("expected truncation marker: %s", alert)
	}
	if strings.Contains(alert, "validator 6") {
		t.Fatalf("entries past the cap should not render: %s", alert)
	}
}

func TestRenderSlashingAlertEmpty(t *testing.T) {
	if alert := RenderSlashingAlert("holesky", 10, nil, nil); alert != "" {
		t.Fatalf("no findings should render nothing, got %q", alert)
	}
}
