package beacon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testClient(srv *httptest.Server) *Client {
	return NewClient(Options{BaseURL: srv.URL, QueueURL: srv.URL + "/queue", Timeout: time.Second}, zerolog.Nop())
}

func TestValidatorInclusion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lighthouse/validator_inclusion/100/global" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{
			"current_epoch_active_gwei": 1000,
			"previous_epoch_active_gwei": 1000,
			"current_epoch_target_attesting_gwei": 700,
			"previous_epoch_target_attesting_gwei": 950
		}}`))
	}))
	defer srv.Close()

	inclusion, err := testClient(srv).ValidatorInclusion(context.Background(), 100)
	if err != nil {
		t.Fatalf("inclusion fetch should succeed: %v", err)
	}
	if inclusion.PreviousEpochTargetAttestingGwei != 950 {
		t.Fatalf("unexpected inclusion data: %+v", inclusion)
	}
}

func TestBlockBySlotParsesSlashings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/eth/v2/beacon/blocks/6400" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"message":{
			"slot": "6400",
			"body": {
				"attester_slashings": [{
					"attestation_1": {"attesting_indices": ["10", "42", "77"]},
					"attestation_2": {"attesting_indices": ["42", "99"]}
				}],
				"proposer_slashings": [{
					"signed_header_1": {"message": {"proposer_index": "7"}},
					"signed_header_2": {"message": {"proposer_index": "7"}}
				}]
			}
		}}}`))
	}))
	defer srv.Close()

	block, err := testClient(srv).BlockBySlot(context.Background(), 6400)
	if err != nil {
		t.Fatalf("block fetch should succeed: %v", err)
	}
	if block.Slot != 6400 {
		t.Fatalf("unexpected slot: %d", block.Slot)
	}
	if len(block.AttesterSlashings) != 1 || len(block.ProposerSlashings) != 1 {
		t.Fatalf("unexpected slashing counts: %+v", block)
	}
	if got := block.AttesterSlashings[0].Attestation1.AttestingIndices[1]; got != 42 {
		t.Fatalf("string-encoded index should decode, got %d", got)
	}
	if got := block.ProposerSlashings[0].SignedHeader1.Message.ProposerIndex; got != 7 {
		t.Fatalf("unexpected proposer index: %d", got)
	}
}

func TestBlockBySlotMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":404,"message":"NOT_FOUND"}`))
	}))
	defer srv.Close()

	if _, err := testClient(srv).BlockBySlot(context.Background(), 1); !errors.Is(err, ErrBlockMissing) {
		t.Fatalf("skipped slot should map to ErrBlockMissing, got %v", err)
	}
}

func TestQueue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/queue" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"beaconchain_entering": 35000, "beaconchain_exiting": 12, "validators_count": 500000}}`))
	}))
	defer srv.Close()

	stats, err := testClient(srv).Queue(context.Background())
	if err != nil {
		t.Fatalf("queue fetch should succeed: %v", err)
	}
	if stats.Entering != 35000 || stats.ActiveValidator != 500000 {
		t.Fatalf("unexpected queue stats: %+v", stats)
	}
}

func TestGetJSONSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := testClient(srv).ValidatorInclusion(context.Background(), 1)
	if err == nil {
		t.Fatal("HTTP 500 should return an error")
	}
}

func TestParseHeadEvent(t *testing.T) {
	event, err := parseHeadEvent([]byte(`{"slot":"640","epoch_transition":true,"block":"0xabc"}`))
	if err != nil {
		t.Fatalf("valid payload should parse: %v", err)
	}
	if event.Slot != 640 || !event.EpochTransition {
		t.Fatalf("unexpected event: %+v", event)
	}

	if _, err := parseHeadEvent(nil); err == nil {
		t.Fatal("empty payload should error")
	}
	if _, err := parseHeadEvent([]byte("not-json")); err == nil {
		t.Fatal("malformed payload should error")
	}
}

func TestUint64StringAcceptsBareNumbers(t *testing.T) {
	var u Uint64String
	if err := u.UnmarshalJSON([]byte(`123`)); err != nil || u != 123 {
		t.Fatalf("bare number should decode: %v (%d)", err, u)
	}
	if err := u.UnmarshalJSON([]byte(`"456"`)); err != nil || u != 456 {
		t.Fatalf("quoted number should decode: %v (%d)", err, u)
	}
	if err := u.UnmarshalJSON([]byte(`"abc"`)); err == nil {
		t.Fatal("non-numeric string should error")
	}
}
