package beacon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrBlockMissing indicates the requested slot has no block (skipped slot).
var ErrBlockMissing = errors.New("beacon: no block at slot")

// Options parameterise the consensus-node client.
type Options struct {
	BaseURL  string
	QueueURL string
	Timeout  time.Duration
}

// Client talks to the consensus node's REST API.
type Client struct {
	opts    Options
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewClient constructs a consensus-node client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		logger:  logger.With().Str("component", "beacon_client").Logger(),
	}
}

// ValidatorInclusion fetches the global inclusion metric for one epoch.
func (c *Client) ValidatorInclusion(ctx context.Context, epoch uint64) (Inclusion, error) {
	var payload struct {
		Data Inclusion `json:"data"`
	}

	endpoint := fmt.Sprintf("%s/lighthouse/validator_inclusion/%d/global", c.baseURL, epoch)
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return Inclusion{}, fmt.Errorf("validator inclusion for epoch %d: %w", epoch, err)
	}
	return payload.Data, nil
}

// BlockBySlot fetches the slashing-relevant parts of the block at a slot.
// Skipped slots return ErrBlockMissing.
func (c *Client) BlockBySlot(ctx context.Context, slot uint64) (*Block, error) {
	var payload struct {
		Data struct {
			Message struct {
				Slot Uint64String `json:"slot"`
				Body struct {
					AttesterSlashings []AttesterSlashing `json:"attester_slashings"`
					ProposerSlashings []ProposerSlashing `json:"proposer_slashings"`
				} `json:"body"`
			} `json:"message"`
		} `json:"data"`
	}

	endpoint := fmt.Sprintf("%s/eth/v2/beacon/blocks/%d", c.baseURL, slot)
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, ErrBlockMissing
		}
		return nil, fmt.Errorf("block at slot %d: %w", slot, err)
	}

	return &Block{
		Slot:              uint64(payload.Data.Message.Slot),
		AttesterSlashings: payload.Data.Message.Body.AttesterSlashings,
		ProposerSlashings: payload.Data.Message.Body.ProposerSlashings,
	}, nil
}

// Queue fetches the activation/exit queue snapshot.
func (c *Client) Queue(ctx context.Context) (QueueStats, error) {
	if c.opts.QueueURL == "" {
		return QueueStats{}, errors.New("queue url not configured")
	}

	var payload struct {
		Data QueueStats `json:"data"`
	}
	if err := c.getJSON(ctx, c.opts.QueueURL, &payload); err != nil {
		return QueueStats{}, fmt.Errorf("queue stats: %w", err)
	}
	return payload.Data, nil
}

var errNotFound = errors.New("not found")

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "…"
}
