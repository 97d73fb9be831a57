package beacon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/r3labs/sse/v2"
	"github.com/rs/zerolog"
	backoff "gopkg.in/cenkalti/backoff.v1"
)

// StreamOptions tune the head-event subscription.
type StreamOptions struct {
	BaseURL           string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

// Stream is the long-lived server-pushed head-event subscription.
type Stream struct {
	opts   StreamOptions
	logger zerolog.Logger
}

// NewStream constructs a head-event stream.
func NewStream(opts StreamOptions, logger zerolog.Logger) *Stream {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	if opts.MaxReconnectDelay <= 0 {
		opts.MaxReconnectDelay = 2 * time.Minute
	}
	return &Stream{opts: opts, logger: logger.With().Str("component", "head_stream").Logger()}
}

// Run subscribes and pushes head events into the channel until ctx ends.
// Dropped connections are resubscribed indefinitely with capped,
// jittered exponential backoff.
func (s *Stream) Run(ctx context.Context, events chan<- HeadEvent) error {
	return retry.Do(
		func() error {
			err := s.subscribeOnce(ctx, events)
			if ctx.Err() != nil {
				return retry.Unrecoverable(ctx.Err())
			}
			if err == nil {
				err = errors.New("event stream closed by server")
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(s.opts.ReconnectDelay),
		retry.MaxDelay(s.opts.MaxReconnectDelay),
		retry.MaxJitter(time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn().Uint("attempt", n).Err(err).Msg("head stream dropped, reconnecting")
		}),
		retry.LastErrorOnly(true),
	)
}

func (s *Stream) subscribeOnce(ctx context.Context, events chan<- HeadEvent) error {
	endpoint := strings.TrimRight(s.opts.BaseURL, "/") + "/eth/v1/events?topics=head"

	client := sse.NewClient(endpoint)
	// Reconnection is owned by Run; the sse client must fail fast.
	client.ReconnectStrategy = &backoff.StopBackOff{}

	s.logger.Info().Str("endpoint", endpoint).Msg("subscribing to head events")

	return client.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
		event, err := parseHeadEvent(msg.Data)
		if err != nil {
			s.logger.Warn().Err(err).Msg("skipping malformed head event")
			return
		}

		select {
		case events <- event:
		case <-ctx.Done():
		}
	})
}

func parseHeadEvent(data []byte) (HeadEvent, error) {
	if len(data) == 0 {
		return HeadEvent{}, errors.New("empty event payload")
	}

	var payload struct {
		Slot            Uint64String `json:"slot"`
		EpochTransition bool         `json:"epoch_transition"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return HeadEvent{}, fmt.Errorf("decode head event: %w", err)
	}

	return HeadEvent{Slot: uint64(payload.Slot), EpochTransition: payload.EpochTransition}, nil
}
