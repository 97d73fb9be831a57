package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"testnet-faucet/internal/alerting"
	"testnet-faucet/internal/beacon"
	"testnet-faucet/internal/storage"
)

// ChainAPI is the consensus-node surface the monitor consumes.
type ChainAPI interface {
	ValidatorInclusion(ctx context.Context, epoch uint64) (beacon.Inclusion, error)
	BlockBySlot(ctx context.Context, slot uint64) (*beacon.Block, error)
	Queue(ctx context.Context) (beacon.QueueStats, error)
}

// HeadSource produces the continuous head-event stream.
type HeadSource interface {
	Run(ctx context.Context, events chan<- beacon.HeadEvent) error
}

// Sample is the latest per-epoch participation observation. Overwritten on
// every observed epoch transition.
type Sample struct {
	Network      string
	Epoch        uint64
	CurrentRate  float64
	PreviousRate float64
	TakenAt      time.Time
}

// Options parameterise the monitor.
type Options struct {
	Network       string
	SlotsPerEpoch uint64
	AutoPost      bool
}

// Monitor consumes head events, runs participation hysteresis, and scans
// blocks for slashing evidence.
type Monitor struct {
	opts    Options
	api     ChainAPI
	source  HeadSource
	sink    alerting.Sink
	channel alerting.Sink
	store   storage.ParticipationStore
	logger  zerolog.Logger

	hysteresis Hysteresis

	mu       sync.Mutex
	latest   *Sample
	autoPost bool

	now func() time.Time
}

// New constructs the monitor. store and channel may be nil.
func New(opts Options, api ChainAPI, source HeadSource, sink alerting.Sink, channel alerting.Sink, store storage.ParticipationStore, logger zerolog.Logger) *Monitor {
	if opts.SlotsPerEpoch == 0 {
		opts.SlotsPerEpoch = 32
	}
	if sink == nil {
		sink = alerting.NopSink{}
	}
	if channel == nil {
		channel = alerting.NopSink{}
	}

	return &Monitor{
		opts:     opts,
		api:      api,
		source:   source,
		sink:     sink,
		channel:  channel,
		store:    store,
		logger:   logger.With().Str("component", "monitor").Str("network", opts.Network).Logger(),
		autoPost: opts.AutoPost,
		now:      time.Now,
	}
}

// Run consumes the head-event stream for the process lifetime.
func (m *Monitor) Run(ctx context.Context) error {
	events := make(chan beacon.HeadEvent, 16)

	streamDone := make(chan error, 1)
	go func() {
		streamDone <- m.source.Run(ctx, events)
	}()

	m.logger.Info().Msg("chain health monitor started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-streamDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error().Err(err).Msg("head stream terminated")
			}
			return err
		case event := <-events:
			m.handleHead(ctx, event)
		}
	}
}

func (m *Monitor) handleHead(ctx context.Context, event beacon.HeadEvent) {
	m.logger.Debug().Uint64("slot", event.Slot).Bool("epoch_transition", event.EpochTransition).Msg("head event")

	if event.EpochTransition {
		m.evaluateEpoch(ctx, event.Slot)
	}
	m.scanSlot(ctx, event.Slot)
}

// evaluateEpoch runs the participation hysteresis for the epoch that just
// completed. A failed metric query skips this epoch without touching the
// hysteresis state.
func (m *Monitor) evaluateEpoch(ctx context.Context, slot uint64) {
	epoch := slot / m.opts.SlotsPerEpoch
	if epoch == 0 {
		return
	}

	inclusion, err := m.api.ValidatorInclusion(ctx, epoch)
	if err != nil {
		m.logger.Warn().Err(err).Uint64("epoch", epoch).Msg("inclusion query failed, skipping epoch")
		return
	}

	completedRate, ok := participationRate(inclusion.PreviousEpochTargetAttestingGwei, inclusion.PreviousEpochActiveGwei)
	if !ok {
		m.logger.Warn().Uint64("epoch", epoch).Msg("inclusion response has zero active stake, skipping epoch")
		return
	}
	currentRate, _ := participationRate(inclusion.CurrentEpochTargetAttestingGwei, inclusion.CurrentEpochActiveGwei)

	sample := Sample{
		Network:      m.opts.Network,
		Epoch:        epoch - 1,
		CurrentRate:  currentRate,
		PreviousRate: completedRate,
		TakenAt:      m.now().UTC(),
	}

	m.mu.Lock()
	m.latest = &sample
	message, alert := m.hysteresis.Evaluate(completedRate)
	autoPost := m.autoPost
	m.mu.Unlock()

	m.logger.Info().
		Uint64("epoch", sample.Epoch).
		Float64("rate", completedRate).
		Msg("participation sample")

	if alert {
		if err := m.sink.Post(ctx, fmt.Sprintf("[%s] %s", m.opts.Network, message)); err != nil {
			m.logger.Error().Err(err).Msg("failed to post participation alert")
		}
	}

	if autoPost {
		if err := m.channel.Post(ctx, RenderParticipation(sample)); err != nil {
			m.logger.Error().Err(err).Msg("failed to auto-post participation")
		}
	}

	if m.store != nil {
		record := storage.ParticipationSample{
			Network:      sample.Network,
			Epoch:        sample.Epoch,
			CurrentRate:  decimal.NewFromFloat(sample.CurrentRate),
			PreviousRate: decimal.NewFromFloat(sample.PreviousRate),
			TakenAt:      sample.TakenAt,
		}
		if err := m.store.InsertParticipationSample(ctx, record); err != nil {
			m.logger.Error().Err(err).Msg("failed to persist participation sample")
		}
	}
}

// scanSlot checks the block at a slot for slashing evidence.
func (m *Monitor) scanSlot(ctx context.Context, slot uint64) {
	block, err := m.api.BlockBySlot(ctx, slot)
	if err != nil {
		if errors.Is(err, beacon.ErrBlockMissing) {
			return
		}
		m.logger.Warn().Err(err).Uint64("slot", slot).Msg("block fetch failed")
		return
	}

	attesters, proposers := ScanBlock(block)
	message := RenderSlashingAlert(m.opts.Network, slot, attesters, proposers)
	if message == "" {
		return
	}

	m.logger.Warn().
		Uint64("slot", slot).
		Int("attesters", len(attesters)).
		Int("proposers", len(proposers)).
		Msg("slashing evidence found")

	if err := m.sink.Post(ctx, message); err != nil {
		m.logger.Error().Err(err).Msg("failed to post slashing alert")
	}
}

// Latest returns the most recent participation sample, if any.
func (m *Monitor) Latest() (Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == nil {
		return Sample{}, false
	}
	return *m.latest, true
}

// SetAutoPost toggles per-epoch posting to the designated channel.
func (m *Monitor) SetAutoPost(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoPost = enabled
}

// AutoPost reports whether per-epoch posting is enabled.
func (m *Monitor) AutoPost() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoPost
}

// QueueReply fetches queue statistics and renders the user-facing reply.
func (m *Monitor) QueueReply(ctx context.Context) (string, error) {
	stats, err := m.api.Queue(ctx)
	if err != nil {
		return "", err
	}
	return RenderQueueReply(m.opts.Network, stats), nil
}

// RenderParticipation formats a sample for the participation command and
// the auto-post task.
func RenderParticipation(sample Sample) string {
	return fmt.Sprintf(
		"%s participation — epoch %d: %.2f%% (current epoch so far: %.2f%%)",
		sample.Network, sample.Epoch, sample.PreviousRate*100, sample.CurrentRate*100,
	)
}

func participationRate(attesting, active uint64) (float64, bool) {
	if active == 0 {
		return 0, false
	}
	return float64(attesting) / float64(active), true
}
