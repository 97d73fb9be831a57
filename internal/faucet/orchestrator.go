package faucet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"testnet-faucet/internal/alerting"
	"testnet-faucet/internal/ens"
	"testnet-faucet/internal/registry"
	"testnet-faucet/internal/storage"
)

const quickRepeatGrace = 24 * time.Hour

// Orchestrator drives one user request end-to-end through gating,
// resolution, balance, reserve, transfer, and confirmation.
type Orchestrator struct {
	store      storage.RequestStore
	resolver   Resolver
	sink       alerting.Sink
	logger     zerolog.Logger
	farmerRole string
	now        func() time.Time
}

// New constructs the orchestrator.
func New(store storage.RequestStore, resolver Resolver, sink alerting.Sink, farmerRole string, logger zerolog.Logger) *Orchestrator {
	if sink == nil {
		sink = alerting.NopSink{}
	}
	return &Orchestrator{
		store:      store,
		resolver:   resolver,
		sink:       sink,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
		farmerRole: farmerRole,
		now:        time.Now,
	}
}

// Handle runs the request state machine for one invocation.
func (o *Orchestrator) Handle(ctx context.Context, net *registry.Network, req Request) Outcome {
	logger := o.logger.With().
		Str("network", net.Name).
		Str("user", req.UserID).
		Logger()

	// Channel gate happens before the lock; a redirect must not consume it.
	if net.Channel != "" && req.Channel != net.Channel {
		logger.Debug().Str("channel", req.Channel).Msg("request outside designated channel")
		return Outcome{Kind: KindWrongChannel, Message: wrongChannelMessage(net)}
	}

	if !net.Pending.TryAcquire(req.UserID) {
		logger.Debug().Msg("request already pending")
		return Outcome{Kind: KindAlreadyPending, Message: alreadyPendingMessage(net)}
	}
	defer net.Pending.Release(req.UserID)

	return o.handleLocked(ctx, net, req, logger)
}

func (o *Orchestrator) handleLocked(ctx context.Context, net *registry.Network, req Request, logger zerolog.Logger) Outcome {
	if len(net.AllowedRoles) > 0 && !holdsAny(req, net.AllowedRoles) {
		logger.Debug().Msg("caller holds no allowed role")
		return Outcome{Kind: KindMissingRole, Message: missingRoleMessage(net)}
	}

	// Flagged farmers get a reproducible fake cooldown and nothing else:
	// no store read, no store write, no chain traffic.
	if o.farmerRole != "" && req.hasRole(o.farmerRole) {
		wait := DecoyWait(req.UserID, net.Window)
		logger.Info().Dur("decoy_wait", wait).Msg("farmer soft-blocked")
		return Outcome{Kind: KindRateLimited, Message: rateLimitedMessage(net, wait)}
	}

	now := o.now().UTC()

	record, err := o.store.GetLastRequest(ctx, net.Name, req.UserID)
	if err != nil {
		logger.Error().Err(err).Msg("rate-limit lookup failed")
		return o.failed(net, "look up your last request", err)
	}

	quickRepeat := false
	if record != nil {
		eligibleAt := record.RequestedAt().Add(net.Window)
		if now.Before(eligibleAt) {
			remaining := eligibleAt.Sub(now)
			logger.Debug().Dur("remaining", remaining).Msg("rate limited")
			return Outcome{Kind: KindRateLimited, Message: rateLimitedMessage(net, remaining)}
		}
		quickRepeat = now.Sub(eligibleAt) < quickRepeatGrace
	}

	req.progress(fmt.Sprintf("Resolving %s…", req.Target))

	addr, outcome := o.resolveTarget(ctx, net, req.Target, logger)
	if outcome != nil {
		return *outcome
	}

	balance, err := net.Chain.BalanceAt(ctx, addr)
	if err != nil {
		logger.Error().Err(err).Str("target", addr.Hex()).Msg("target balance check failed")
		return o.failed(net, "check the target balance", err)
	}

	if balance.Cmp(net.TargetAmount) >= 0 {
		if err := o.store.UpsertLastRequest(ctx, net.Name, req.UserID, addr.Hex(), now); err != nil {
			logger.Error().Err(err).Msg("failed to record self-sufficient request")
		}
		logger.Info().Str("target", addr.Hex()).Msg("target already sufficiently funded")
		return Outcome{Kind: KindSelfSufficient, Message: selfSufficientMessage(net, addr, balance)}
	}

	// Top up only the shortfall.
	sending := new(big.Int).Sub(net.TargetAmount, balance)

	reserve, err := net.Chain.FaucetBalance(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("reserve check failed")
		return o.failed(net, "check the faucet reserve", err)
	}

	required := new(big.Int).Add(sending, net.TxCostBuffer)
	if reserve.Cmp(required) < 0 {
		logger.Warn().
			Str("reserve_wei", reserve.String()).
			Str("required_wei", required.String()).
			Msg("faucet reserve exhausted")
		o.postAlert(ctx, fmt.Sprintf(
			"⚠️ %s faucet cannot cover a %s %s request (reserve %s %s). Refill needed.",
			net.DisplayName,
			registry.WeiToEther(sending).StringFixed(4), net.Symbol,
			registry.WeiToEther(reserve).StringFixed(4), net.Symbol,
		))
		return Outcome{Kind: KindFaucetEmpty, Message: faucetEmptyMessage(net)}
	}

	req.progress(fmt.Sprintf("Sending %s %s to %s…", registry.WeiToEther(sending).StringFixed(4), net.Symbol, addr.Hex()))

	tx, err := net.Chain.Send(ctx, addr, sending)
	if err != nil {
		logger.Error().Err(err).Str("target", addr.Hex()).Msg("transfer submission failed")
		return o.failed(net, "submit the transfer", err)
	}

	// Record at submission, not confirmation, so a record exists even if
	// confirmation is slow. Never rolled back.
	if err := o.store.UpsertLastRequest(ctx, net.Name, req.UserID, addr.Hex(), now); err != nil {
		logger.Error().Err(err).Str("tx", tx.Hex()).Msg("failed to record dispense")
	}

	req.progress("Waiting for confirmation…")

	if err := net.Chain.WaitConfirmed(ctx, tx); err != nil {
		logger.Error().Err(err).Str("tx", tx.Hex()).Msg("confirmation wait failed")
		return Outcome{
			Kind:    KindFailed,
			TxHash:  tx,
			Message: fmt.Sprintf("The transfer was submitted (%s) but confirmation failed: %v", net.ExplorerLink(tx), err),
		}
	}

	remainingReserve := new(big.Int).Sub(reserve, sending)
	capacity := remainingCapacity(remainingReserve, net.TargetAmount)

	if net.MinReserve.Sign() > 0 && remainingReserve.Cmp(net.MinReserve) < 0 {
		o.postAlert(ctx, fmt.Sprintf(
			"⚠️ %s faucet reserve is down to %s %s (threshold %s).",
			net.DisplayName,
			registry.WeiToEther(remainingReserve).StringFixed(4), net.Symbol,
			registry.WeiToEther(net.MinReserve).StringFixed(4),
		))
	}

	logger.Info().
		Str("target", addr.Hex()).
		Str("amount_wei", sending.String()).
		Str("tx", tx.Hex()).
		Msg("dispense confirmed")

	return Outcome{
		Kind:    KindDispensed,
		TxHash:  tx,
		Message: dispensedMessage(net, sending, tx, capacity, quickRepeat),
	}
}

func (o *Orchestrator) resolveTarget(ctx context.Context, net *registry.Network, target string, logger zerolog.Logger) (common.Address, *Outcome) {
	target = strings.TrimSpace(target)

	if strings.Contains(target, ".") {
		if o.resolver == nil {
			return common.Address{}, &Outcome{
				Kind:    KindInvalidTarget,
				Message: "Name resolution is not available here — please supply a raw address.",
			}
		}
		addr, err := o.resolver.Resolve(ctx, target)
		if err != nil {
			if errors.Is(err, ens.ErrNotFound) {
				return common.Address{}, &Outcome{
					Kind:    KindInvalidTarget,
					Message: fmt.Sprintf("%q does not resolve to an address.", target),
				}
			}
			logger.Error().Err(err).Str("name", target).Msg("name resolution failed")
			out := o.failed(net, "resolve that name", err)
			return common.Address{}, &out
		}
		return addr, nil
	}

	if !common.IsHexAddress(target) {
		return common.Address{}, &Outcome{
			Kind:    KindInvalidTarget,
			Message: fmt.Sprintf("%q is not a valid address.", target),
		}
	}
	return common.HexToAddress(target), nil
}

func (o *Orchestrator) failed(net *registry.Network, step string, err error) Outcome {
	return Outcome{
		Kind:    KindFailed,
		Message: fmt.Sprintf("Something went wrong trying to %s on %s: %v", step, net.DisplayName, err),
	}
}

func (o *Orchestrator) postAlert(ctx context.Context, text string) {
	if err := o.sink.Post(ctx, text); err != nil {
		o.logger.Error().Err(err).Msg("failed to post operator alert")
	}
}

func holdsAny(req Request, allowed []string) bool {
	for _, role := range allowed {
		if req.hasRole(role) {
			return true
		}
	}
	return false
}

func remainingCapacity(reserve, target *big.Int) int64 {
	if target == nil || target.Sign() <= 0 || reserve == nil || reserve.Sign() < 0 {
		return -1
	}
	return new(big.Int).Div(reserve, target).Int64()
}
