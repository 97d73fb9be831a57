package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"testnet-faucet/internal/faucet"
	"testnet-faucet/internal/monitor"
	"testnet-faucet/internal/registry"
)

// Dispenser runs one faucet request end-to-end.
type Dispenser interface {
	Handle(ctx context.Context, net *registry.Network, req faucet.Request) faucet.Outcome
}

// ChainStatus is the monitor surface the status commands consume.
type ChainStatus interface {
	Latest() (monitor.Sample, bool)
	SetAutoPost(enabled bool)
	AutoPost() bool
	QueueReply(ctx context.Context) (string, error)
}

// Deps bundles what the command surface needs.
type Deps struct {
	Registry      *registry.Registry
	Dispenser     Dispenser
	Status        ChainStatus
	BeaconNetwork string
	OperatorID    string
	Logger        zerolog.Logger
}

// Register wires the full command surface into a mux.
func Register(mux *Mux, deps Deps) {
	mux.Handle("ping", pingHandler)

	for _, name := range deps.Registry.Names() {
		network, _ := deps.Registry.Get(name)
		mux.Handle("request-"+name, requestHandler(deps, network))
	}

	mux.Handle("wallet-info", walletInfoHandler(deps))

	if deps.Status != nil && deps.BeaconNetwork != "" {
		mux.Handle("queue-"+deps.BeaconNetwork, queueHandler(deps))
		mux.Handle("participation-"+deps.BeaconNetwork, participationHandler(deps))
		mux.Handle("participation-"+deps.BeaconNetwork+"-auto", participationAutoHandler(deps))
	}
}

func pingHandler(ctx context.Context, _ Invocation, resp Responder) error {
	return resp.Reply(ctx, "pong")
}

func requestHandler(deps Deps, network *registry.Network) HandlerFunc {
	return func(ctx context.Context, inv Invocation, resp Responder) error {
		target := strings.TrimSpace(inv.Arg(0))
		if target == "" {
			return resp.Reply(ctx, "Usage: request-"+network.Name+" <address or name>")
		}

		if err := resp.Reply(ctx, "Working on it…"); err != nil {
			return err
		}

		outcome := deps.Dispenser.Handle(ctx, network, faucet.Request{
			UserID:   inv.UserID,
			UserName: inv.UserName,
			Roles:    inv.Roles,
			Channel:  inv.Channel,
			Target:   target,
			Progress: func(text string) {
				if err := resp.Edit(ctx, text); err != nil {
					deps.Logger.Debug().Err(err).Msg("progress edit failed")
				}
			},
		})

		return resp.Followup(ctx, outcome.Message)
	}
}

func walletInfoHandler(deps Deps) HandlerFunc {
	return func(ctx context.Context, inv Invocation, resp Responder) error {
		var b strings.Builder
		if mention := inv.Arg(0); mention != "" {
			fmt.Fprintf(&b, "%s: ", mention)
		}
		b.WriteString("Faucet wallets:")

		for _, name := range deps.Registry.Names() {
			network, _ := deps.Registry.Get(name)
			fmt.Fprintf(&b, "\n%s — %s (dispenses up to %s %s every %s)",
				network.DisplayName,
				network.Chain.FaucetAddress().Hex(),
				registry.WeiToEther(network.TargetAmount).StringFixed(2),
				network.Symbol,
				faucet.HumanDuration(network.Window),
			)
		}
		return resp.Reply(ctx, b.String())
	}
}

func queueHandler(deps Deps) HandlerFunc {
	return func(ctx context.Context, _ Invocation, resp Responder) error {
		reply, err := deps.Status.QueueReply(ctx)
		if err != nil {
			deps.Logger.Error().Err(err).Msg("queue stats unavailable")
			return resp.Reply(ctx, "Queue statistics are unavailable right now.")
		}
		return resp.Reply(ctx, reply)
	}
}

func participationHandler(deps Deps) HandlerFunc {
	return func(ctx context.Context, _ Invocation, resp Responder) error {
		sample, ok := deps.Status.Latest()
		if !ok {
			return resp.Reply(ctx, "No participation sample observed yet — try again after the next epoch.")
		}
		return resp.Reply(ctx, monitor.RenderParticipation(sample))
	}
}

func participationAutoHandler(deps Deps) HandlerFunc {
	return func(ctx context.Context, inv Invocation, resp Responder) error {
		if inv.UserID != deps.OperatorID {
			return resp.Reply(ctx, "Only the operator can toggle auto-posting.")
		}

		enabled, err := strconv.ParseBool(inv.Arg(0))
		if err != nil {
			return resp.Reply(ctx, "Usage: participation-"+deps.BeaconNetwork+"-auto <true|false>")
		}

		deps.Status.SetAutoPost(enabled)
		if enabled {
			return resp.Reply(ctx, "Auto-posting participation each epoch.")
		}
		return resp.Reply(ctx, "Participation auto-posting disabled.")
	}
}
