package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"testnet-faucet/internal/alerting"
	"testnet-faucet/internal/beacon"
	"testnet-faucet/internal/command"
	"testnet-faucet/internal/config"
	"testnet-faucet/internal/ens"
	"testnet-faucet/internal/faucet"
	"testnet-faucet/internal/monitor"
	"testnet-faucet/internal/registry"
	"testnet-faucet/internal/storage"
	"testnet-faucet/internal/wallet"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newRegistry() (*registry.Registry, error) {
	reg := registry.New()
	for name, cfg := range a.Config.Networks {
		w, err := wallet.New(wallet.Options{
			RPCURL:         cfg.RPCURL,
			PrivateKey:     cfg.PrivateKey,
			RequestTimeout: cfg.RequestTimeout,
		}, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", name, err)
		}
		reg.Add(registry.NewNetwork(name, cfg, w))
	}
	return reg, nil
}

func (a *App) newResolver() *ens.Resolver {
	return ens.NewResolver(ens.Options{
		RPCURL:          a.Config.Resolver.RPCURL,
		RegistryAddress: a.Config.Resolver.RegistryAddress,
		Timeout:         a.Config.Resolver.RequestTimeout,
	}, a.Logger)
}

// newSinks returns the operator alert sink and the channel posting sink.
func (a *App) newSinks() (alerting.Sink, alerting.Sink) {
	if !a.Config.Alerting.Enabled {
		return alerting.NopSink{}, alerting.NopSink{}
	}

	cfg := a.Config.Alerting
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	operator := alerting.Sink(alerting.NewWebhookNotifier(cfg.WebhookURL, timeout, a.Logger))
	channel := operator
	if cfg.ParticipationWebhookURL != "" {
		channel = alerting.NewWebhookNotifier(cfg.ParticipationWebhookURL, timeout, a.Logger)
	}
	return operator, channel
}

func (a *App) newMonitor(operator, channel alerting.Sink, store storage.ParticipationStore) *monitor.Monitor {
	cfg := a.Config.Beacon

	client := beacon.NewClient(beacon.Options{
		BaseURL:  cfg.BaseURL,
		QueueURL: cfg.QueueURL,
		Timeout:  cfg.RequestTimeout,
	}, a.Logger)

	stream := beacon.NewStream(beacon.StreamOptions{
		BaseURL:           cfg.BaseURL,
		ReconnectDelay:    cfg.ReconnectDelay,
		MaxReconnectDelay: cfg.MaxReconnectDelay,
	}, a.Logger)

	return monitor.New(monitor.Options{
		Network:       cfg.Network,
		SlotsPerEpoch: cfg.SlotsPerEpoch,
		AutoPost:      cfg.AutoPost,
	}, client, stream, operator, channel, store, a.Logger)
}

// Run executes the long-running faucet service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; request history disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	reg, err := a.newRegistry()
	if err != nil {
		return err
	}

	if store != nil {
		if err := store.Migrate(ctx, reg.Names()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	operatorSink, channelSink := a.newSinks()
	orchestrator := faucet.New(store, a.newResolver(), operatorSink, a.Config.Access.FarmerRole, a.Logger)

	var mon *monitor.Monitor
	var status command.ChainStatus
	if a.Config.Beacon.Enabled {
		var participation storage.ParticipationStore
		if store != nil {
			participation = store
		}
		mon = a.newMonitor(operatorSink, channelSink, participation)
		status = mon
	}

	mux := command.NewMux(a.Logger)
	command.Register(mux, command.Deps{
		Registry:      reg,
		Dispenser:     orchestrator,
		Status:        status,
		BeaconNetwork: a.Config.Beacon.Network,
		OperatorID:    a.Config.Access.OperatorID,
		Logger:        a.Logger,
	})
	a.Logger.Info().Strs("commands", mux.Commands()).Msg("command surface ready")

	if mon != nil {
		a.Logger.Info().Str("network", a.Config.Beacon.Network).Msg("starting chain health monitor")
		err = mon.Run(ctx)
	} else {
		<-ctx.Done()
		err = ctx.Err()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("service stopped")
	return nil
}

// ExportOptions hold parameters for exporting participation history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
