package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"testnet-faucet/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig                `mapstructure:"app"`
	Logging  logging.Config           `mapstructure:"logging"`
	Database DatabaseConfig           `mapstructure:"database"`
	Networks map[string]NetworkConfig `mapstructure:"networks"`
	Beacon   BeaconConfig             `mapstructure:"beacon"`
	Resolver ResolverConfig           `mapstructure:"resolver"`
	Alerting AlertingConfig           `mapstructure:"alerting"`
	Access   AccessConfig             `mapstructure:"access"`
	Export   ExportConfig             `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// NetworkConfig describes one dispensing network.
type NetworkConfig struct {
	DisplayName    string        `mapstructure:"display_name"`
	Symbol         string        `mapstructure:"symbol"`
	RPCURL         string        `mapstructure:"rpc_url"`
	PrivateKey     string        `mapstructure:"private_key"`
	Window         time.Duration `mapstructure:"window"`
	TargetAmount   float64       `mapstructure:"target_amount"`
	MinReserve     float64       `mapstructure:"min_reserve"`
	TxCostBuffer   float64       `mapstructure:"tx_cost_buffer"`
	ExplorerTxURL  string        `mapstructure:"explorer_tx_url"`
	Channel        string        `mapstructure:"channel"`
	AllowedRoles   []string      `mapstructure:"allowed_roles"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// BeaconConfig covers consensus-node data access.
type BeaconConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Network           string        `mapstructure:"network"`
	BaseURL           string        `mapstructure:"base_url"`
	QueueURL          string        `mapstructure:"queue_url"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	SlotsPerEpoch     uint64        `mapstructure:"slots_per_epoch"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectDelay time.Duration `mapstructure:"max_reconnect_delay"`
	AutoPost          bool          `mapstructure:"auto_post"`
}

// ResolverConfig points name resolution at the reference network.
type ResolverConfig struct {
	RPCURL          string        `mapstructure:"rpc_url"`
	RegistryAddress string        `mapstructure:"registry_address"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// AlertingConfig defines operator alert routing.
type AlertingConfig struct {
	Enabled                 bool          `mapstructure:"enabled"`
	WebhookURL              string        `mapstructure:"webhook_url"`
	ParticipationWebhookURL string        `mapstructure:"participation_webhook_url"`
	RequestTimeout          time.Duration `mapstructure:"request_timeout"`
}

// AccessConfig identifies privileged and flagged identities.
type AccessConfig struct {
	OperatorID string `mapstructure:"operator_id"`
	FarmerRole string `mapstructure:"farmer_role"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FAUCET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "testnet-faucet")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("beacon.enabled", false)
	v.SetDefault("beacon.request_timeout", "15s")
	v.SetDefault("beacon.slots_per_epoch", uint64(32))
	v.SetDefault("beacon.reconnect_delay", "5s")
	v.SetDefault("beacon.max_reconnect_delay", "2m")
	v.SetDefault("beacon.auto_post", false)

	v.SetDefault("resolver.registry_address", "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")
	v.SetDefault("resolver.request_timeout", "10s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.request_timeout", "10s")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}

	for name, net := range c.Networks {
		if net.RPCURL == "" {
			return fmt.Errorf("networks.%s.rpc_url is required", name)
		}
		if net.PrivateKey == "" {
			return fmt.Errorf("networks.%s.private_key is required", name)
		}
		if net.Window <= 0 {
			return fmt.Errorf("networks.%s.window must be greater than zero", name)
		}
		if net.TargetAmount <= 0 {
			return fmt.Errorf("networks.%s.target_amount must be greater than zero", name)
		}
		if net.MinReserve < 0 {
			return fmt.Errorf("networks.%s.min_reserve cannot be negative", name)
		}
	}

	if c.Beacon.Enabled {
		if c.Beacon.BaseURL == "" {
			return fmt.Errorf("beacon.base_url is required when beacon.enabled")
		}
		if c.Beacon.Network == "" {
			return fmt.Errorf("beacon.network is required when beacon.enabled")
		}
		if c.Beacon.SlotsPerEpoch == 0 {
			return fmt.Errorf("beacon.slots_per_epoch must be greater than zero")
		}
	}

	if c.Alerting.Enabled && c.Alerting.WebhookURL == "" {
		return fmt.Errorf("alerting.webhook_url is required when alerting.enabled")
	}

	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
