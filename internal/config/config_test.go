package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "app:\n  name: faucet-test\n"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.App.Name != "faucet-test" {
		t.Fatalf("app name not read: %q", cfg.App.Name)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Fatalf("logging defaults missing: %+v", cfg.Logging)
	}
	if cfg.Beacon.SlotsPerEpoch != 32 {
		t.Fatalf("slots_per_epoch default missing: %d", cfg.Beacon.SlotsPerEpoch)
	}
	if cfg.Beacon.ReconnectDelay != 5*time.Second {
		t.Fatalf("reconnect_delay default missing: %s", cfg.Beacon.ReconnectDelay)
	}
	if cfg.Resolver.RegistryAddress == "" {
		t.Fatal("resolver registry address default missing")
	}
	if cfg.Export.MaxDataPoints != 100000 {
		t.Fatalf("export default missing: %d", cfg.Export.MaxDataPoints)
	}
}

func TestLoadParsesNetworks(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
networks:
  holesky:
    display_name: Holesky
    rpc_url: https://rpc.example
    private_key: "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
    window: 96h
    target_amount: 1.0
    allowed_roles: verified,builder
`))
	if err != nil {
		t.Fatal(err)
	}

	net, ok := cfg.Networks["holesky"]
	if !ok {
		t.Fatal("holesky network not parsed")
	}
	if net.Window != 96*time.Hour {
		t.Fatalf("window not parsed as duration: %s", net.Window)
	}
	if len(net.AllowedRoles) != 2 || net.AllowedRoles[0] != "verified" {
		t.Fatalf("allowed_roles not split: %v", net.AllowedRoles)
	}
}

func TestValidateRejectsIncompleteNetwork(t *testing.T) {
	_, err := Load(writeConfigFile(t, `
networks:
  holesky:
    rpc_url: https://rpc.example
    private_key: abc
    window: 96h
`))
	if err == nil || !strings.Contains(err.Error(), "target_amount") {
		t.Fatalf("expected target_amount validation error, got %v", err)
	}
}

func TestValidateBeaconRequiresBaseURL(t *testing.T) {
	_, err := Load(writeConfigFile(t, `
beacon:
  enabled: true
  network: holesky
`))
	if err == nil || !strings.Contains(err.Error(), "beacon.base_url") {
		t.Fatalf("expected beacon.base_url validation error, got %v", err)
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 500}}
	if got := cfg.ResolveMaxPoints(0); got != 500 {
		t.Fatalf("expected config default, got %d", got)
	}
	if got := cfg.ResolveMaxPoints(42); got != 42 {
		t.Fatalf("expected override, got %d", got)
	}
}
