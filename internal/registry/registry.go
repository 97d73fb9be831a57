package registry

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"testnet-faucet/internal/config"
)

// Chain is the dispensing-side view of one network's execution layer.
type Chain interface {
	// BalanceAt reads the current balance of an arbitrary address.
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	// FaucetBalance reads the dispensing wallet's balance.
	FaucetBalance(ctx context.Context) (*big.Int, error)
	// Send submits a transfer from the dispensing wallet.
	Send(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
	// WaitConfirmed blocks until the transaction has one confirmation.
	WaitConfirmed(ctx context.Context, tx common.Hash) error
	// FaucetAddress returns the dispensing wallet's address.
	FaucetAddress() common.Address
}

// Network is the immutable per-network runtime configuration plus its
// owned pending-lock set. Created at startup, lives for the process.
type Network struct {
	Name        string
	DisplayName string
	Symbol      string

	Chain          Chain
	Window         time.Duration
	TargetAmount   *big.Int
	MinReserve     *big.Int
	TxCostBuffer   *big.Int
	ExplorerTxURL  string
	Channel        string
	AllowedRoles   []string
	RequestTimeout time.Duration

	Pending *PendingSet
}

// NewNetwork builds a Network from configuration and a chain client.
func NewNetwork(name string, cfg config.NetworkConfig, chain Chain) *Network {
	display := cfg.DisplayName
	if display == "" {
		display = name
	}

	symbol := cfg.Symbol
	if symbol == "" {
		symbol = "ETH"
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Network{
		Name:           name,
		DisplayName:    display,
		Symbol:         symbol,
		Chain:          chain,
		Window:         cfg.Window,
		TargetAmount:   EtherToWei(cfg.TargetAmount),
		MinReserve:     EtherToWei(cfg.MinReserve),
		TxCostBuffer:   EtherToWei(cfg.TxCostBuffer),
		ExplorerTxURL:  cfg.ExplorerTxURL,
		Channel:        cfg.Channel,
		AllowedRoles:   cfg.AllowedRoles,
		RequestTimeout: timeout,
		Pending:        NewPendingSet(),
	}
}

// ExplorerLink renders the explorer URL for a transaction hash.
func (n *Network) ExplorerLink(tx common.Hash) string {
	if n.ExplorerTxURL == "" {
		return tx.Hex()
	}
	if strings.Contains(n.ExplorerTxURL, "%s") {
		return fmt.Sprintf(n.ExplorerTxURL, tx.Hex())
	}
	return strings.TrimRight(n.ExplorerTxURL, "/") + "/" + tx.Hex()
}

var weiPerEther = decimal.NewFromInt(1_000_000_000_000_000_000)

// EtherToWei converts an ether-denominated config amount into wei.
func EtherToWei(ether float64) *big.Int {
	return decimal.NewFromFloat(ether).Mul(weiPerEther).BigInt()
}

// WeiToEther converts wei into an ether-denominated decimal for display.
func WeiToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}

// Registry holds every configured network keyed by name.
type Registry struct {
	networks map[string]*Network
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{networks: make(map[string]*Network)}
}

// Add registers a network, replacing any previous entry with the same name.
func (r *Registry) Add(network *Network) {
	r.networks[network.Name] = network
}

// Get looks a network up by name.
func (r *Registry) Get(name string) (*Network, bool) {
	network, ok := r.networks[name]
	return network, ok
}

// Names returns all registered network names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
