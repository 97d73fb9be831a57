package ens

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

const (
	registryABIJSON = `[{"inputs":[{"internalType":"bytes32","name":"node","type":"bytes32"}],"name":"resolver","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}]`
	resolverABIJSON = `[{"inputs":[{"internalType":"bytes32","name":"node","type":"bytes32"}],"name":"addr","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}]`
)

var (
	registryABI abi.ABI
	resolverABI abi.ABI

	// ErrNotFound indicates the name has no resolver or resolves to zero.
	ErrNotFound = errors.New("ens: name not found")
)

func init() {
	var err error
	if registryABI, err = abi.JSON(strings.NewReader(registryABIJSON)); err != nil {
		panic("failed to parse ENS registry ABI: " + err.Error())
	}
	if resolverABI, err = abi.JSON(strings.NewReader(resolverABIJSON)); err != nil {
		panic("failed to parse ENS resolver ABI: " + err.Error())
	}
}

// Options parameterise the name resolver.
type Options struct {
	RPCURL          string
	RegistryAddress string
	Timeout         time.Duration
}

// Resolver resolves human-readable names on the reference network.
type Resolver struct {
	opts      Options
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewResolver builds a resolver against the reference network.
func NewResolver(opts Options, logger zerolog.Logger) *Resolver {
	return &Resolver{opts: opts, logger: logger.With().Str("component", "ens_resolver").Logger()}
}

// Resolve maps a name to the address it currently points at.
func (r *Resolver) Resolve(ctx context.Context, name string) (common.Address, error) {
	if r.opts.RPCURL == "" {
		return common.Address{}, errors.New("resolver rpc url not configured")
	}

	timeout := r.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := r.getClient(ctx)
	if err != nil {
		return common.Address{}, err
	}

	node := Namehash(name)

	resolverAddr, err := r.callAddressMethod(ctx, client, registryABI, common.HexToAddress(r.opts.RegistryAddress), "resolver", node)
	if err != nil {
		return common.Address{}, err
	}
	if resolverAddr == (common.Address{}) {
		return common.Address{}, ErrNotFound
	}

	resolved, err := r.callAddressMethod(ctx, client, resolverABI, resolverAddr, "addr", node)
	if err != nil {
		return common.Address{}, err
	}
	if resolved == (common.Address{}) {
		return common.Address{}, ErrNotFound
	}

	r.logger.Debug().Str("name", name).Str("address", resolved.Hex()).Msg("name resolved")
	return resolved, nil
}

func (r *Resolver) callAddressMethod(ctx context.Context, client *ethclient.Client, parsed abi.ABI, contract common.Address, method string, node [32]byte) (common.Address, error) {
	payload, err := parsed.Pack(method, node)
	if err != nil {
		return common.Address{}, err
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: payload}, nil)
	if err != nil {
		return common.Address{}, err
	}

	outputs, err := parsed.Unpack(method, res)
	if err != nil {
		return common.Address{}, err
	}
	if len(outputs) != 1 {
		return common.Address{}, errors.New("unexpected " + method + " response")
	}

	addr, ok := outputs[0].(common.Address)
	if !ok {
		return common.Address{}, errors.New("failed to decode " + method + " output")
	}
	return addr, nil
}

func (r *Resolver) getClient(ctx context.Context) (*ethclient.Client, error) {
	r.clientMux.Lock()
	defer r.clientMux.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	client, err := ethclient.DialContext(ctx, r.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	r.client = client
	return client, nil
}

// Namehash implements the recursive EIP-137 name hash.
func Namehash(name string) [32]byte {
	var node [32]byte
	if name == "" {
		return node
	}

	labels := strings.Split(strings.ToLower(strings.TrimSpace(name)), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		copy(node[:], crypto.Keccak256(node[:], labelHash))
	}
	return node
}
