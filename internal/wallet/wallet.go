package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

const transferGasLimit = 21000

// Options parameterise the dispensing wallet.
type Options struct {
	RPCURL         string
	PrivateKey     string
	RequestTimeout time.Duration
	ConfirmTimeout time.Duration
	ConfirmPoll    time.Duration
}

// Wallet owns the dispensing key for one network.
type Wallet struct {
	opts    Options
	logger  zerolog.Logger
	key     *ecdsa.PrivateKey
	address common.Address

	clientMux sync.Mutex
	client    *ethclient.Client
	chainID   *big.Int
}

// New parses the dispensing key and prepares a lazy RPC client.
func New(opts Options, logger zerolog.Logger) (*Wallet, error) {
	if opts.RPCURL == "" {
		return nil, errors.New("wallet rpc url not configured")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}

	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 5 * time.Minute
	}
	if opts.ConfirmPoll <= 0 {
		opts.ConfirmPoll = 5 * time.Second
	}

	address := crypto.PubkeyToAddress(key.PublicKey)
	return &Wallet{
		opts:    opts,
		logger:  logger.With().Str("component", "wallet").Str("address", address.Hex()).Logger(),
		key:     key,
		address: address,
	}, nil
}

// FaucetAddress returns the dispensing wallet's address.
func (w *Wallet) FaucetAddress() common.Address {
	return w.address
}

// BalanceAt reads the current balance of an arbitrary address.
func (w *Wallet) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, w.opts.RequestTimeout)
	defer cancel()

	client, err := w.getClient(ctx)
	if err != nil {
		return nil, err
	}

	balance, err := client.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", addr.Hex(), err)
	}
	return balance, nil
}

// FaucetBalance reads the dispensing wallet's own balance.
func (w *Wallet) FaucetBalance(ctx context.Context) (*big.Int, error) {
	return w.BalanceAt(ctx, w.address)
}

// Send submits an EIP-1559 transfer of amount wei to the target address.
func (w *Wallet) Send(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, w.opts.RequestTimeout)
	defer cancel()

	client, err := w.getClient(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	chainID, err := w.getChainID(ctx, client)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := client.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}

	tipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest tip cap: %w", err)
	}

	head, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("latest header: %w", err)
	}

	feeCap := new(big.Int).Add(tipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       transferGasLimit,
		To:        &to,
		Value:     amount,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transfer: %w", err)
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("submit transfer: %w", err)
	}

	w.logger.Info().
		Str("to", to.Hex()).
		Str("amount_wei", amount.String()).
		Str("tx", signed.Hash().Hex()).
		Msg("transfer submitted")

	return signed.Hash(), nil
}

// WaitConfirmed polls for the transaction receipt until one confirmation.
func (w *Wallet) WaitConfirmed(ctx context.Context, tx common.Hash) error {
	ctx, cancel := context.WithTimeout(ctx, w.opts.ConfirmTimeout)
	defer cancel()

	client, err := w.getClient(ctx)
	if err != nil {
		return err
	}

	return retry.Do(
		func() error {
			receipt, err := client.TransactionReceipt(ctx, tx)
			if err != nil {
				return err
			}
			if receipt.Status != types.ReceiptStatusSuccessful {
				return retry.Unrecoverable(fmt.Errorf("transaction %s reverted", tx.Hex()))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(w.opts.ConfirmPoll),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

func (w *Wallet) getClient(ctx context.Context) (*ethclient.Client, error) {
	w.clientMux.Lock()
	defer w.clientMux.Unlock()

	if w.client != nil {
		return w.client, nil
	}

	client, err := ethclient.DialContext(ctx, w.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	w.client = client
	return client, nil
}

func (w *Wallet) getChainID(ctx context.Context, client *ethclient.Client) (*big.Int, error) {
	w.clientMux.Lock()
	defer w.clientMux.Unlock()

	if w.chainID != nil {
		return w.chainID, nil
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	w.chainID = chainID
	return chainID, nil
}
