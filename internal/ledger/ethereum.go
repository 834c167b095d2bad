package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	dErrors "facevote/pkg/domain-errors"
)

// Fixed resource budgets, matching the contract's measured costs with ample
// headroom. Writes never estimate gas so a mis-signed revert cannot stall on
// estimation.
const (
	deployGasLimit     = 6_000_000
	candidateGasLimit  = 300_000
	voteGasLimit       = 300_000
	deactivateGasLimit = 200_000
)

// gasPriceWei is 10 gwei.
var gasPriceWei = big.NewInt(10_000_000_000)

// Backend is the slice of an Ethereum JSON-RPC client the bridge needs:
// contract calls, transaction submission, and receipt polling.
// *ethclient.Client satisfies it; tests substitute a fake.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// EthereumBridge implements Bridge against an EVM node.
//
// All writes from the signing account are serialized through a single mutex:
// the account nonce is fetched immediately before submission, so two
// concurrent writers would race to the same nonce. Holding the lock across
// fetch-sign-submit-confirm makes the race impossible by construction.
type EthereumBridge struct {
	backend        Backend
	artifact       *Artifact
	key            *ecdsa.PrivateKey
	from           common.Address
	chainID        *big.Int
	confirmTimeout time.Duration
	logger         *slog.Logger

	writeMu sync.Mutex
}

// EthereumConfig carries what the bridge needs to sign and submit.
type EthereumConfig struct {
	PrivateKeyHex  string
	ChainID        int64
	ConfirmTimeout time.Duration
}

// NewEthereum builds a bridge over the given backend. The private key is the
// service's owner account; voters never sign their own transactions, which is
// what keeps the ledger free of voter-identifying addresses.
func NewEthereum(backend Backend, artifact *Artifact, cfg EthereumConfig, logger *slog.Logger) (*EthereumBridge, error) {
	key, err := crypto.HexToECDSA(cfg.PrivateKeyHex)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid signing key")
	}
	timeout := cfg.ConfirmTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &EthereumBridge{
		backend:        backend,
		artifact:       artifact,
		key:            key,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		chainID:        big.NewInt(cfg.ChainID),
		confirmTimeout: timeout,
		logger:         logger,
	}, nil
}

// Signer returns the bridge's signing account address.
func (b *EthereumBridge) Signer() string { return b.from.Hex() }

// txOpts builds transact options with the account's sequence number fetched
// now. Callers must hold writeMu.
func (b *EthereumBridge) txOpts(ctx context.Context, gasLimit uint64) (*bind.TransactOpts, error) {
	nonce, err := b.backend.PendingNonceAt(ctx, b.from)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeExternal, "fetch account nonce")
	}
	opts, err := bind.NewKeyedTransactorWithChainID(b.key, b.chainID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build transactor")
	}
	opts.Nonce = new(big.Int).SetUint64(nonce)
	opts.GasLimit = gasLimit
	opts.GasPrice = gasPriceWei
	opts.Context = ctx
	return opts, nil
}

func (b *EthereumBridge) Deploy(ctx context.Context) (string, error) {
	if len(b.artifact.Bytecode) == 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "contract artifact has no bytecode")
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	opts, err := b.txOpts(ctx, deployGasLimit)
	if err != nil {
		return "", err
	}
	addr, tx, _, err := bind.DeployContract(opts, b.artifact.ABI, b.artifact.Bytecode, b.backend)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeExternal, "submit contract deployment")
	}

	b.logger.InfoContext(ctx, "election contract deployment submitted",
		"tx", tx.Hash().Hex(),
		"address", addr.Hex(),
	)
	if _, err := b.waitMined(ctx, tx); err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

func (b *EthereumBridge) AddCandidate(ctx context.Context, contract, name string) (uint64, error) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	bound := b.bind(contract)
	opts, err := b.txOpts(ctx, candidateGasLimit)
	if err != nil {
		return 0, err
	}
	tx, err := bound.Transact(opts, "addCandidate", name)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeExternal, "submit addCandidate")
	}
	if _, err := b.waitMined(ctx, tx); err != nil {
		return 0, err
	}

	// The contract assigns sequential 1-based ids and exposes no return
	// value on the write path, so the ordinal is the post-commit count.
	// writeMu is still held, so no other candidate addition can interleave.
	count, err := b.candidateCount(ctx, bound)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (b *EthereumBridge) DeactivateCandidate(ctx context.Context, contract string, ordinal uint64) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	opts, err := b.txOpts(ctx, deactivateGasLimit)
	if err != nil {
		return err
	}
	tx, err := b.bind(contract).Transact(opts, "deactivateCandidate", new(big.Int).SetUint64(ordinal))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeExternal, "submit deactivateCandidate")
	}
	_, err = b.waitMined(ctx, tx)
	return err
}

func (b *EthereumBridge) Vote(ctx context.Context, contract string, digest [32]byte, ordinal uint64) error {
	if ordinal == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "candidate ordinal must be at least 1")
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	opts, err := b.txOpts(ctx, voteGasLimit)
	if err != nil {
		return err
	}
	tx, err := b.bind(contract).Transact(opts, "vote", digest, new(big.Int).SetUint64(ordinal))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeExternal, "submit vote")
	}

	b.logger.InfoContext(ctx, "vote transaction submitted", "tx", tx.Hash().Hex())
	_, err = b.waitMined(ctx, tx)
	return err
}

func (b *EthereumBridge) ReadTally(ctx context.Context, contract string) ([]TallyRow, error) {
	bound := b.bind(contract)
	count, err := b.candidateCount(ctx, bound)
	if err != nil {
		return nil, err
	}

	rows := make([]TallyRow, 0, count)
	for i := uint64(1); i <= count; i++ {
		var out []any
		err := bound.Call(&bind.CallOpts{Context: ctx}, &out, "candidates", new(big.Int).SetUint64(i))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeExternal, "read candidate row")
		}
		name, _ := out[1].(string)
		votes, _ := out[2].(*big.Int)
		active, _ := out[3].(bool)
		row := TallyRow{Ordinal: i, Name: name, Active: active}
		if votes != nil {
			row.Votes = votes.Uint64()
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (b *EthereumBridge) bind(contract string) *bind.BoundContract {
	addr := common.HexToAddress(contract)
	return bind.NewBoundContract(addr, b.artifact.ABI, b.backend, b.backend, b.backend)
}

func (b *EthereumBridge) candidateCount(ctx context.Context, bound *bind.BoundContract) (uint64, error) {
	var out []any
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &out, "candidateCount"); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeExternal, "read candidate count")
	}
	count, ok := out[0].(*big.Int)
	if !ok {
		return 0, dErrors.New(dErrors.CodeExternal, "candidate count has unexpected type")
	}
	return count.Uint64(), nil
}

// waitMined blocks until the transaction is confirmed, bounded by the
// configured timeout. Timeouts surface as a distinct code so callers can
// tell "the node said no" apart from "the node never answered"; the caller
// decides whether to retry, never the bridge.
func (b *EthereumBridge) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, b.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, b.backend, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Newf(dErrors.CodeExternalTimeout,
				"ledger confirmation for %s exceeded %s", tx.Hash().Hex(), b.confirmTimeout)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeExternal, "wait for confirmation")
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, dErrors.Newf(dErrors.CodeExternal, "transaction %s reverted", tx.Hash().Hex())
	}
	return receipt, nil
}
