package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	perr "proofwork/internal/platform/errors"
	dom "proofwork/internal/services/payouts/domain"
)

// usdcDecimals is fixed across the chains we pay on; one cent is 10^4
// token units
const usdcCentUnits = 10_000

const erc20TransferGas = 100_000

// EVMConfig wires one sender key against per-chain RPC endpoints and
// stablecoin contracts
type EVMConfig struct {
	PrivateKeyHex string
	RPCByChain    map[int64]string
	TokenByChain  map[int64]string
}

// EVMChain implements dom.ChainPort over JSON-RPC
type EVMChain struct {
	key    *ecdsa.PrivateKey
	sender common.Address
	cfg    EVMConfig

	mu      sync.Mutex
	clients map[int64]*ethclient.Client
}

var _ dom.ChainPort = (*EVMChain)(nil)

// NewEVMChain parses the sender key; connections are dialed lazily
func NewEVMChain(cfg EVMConfig) (*EVMChain, error) {
	key, err := crypto.HexToECDSA(cfg.PrivateKeyHex)
	if err != nil {
		return nil, perr.InvalidArgf("payout sender key invalid: %v", err)
	}
	return &EVMChain{
		key:     key,
		sender:  crypto.PubkeyToAddress(key.PublicKey),
		cfg:     cfg,
		clients: make(map[int64]*ethclient.Client),
	}, nil
}

// Sender returns the paying address, checking the chain is configured
func (c *EVMChain) Sender(chainID int64) (string, error) {
	if c.cfg.RPCByChain[chainID] == "" || c.cfg.TokenByChain[chainID] == "" {
		return "", perr.Unavailablef("chain %d is not configured for payouts", chainID)
	}
	return c.sender.Hex(), nil
}

func (c *EVMChain) client(chainID int64) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cli, ok := c.clients[chainID]; ok {
		return cli, nil
	}
	rpc := c.cfg.RPCByChain[chainID]
	if rpc == "" {
		return nil, perr.Unavailablef("chain %d is not configured for payouts", chainID)
	}
	cli, err := ethclient.Dial(rpc)
	if err != nil {
		return nil, perr.Unavailablef("dial chain %d: %v", chainID, err)
	}
	c.clients[chainID] = cli
	return cli, nil
}

// Transfer broadcasts an ERC-20 transfer under the caller's nonce
func (c *EVMChain) Transfer(ctx context.Context, chainID int64, nonce uint64, toAddress string, cents int64) (string, error) {
	if !common.IsHexAddress(toAddress) {
		return "", perr.InvalidArgf("transfer target %q is not a valid address", toAddress)
	}
	cli, err := c.client(chainID)
	if err != nil {
		return "", err
	}
	token, ok := c.cfg.TokenByChain[chainID]
	if !ok {
		return "", perr.Unavailablef("chain %d has no token configured", chainID)
	}

	gasPrice, err := cli.SuggestGasPrice(ctx)
	if err != nil {
		return "", perr.Unavailablef("gas price on chain %d: %v", chainID, err)
	}

	amount := new(big.Int).Mul(big.NewInt(cents), big.NewInt(usdcCentUnits))
	data := transferCalldata(common.HexToAddress(toAddress), amount)
	tx := types.NewTransaction(nonce, common.HexToAddress(token), big.NewInt(0), erc20TransferGas, gasPrice, data)

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(chainID)), c.key)
	if err != nil {
		return "", perr.Internalf("sign transfer: %v", err)
	}
	if err := cli.SendTransaction(ctx, signed); err != nil {
		return "", perr.Unavailablef("broadcast on chain %d: %v", chainID, err)
	}
	return signed.Hash().Hex(), nil
}

// Confirmed reports whether the transaction landed successfully.
// A missing receipt is not an error, just not confirmed yet
func (c *EVMChain) Confirmed(ctx context.Context, chainID int64, txHash string) (bool, error) {
	cli, err := c.client(chainID)
	if err != nil {
		return false, err
	}
	rcpt, err := cli.TransactionReceipt(ctx, common.HexToHash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		return false, nil
	}
	if err != nil {
		return false, perr.Unavailablef("receipt on chain %d: %v", chainID, err)
	}
	return rcpt.Status == types.ReceiptStatusSuccessful, nil
}

func transferCalldata(to common.Address, amount *big.Int) []byte {
	selector := crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
	data := make([]byte, 0, 4+32+32)
	data = append(data, selector...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}
