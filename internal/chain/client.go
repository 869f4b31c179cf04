// Package chain provides the EVM ledger client for the carbon registry
// contract.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// registryABI covers the contract surface the gateway touches: project
// registration, issuance, retirement, token id resolution, balances and the
// name->address registry.
const registryABI = `[
	{"name":"registerProject","type":"function","inputs":[{"name":"projectId","type":"string"},{"name":"metadataCID","type":"string"}],"outputs":[]},
	{"name":"issueCredits","type":"function","inputs":[{"name":"to","type":"address"},{"name":"projectId","type":"string"},{"name":"amount","type":"uint256"},{"name":"proofCID","type":"string"}],"outputs":[]},
	{"name":"retireCredits","type":"function","inputs":[{"name":"tokenId","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"name":"updateRegistry","type":"function","inputs":[{"name":"name","type":"string"},{"name":"target","type":"address"}],"outputs":[]},
	{"name":"getProjectTokenId","type":"function","stateMutability":"view","inputs":[{"name":"projectId","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"registry","type":"function","stateMutability":"view","inputs":[{"name":"name","type":"string"}],"outputs":[{"name":"","type":"address"}]}
]`

// TxResult describes a submitted ledger transaction.
type TxResult struct {
	TxHash string `json:"tx_hash"`
	From   string `json:"from"`
	Nonce  uint64 `json:"nonce"`
	Status string `json:"status"`
}

// Client talks to the carbon registry contract over an EVM JSON-RPC node.
type Client struct {
	eth      *ethclient.Client
	abi      abi.ABI
	contract common.Address
	chainID  *big.Int
	timeout  time.Duration
}

// Config holds client configuration.
type Config struct {
	RPCURL          string
	ChainID         int64
	ContractAddress string
	Timeout         time.Duration
}

// NewClient dials the RPC node and prepares the contract binding.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}
	if cfg.ChainID == 0 {
		return nil, fmt.Errorf("chain ID required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address: %s", cfg.ContractAddress)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	eth, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}

	return &Client{
		eth:      eth,
		abi:      parsed,
		contract: common.HexToAddress(cfg.ContractAddress),
		chainID:  big.NewInt(cfg.ChainID),
		timeout:  timeout,
	}, nil
}

// IsZeroAddress reports whether addr is the zero-address sentinel used by
// the registry for missing entries.
func IsZeroAddress(addr string) bool {
	return common.HexToAddress(addr) == (common.Address{})
}

// ContractAddress returns the checksummed contract address.
func (c *Client) ContractAddress() string {
	return c.contract.Hex()
}

// Ping checks node connectivity by reading the chain id.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	if id.Cmp(c.chainID) != 0 {
		return fmt.Errorf("unexpected chain id %s (want %s)", id, c.chainID)
	}
	return nil
}

// =============================================================================
// Read Methods
// =============================================================================

// ProjectTokenID resolves the token id minted for a project.
func (c *Client) ProjectTokenID(ctx context.Context, projectID string) (*big.Int, error) {
	out, err := c.call(ctx, "getProjectTokenId", projectID)
	if err != nil {
		return nil, err
	}
	tokenID, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("getProjectTokenId: unexpected output type %T", out[0])
	}
	return tokenID, nil
}

// BalanceOf reads the on-chain credit balance of an address for a token id.
func (c *Client) BalanceOf(ctx context.Context, address string, tokenID *big.Int) (*big.Int, error) {
	out, err := c.call(ctx, "balanceOf", common.HexToAddress(address), tokenID)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: unexpected output type %T", out[0])
	}
	return balance, nil
}

// RegistryEntry reads a name->address registry mapping. The zero address is
// returned as-is; callers treat it as a missing entry.
func (c *Client) RegistryEntry(ctx context.Context, name string) (string, error) {
	out, err := c.call(ctx, "registry", name)
	if err != nil {
		return "", err
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("registry: unexpected output type %T", out[0])
	}
	return addr.Hex(), nil
}

// call packs an eth_call against the contract and unpacks the result.
func (c *Client) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	out, err := c.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// =============================================================================
// Write Methods
// =============================================================================

// RegisterProject submits a project registration transaction signed with the
// given key.
func (c *Client) RegisterProject(ctx context.Context, projectID, metadataCID, keyHex string) (*TxResult, error) {
	return c.sendContractTx(ctx, keyHex, "registerProject", projectID, metadataCID)
}

// IssueCredits mints credits for a project to the given address.
func (c *Client) IssueCredits(ctx context.Context, to, projectID string, amount int64, proofCID, keyHex string) (*TxResult, error) {
	return c.sendContractTx(ctx, keyHex, "issueCredits", common.HexToAddress(to), projectID, big.NewInt(amount), proofCID)
}

// RetireCredits burns credits for a token id.
func (c *Client) RetireCredits(ctx context.Context, tokenID *big.Int, amount int64, keyHex string) (*TxResult, error) {
	return c.sendContractTx(ctx, keyHex, "retireCredits", tokenID, big.NewInt(amount))
}

// UpdateRegistry writes a name->address registry mapping.
func (c *Client) UpdateRegistry(ctx context.Context, name, target, keyHex string) (*TxResult, error) {
	if !common.IsHexAddress(target) {
		return nil, fmt.Errorf("invalid target address: %s", target)
	}
	return c.sendContractTx(ctx, keyHex, "updateRegistry", name, common.HexToAddress(target))
}

// sendContractTx builds, signs and broadcasts a contract transaction. It
// returns as soon as the node accepts the transaction; no receipt polling.
func (c *Client) sendContractTx(ctx context.Context, keyHex, method string, args ...any) (*TxResult, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &c.contract,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas for %s: %w", method, err)
	}

	tx := types.NewTransaction(nonce, c.contract, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), key)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", method, err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	return &TxResult{
		TxHash: signed.Hash().Hex(),
		From:   from.Hex(),
		Nonce:  nonce,
		Status: "submitted",
	}, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}
