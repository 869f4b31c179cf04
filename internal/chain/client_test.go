package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContract = "0x2222222222222222222222222222222222222222"

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{ChainID: 44787, ContractAddress: testContract})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RPC URL")

	_, err = NewClient(Config{RPCURL: "http://localhost:8545", ContractAddress: testContract})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain ID")

	_, err = NewClient(Config{RPCURL: "http://localhost:8545", ChainID: 44787, ContractAddress: "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contract address")
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(Config{
		RPCURL:          "http://localhost:8545",
		ChainID:         44787,
		ContractAddress: testContract,
	})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testContract).Hex(), c.ContractAddress())
}

func TestContractABIPacking(t *testing.T) {
	c, err := NewClient(Config{
		RPCURL:          "http://localhost:8545",
		ChainID:         44787,
		ContractAddress: testContract,
	})
	require.NoError(t, err)

	_, err = c.abi.Pack("registerProject", "P1", "QmProofCID")
	assert.NoError(t, err)

	_, err = c.abi.Pack("issueCredits", common.HexToAddress(testContract), "P1", big.NewInt(100), "QmProofCID")
	assert.NoError(t, err)

	_, err = c.abi.Pack("retireCredits", big.NewInt(7), big.NewInt(40))
	assert.NoError(t, err)

	_, err = c.abi.Pack("getProjectTokenId", "P1")
	assert.NoError(t, err)

	_, err = c.abi.Pack("balanceOf", common.HexToAddress(testContract), big.NewInt(7))
	assert.NoError(t, err)

	_, err = c.abi.Pack("registry", "verifier")
	assert.NoError(t, err)

	_, err = c.abi.Pack("updateRegistry", "verifier", common.HexToAddress(testContract))
	assert.NoError(t, err)
}

func TestIsZeroAddress(t *testing.T) {
	assert.True(t, IsZeroAddress("0x0000000000000000000000000000000000000000"))
	assert.True(t, IsZeroAddress(""))
	assert.False(t, IsZeroAddress(testContract))
}
