package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectID(t *testing.T) {
	id, err := ProjectID("  P1  ")
	require.NoError(t, err)
	assert.Equal(t, "P1", id)

	_, err = ProjectID("   ")
	require.Error(t, err)

	_, err = ProjectID("")
	require.Error(t, err)
}

func TestAmount(t *testing.T) {
	assert.NoError(t, Amount(1))
	assert.NoError(t, Amount(1000000))
	assert.Error(t, Amount(0))
	assert.Error(t, Amount(-5))
}

func TestAddress(t *testing.T) {
	// Mixed-case input normalizes to the EIP-55 checksum form.
	got, err := Address("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	require.NoError(t, err)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", got)

	// Already-checksummed input round-trips.
	got, err = Address("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.NoError(t, err)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", got)

	for _, bad := range []string{"", "0x123", "not-an-address", "0xZZeb6053f3e94c9b9a09f33669435e7ef1beaed"} {
		_, err := Address(bad)
		assert.Error(t, err, "expected error for %q", bad)
	}
}

func TestPageParam(t *testing.T) {
	n, err := PageParam("limit", "", 10)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)

	n, err = PageParam("limit", "25", 10)
	require.NoError(t, err)
	assert.EqualValues(t, 25, n)

	_, err = PageParam("skip", "-1", 0)
	require.Error(t, err)

	_, err = PageParam("skip", "abc", 0)
	require.Error(t, err)
}
