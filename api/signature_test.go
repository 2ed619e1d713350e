package api

import (
	"math/big"
	"testing"

	"blocklucky/models"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallMessage(t *testing.T) {
	assert.Equal(t, "blocklucky:1:buyTickets:5:47500000000000000:3",
		CallMessage(1, ActionBuyTickets, "5", big.NewInt(47_500_000_000_000_000), 3))
	assert.Equal(t, "blocklucky:2:emergencyWithdraw::0:0",
		CallMessage(2, ActionEmergencyWithdraw, "", nil, 0))
}

func TestRecoverSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)
	message := CallMessage(1, ActionBuyTicket, "", models.DefaultTicketPrice, 0)

	raw, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)

	t.Run("recovery id 0/1", func(t *testing.T) {
		signer, err := RecoverSigner(message, hexutil.Encode(raw))
		require.NoError(t, err)
		assert.Equal(t, addr, signer)
	})

	t.Run("wallet style 27/28", func(t *testing.T) {
		sig := append([]byte(nil), raw...)
		sig[64] += 27
		signer, err := RecoverSigner(message, hexutil.Encode(sig))
		require.NoError(t, err)
		assert.Equal(t, addr, signer)
		// Caller's slice is left untouched
		assert.Equal(t, raw[64]+27, sig[64])
	})

	t.Run("different message recovers a different address", func(t *testing.T) {
		assert.Error(t, VerifyCall(addr, message+"x", hexutil.Encode(raw)))
	})

	t.Run("malformed", func(t *testing.T) {
		for _, sig := range []string{"", "0x1234", "not hex", hexutil.Encode(make([]byte, 66))} {
			_, err := RecoverSigner(message, sig)
			assert.ErrorIs(t, err, models.ErrInvalidSignature, sig)
		}
	})
}
