package api

import (
	"fmt"
	"math/big"

	"blocklucky/models"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Actions covered by signed calls
const (
	ActionBuyTicket         = "buyTicket"
	ActionBuyTickets        = "buyTickets"
	ActionResetLottery      = "resetLottery"
	ActionEmergencyWithdraw = "emergencyWithdraw"
)

// CallMessage builds the text a caller signs with personal_sign:
// blocklucky:<lotteryID>:<action>:<args>:<value>:<nonce>
func CallMessage(lotteryID int64, action, args string, value *big.Int, nonce uint64) string {
	if value == nil {
		value = new(big.Int)
	}
	return fmt.Sprintf("blocklucky:%d:%s:%s:%s:%d", lotteryID, action, args, value.String(), nonce)
}

// RecoverSigner returns the address that produced an EIP-191 signature over message
func RecoverSigner(message string, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", models.ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: expected %d bytes, got %d", models.ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}

	// Wallets return V as 27/28
	sig = append([]byte(nil), sig...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", models.ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyCall checks that from signed message
func VerifyCall(from common.Address, message, signature string) error {
	signer, err := RecoverSigner(message, signature)
	if err != nil {
		return err
	}
	if signer != from {
		return fmt.Errorf("%w: signed by %s, not %s", models.ErrInvalidSignature, signer.Hex(), from.Hex())
	}
	return nil
}
