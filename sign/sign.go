// Package sign implements the subscription-creation signature gate.
//
// A provider consents to a subscription by signing its 32-byte fingerprint
// under the ERC-191 personal-message convention. The verifier is a pure
// function over (fingerprint, signature bytes): it recovers the signer
// address and compares it against the expected provider.
package sign

import (
	"errors"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the byte length of an ECDSA signature:
// 32-byte r, 32-byte s, 1-byte recovery id v.
const SignatureLength = 65

var (
	// ErrSignatureLength is returned for signatures that are not 65 bytes.
	ErrSignatureLength = errors.New("sign: signature must be 65 bytes")

	// ErrRecoveryID is returned when the recovery id normalizes outside
	// the canonical {27, 28} range.
	ErrRecoveryID = errors.New("sign: invalid recovery id")
)

// NormalizeV maps producer recovery-id conventions onto the canonical
// {27, 28} range. Geth-style signers emit 27/28, ganache-style signers
// emit 0/1; ids below 27 are shifted up by 27.
func NormalizeV(v byte) byte {
	if v < 27 {
		return v + 27
	}
	return v
}

// Recover returns the address that signed the given fingerprint.
// The signature's recovery id may use either the {0, 1} or the {27, 28}
// convention.
func Recover(fingerprint common.Hash, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, ErrSignatureLength
	}

	sig := make([]byte, SignatureLength)
	copy(sig, signature)

	v := NormalizeV(sig[64])
	if v != 27 && v != 28 {
		return common.Address{}, ErrRecoveryID
	}
	// crypto.SigToPub wants the recovery id in {0, 1}.
	sig[64] = v - 27

	digest := accounts.TextHash(fingerprint.Bytes())
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// Verify reports whether signature is a valid signature by expected over
// fingerprint. It never returns an error: any malformed signature simply
// fails verification.
func Verify(fingerprint common.Hash, signature []byte, expected common.Address) bool {
	recovered, err := Recover(fingerprint, signature)
	if err != nil {
		return false
	}
	return recovered == expected
}
