// Package wallet defines the signer capability SuiLocker expects from a
// connected wallet and derives the per-session locker key from it.
package wallet

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/suilocker/suilocker/internal/common"
	"github.com/suilocker/suilocker/internal/txb"
)

// KeyDerivationMessage is the fixed message signed to derive the locker
// key. It must never change: the same wallet signing the same message is
// what makes the derived key stable across sessions.
const KeyDerivationMessage = "SuiLocker key derivation v1\n" +
	"Sign this message to unlock your encrypted locker.\n" +
	"This signature never leaves your device."

// Signer is the capability a connected wallet must provide. Any wallet
// implementing these two calls is acceptable.
type Signer interface {
	// Address returns the wallet's ledger address.
	Address() string

	// SignPersonalMessage signs an arbitrary byte message and returns
	// the signature bytes.
	SignPersonalMessage(ctx context.Context, msg []byte) ([]byte, error)

	// SignAndExecuteTransaction signs the move call, submits it, and
	// returns the transaction digest. Once this returns, the
	// transaction cannot be recalled.
	SignAndExecuteTransaction(ctx context.Context, tx *txb.Transaction) (digest string, err error)
}

// DeriveLockerKey signs KeyDerivationMessage and returns the signature,
// base64-encoded, as opaque symmetric key material. No further KDF round
// is applied: the cipher normalizes the material with SHA-256 and
// signature determinism for a fixed message is what keeps the key stable.
//
// If signing is rejected or the wallet disconnects mid-flow, the caller
// must treat the session as unauthenticated and disconnect rather than
// hold a half-initialized key.
func DeriveLockerKey(ctx context.Context, signer Signer) (string, error) {
	if signer == nil {
		return "", common.ErrNotAuthenticated
	}
	sig, err := signer.SignPersonalMessage(ctx, []byte(KeyDerivationMessage))
	if err != nil {
		return "", fmt.Errorf("%w: deriving locker key: %v", common.ErrNotAuthenticated, err)
	}
	if len(sig) == 0 {
		return "", fmt.Errorf("%w: wallet returned empty signature", common.ErrNotAuthenticated)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}
