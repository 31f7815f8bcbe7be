package locker

import (
	"context"
	"fmt"
	"strings"

	"github.com/suilocker/suilocker/internal/common"
	"github.com/suilocker/suilocker/internal/ledger"
	"github.com/suilocker/suilocker/internal/txb"
	"github.com/suilocker/suilocker/internal/wallet"
)

// submit signs and executes tx, waits for finality, and translates a
// rejected execution into an error. The returned effects are only valid
// when err is nil.
func submit(ctx context.Context, lc ledger.Client, signer wallet.Signer, mu *Mutation, tx *txb.Transaction) (*ledger.Effects, error) {
	mu.start()

	digest, err := signer.SignAndExecuteTransaction(ctx, tx)
	if err != nil {
		return nil, mu.fail(fmt.Errorf("executing %s::%s: %w", tx.Module, tx.Function, err))
	}

	effects, err := lc.WaitForTransaction(ctx, digest)
	if err != nil {
		return nil, mu.fail(fmt.Errorf("waiting for %s: %w", digest, err))
	}
	if !effects.Succeeded() {
		return nil, mu.fail(translateAbort(effects.Error))
	}

	mu.succeed(effects.Digest)
	return effects, nil
}

// translateAbort maps known move-abort codes onto domain errors so
// callers can branch with errors.Is instead of string matching.
func translateAbort(msg string) error {
	if strings.Contains(msg, "EVaultNotEmpty") {
		return fmt.Errorf("%w: %s", common.ErrVaultNotEmpty, msg)
	}
	return fmt.Errorf("%w: %s", common.ErrLedgerRejected, msg)
}
