package walrus

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/suilocker/suilocker/internal/common"
	"github.com/suilocker/suilocker/internal/ledger"
	"github.com/suilocker/suilocker/internal/logging"
	"github.com/suilocker/suilocker/internal/txb"
	"github.com/suilocker/suilocker/internal/wallet"
)

// Step names the saga step an error occurred in.
type Step string

const (
	StepEncode   Step = "encode"
	StepRegister Step = "register"
	StepWrite    Step = "write"
	StepCertify  Step = "certify"
)

// StepError wraps a failure with the saga step it happened in, so
// callers can tell a safely-retryable registration failure from a
// shard-write failure that left an orphaned registration behind.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("upload step %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

func stepErr(step Step, err error) error { return &StepError{Step: step, Err: err} }

// errRegisterUnconfirmed marks a registration whose transaction was
// submitted but whose outcome is unknown: the finality wait failed, or
// the checkpoint save after an on-chain success failed. The blob object
// may exist, so the checkpoint must survive for Resume or ReportOrphans.
var errRegisterUnconfirmed = errors.New("registration unconfirmed")

// BlobRef is what the caller stores in place of inline content. Hash is
// the blob id itself: the id is content-derived, so it serves as the
// content-hash surrogate.
type BlobRef struct {
	BlobID string
	Size   uint64
	Hash   string
}

// NodeClient is the storage-network capability the gateway drives.
type NodeClient interface {
	// Nodes returns the storage-node names shards are assigned to.
	Nodes() []string

	// WriteShards pushes the encoded shards, referencing the registered
	// blob object, and returns one confirmation per node.
	WriteShards(ctx context.Context, blobObjectID string, shards []Shard) ([]string, error)

	// ReadBlob fetches a certified blob's bytes by id.
	ReadBlob(ctx context.Context, blobID string) ([]byte, error)
}

// Gateway orchestrates the upload saga and the download path.
type Gateway struct {
	pkg    string
	epochs uint64
	nodes  NodeClient
	ledger ledger.Client
	store  Store
	log    logging.Logger
}

func NewGateway(pkg string, epochs uint64, nodes NodeClient, lc ledger.Client, store Store, log logging.Logger) *Gateway {
	return &Gateway{
		pkg:    pkg,
		epochs: epochs,
		nodes:  nodes,
		ledger: lc,
		store:  store,
		log:    log.With("component", "walrus"),
	}
}

// Upload runs the full saga for the given hex ciphertext. On a
// shard-write or certify failure the checkpoint is kept so Resume can
// continue; the returned error carries the failed step.
func (g *Gateway) Upload(ctx context.Context, ciphertextHex string, signer wallet.Signer) (*BlobRef, error) {
	raw, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return nil, stepErr(StepEncode, fmt.Errorf("%w: %v", common.ErrMalformedEnvelope, err))
	}

	enc, err := EncodeBlob(raw, g.nodes.Nodes())
	if err != nil {
		return nil, stepErr(StepEncode, err)
	}

	cp := &Checkpoint{
		ID:      uuid.NewString(),
		BlobID:  enc.BlobID,
		State:   StateEncoded,
		Size:    enc.Size,
		Payload: raw,
	}
	if err := g.store.Save(ctx, cp); err != nil {
		return nil, stepErr(StepEncode, fmt.Errorf("saving checkpoint: %w", err))
	}
	g.log.Debug(ctx, "blob encoded", "blob_id", enc.BlobID, "size", enc.Size, "shards", len(enc.Shards))

	return g.run(ctx, cp, enc, signer)
}

// Resume continues a crashed upload from its last completed step. The
// payload stored in the checkpoint is re-encoded locally; encoding is
// deterministic, so the blob id must match what was checkpointed.
func (g *Gateway) Resume(ctx context.Context, checkpointID string, signer wallet.Signer) (*BlobRef, error) {
	cp, err := g.store.Get(ctx, checkpointID)
	if err != nil {
		return nil, err
	}

	enc, err := EncodeBlob(cp.Payload, g.nodes.Nodes())
	if err != nil {
		return nil, stepErr(StepEncode, err)
	}
	if enc.BlobID != cp.BlobID {
		return nil, stepErr(StepEncode, fmt.Errorf("checkpoint %s re-encoded to blob %s, expected %s",
			cp.ID, enc.BlobID, cp.BlobID))
	}

	g.log.Info(ctx, "resuming upload", "checkpoint", cp.ID, "state", string(cp.State))
	return g.run(ctx, cp, enc, signer)
}

// run advances the saga from the checkpoint's current state to
// completion. Steps are strictly sequential; each persists its result
// before the next begins.
func (g *Gateway) run(ctx context.Context, cp *Checkpoint, enc *EncodedBlob, signer wallet.Signer) (*BlobRef, error) {
	if cp.State == StateEncoded {
		if err := g.register(ctx, cp, enc, signer); err != nil {
			if errors.Is(err, errRegisterUnconfirmed) || cp.BlobObjectID != "" {
				// The transaction may have landed: a blob object could
				// exist on the ledger. Keep the checkpoint so Resume or
				// ReportOrphans can pick it up.
				g.log.Warn(ctx, "registration outcome uncertain, checkpoint kept",
					"checkpoint", cp.ID, "blob_id", cp.BlobID)
				return nil, err
			}
			// The transaction was rejected before submission or failed
			// on-chain; nothing exists to resume, so the checkpoint is
			// dropped.
			_ = g.store.Delete(ctx, cp.ID)
			return nil, err
		}
	}

	if cp.State == StateRegistered {
		if err := g.writeShards(ctx, cp, enc); err != nil {
			// A registered blob object now exists on the ledger with no
			// shards behind it. Keep the checkpoint for Resume.
			g.log.Warn(ctx, "shard write failed, registration left behind",
				"checkpoint", cp.ID, "blob_object", cp.BlobObjectID)
			return nil, err
		}
	}

	if cp.State == StateWritten {
		if err := g.certify(ctx, cp, signer); err != nil {
			return nil, err
		}
	}

	if err := g.store.Delete(ctx, cp.ID); err != nil {
		g.log.Warn(ctx, "removing completed checkpoint failed", "checkpoint", cp.ID, "error", err)
	}

	return &BlobRef{BlobID: cp.BlobID, Size: cp.Size, Hash: cp.BlobID}, nil
}

func (g *Gateway) register(ctx context.Context, cp *Checkpoint, enc *EncodedBlob, signer wallet.Signer) error {
	tx := txb.RegisterBlob(g.pkg, enc.BlobID, enc.Size, enc.RootHash, g.epochs)

	digest, err := signer.SignAndExecuteTransaction(ctx, tx)
	if err != nil {
		return stepErr(StepRegister, err)
	}

	effects, err := g.ledger.WaitForTransaction(ctx, digest)
	if err != nil {
		return stepErr(StepRegister, fmt.Errorf("%w: waiting for %s: %v", errRegisterUnconfirmed, digest, err))
	}
	if !effects.Succeeded() {
		return stepErr(StepRegister, fmt.Errorf("%w: %s", common.ErrLedgerRejected, effects.Error))
	}

	objectID, ok := effects.FindCreated("::blob::Blob")
	if !ok {
		return stepErr(StepRegister, fmt.Errorf("transaction %s created no blob object", digest))
	}

	cp.State = StateRegistered
	cp.BlobObjectID = objectID
	if err := g.store.Save(ctx, cp); err != nil {
		return stepErr(StepRegister, fmt.Errorf("%w: saving checkpoint after %s: %v", errRegisterUnconfirmed, digest, err))
	}
	g.log.Debug(ctx, "blob registered", "blob_id", cp.BlobID, "blob_object", objectID)
	return nil
}

func (g *Gateway) writeShards(ctx context.Context, cp *Checkpoint, enc *EncodedBlob) error {
	confirmations, err := g.nodes.WriteShards(ctx, cp.BlobObjectID, enc.Shards)
	if err != nil {
		return stepErr(StepWrite, err)
	}

	cp.State = StateWritten
	cp.Confirmations = confirmations
	if err := g.store.Save(ctx, cp); err != nil {
		return stepErr(StepWrite, fmt.Errorf("saving checkpoint: %w", err))
	}
	g.log.Debug(ctx, "shards written", "blob_id", cp.BlobID, "confirmations", len(confirmations))
	return nil
}

func (g *Gateway) certify(ctx context.Context, cp *Checkpoint, signer wallet.Signer) error {
	tx := txb.CertifyBlob(g.pkg, cp.BlobObjectID, cp.Confirmations)

	digest, err := signer.SignAndExecuteTransaction(ctx, tx)
	if err != nil {
		return stepErr(StepCertify, err)
	}

	effects, err := g.ledger.WaitForTransaction(ctx, digest)
	if err != nil {
		return stepErr(StepCertify, err)
	}
	if !effects.Succeeded() {
		return stepErr(StepCertify, fmt.Errorf("%w: %s", common.ErrLedgerRejected, effects.Error))
	}

	cp.State = StateCertified
	if err := g.store.Save(ctx, cp); err != nil {
		return stepErr(StepCertify, fmt.Errorf("saving checkpoint: %w", err))
	}
	g.log.Debug(ctx, "blob certified", "blob_id", cp.BlobID)
	return nil
}

// Download fetches a blob's bytes. An unreachable or missing blob is
// common.ErrBlobUnavailable, which callers must keep distinct from a
// decryption failure on its content.
func (g *Gateway) Download(ctx context.Context, blobID string) ([]byte, error) {
	data, err := g.nodes.ReadBlob(ctx, blobID)
	if err != nil {
		return nil, fmt.Errorf("%w: blob %s: %v", common.ErrBlobUnavailable, blobID, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: blob %s is empty", common.ErrBlobUnavailable, blobID)
	}
	return data, nil
}

// ReportOrphans logs checkpoints that never reached certification and
// returns them. A Registered checkpoint is an on-chain registration with
// no data behind it; there is no automatic cleanup.
func (g *Gateway) ReportOrphans(ctx context.Context) ([]*Checkpoint, error) {
	orphans, err := g.store.ListIncomplete(ctx)
	if err != nil {
		return nil, err
	}
	for _, cp := range orphans {
		g.log.Warn(ctx, "incomplete blob upload",
			"checkpoint", cp.ID, "blob_id", cp.BlobID, "state", string(cp.State),
			"blob_object", cp.BlobObjectID)
	}
	return orphans, nil
}
