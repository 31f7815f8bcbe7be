package locker

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/suilocker/suilocker/internal/cache"
	"github.com/suilocker/suilocker/internal/common"
	"github.com/suilocker/suilocker/internal/ledger"
	"github.com/suilocker/suilocker/internal/logging"
	"github.com/suilocker/suilocker/internal/txb"
	"github.com/suilocker/suilocker/internal/wallet"
	"github.com/suilocker/suilocker/internal/walrus"
)

const (
	testPkg = "0xpkg"
	testKey = "dGVzdC1sb2NrZXIta2V5"
)

// testAddr builds a full-width address so encode/decode round-trips
// compare equal.
func testAddr(n byte) string {
	b := make([]byte, 32)
	b[31] = n
	return "0x" + hex.EncodeToString(b)
}

type fakeSigner struct {
	addr     string
	execErr  error
	executed []*txb.Transaction
}

func (f *fakeSigner) Address() string { return f.addr }

func (f *fakeSigner) SignPersonalMessage(context.Context, []byte) ([]byte, error) {
	return []byte("sig-" + f.addr), nil
}

func (f *fakeSigner) SignAndExecuteTransaction(_ context.Context, tx *txb.Transaction) (string, error) {
	if f.execErr != nil {
		return "", f.execErr
	}
	f.executed = append(f.executed, tx)
	return fmt.Sprintf("digest-%d", len(f.executed)), nil
}

// fakeLedger serves canned dev-inspect results keyed by function name,
// or by "function/objectID" when the first argument is an object ref.
type fakeLedger struct {
	inspect     map[string]*ledger.InspectResult
	inspectErr  map[string]error
	inspections int
	effects     *ledger.Effects
	waitErr     error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		inspect:    make(map[string]*ledger.InspectResult),
		inspectErr: make(map[string]error),
	}
}

func inspectKey(tx *txb.Transaction) string {
	if len(tx.Args) > 0 && tx.Args[0].Kind == txb.KindObject {
		return tx.Function + "/" + tx.Args[0].Str
	}
	return tx.Function
}

func (f *fakeLedger) DevInspect(_ context.Context, _ string, tx *txb.Transaction) (*ledger.InspectResult, error) {
	f.inspections++
	key := inspectKey(tx)
	if err := f.inspectErr[key]; err != nil {
		return nil, err
	}
	if res, ok := f.inspect[key]; ok {
		return res, nil
	}
	return nil, errors.New("unexpected inspect " + key)
}

func (f *fakeLedger) WaitForTransaction(_ context.Context, digest string) (*ledger.Effects, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	if f.effects != nil {
		e := *f.effects
		e.Digest = digest
		return &e, nil
	}
	return &ledger.Effects{Digest: digest, Status: "success"}, nil
}

// fakeBlobs stores uploaded ciphertext in memory under synthetic ids.
type fakeBlobs struct {
	stored    map[string][]byte
	uploads   int
	uploadErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{stored: make(map[string][]byte)}
}

func (f *fakeBlobs) Upload(_ context.Context, ciphertextHex string, _ wallet.Signer) (*walrus.BlobRef, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	raw, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return nil, err
	}
	f.uploads++
	id := fmt.Sprintf("blob-%d", f.uploads)
	f.stored[id] = raw
	return &walrus.BlobRef{BlobID: id, Size: uint64(len(raw)), Hash: id}, nil
}

func (f *fakeBlobs) Download(_ context.Context, blobID string) ([]byte, error) {
	raw, ok := f.stored[blobID]
	if !ok {
		return nil, common.ErrBlobUnavailable
	}
	return raw, nil
}

// Fixture encoders mirror the ledger-side record layout. They live only
// in tests: the production client decodes, never encodes, records.

func encodeVault(t *testing.T, v *Vault) []byte {
	t.Helper()
	w := ledger.NewWriter()
	w.WriteVersion(vaultSchema.Version)
	require.NoError(t, w.WriteAddress(v.ID))
	require.NoError(t, w.WriteAddress(v.Owner))
	w.WriteString(v.Name)
	w.WriteOptionString(v.Description)
	w.WriteOptionString(v.ImageURL)
	w.WriteU64(uint64(v.CreatedAt.UnixMilli()))
	w.WriteU64(uint64(v.UpdatedAt.UnixMilli()))
	w.WriteU64(v.EntryCount)
	return w.Bytes()
}

func encodeEntry(t *testing.T, e *Entry) []byte {
	t.Helper()
	w := ledger.NewWriter()
	w.WriteVersion(entrySchema.Version)
	require.NoError(t, w.WriteAddress(e.ID))
	require.NoError(t, w.WriteAddress(e.Owner))
	require.NoError(t, w.WriteAddress(e.VaultID))
	w.WriteString(e.Name)
	w.WriteString(e.Hash)
	w.WriteString(e.Content)
	w.WriteOptionString(e.EntryType)
	w.WriteOptionString(e.Description)
	w.WriteOptionString(e.Notes)
	w.WriteOptionString(e.ImageURL)
	w.WriteOptionString(e.Link)
	w.WriteStringVector(e.Tags)
	w.WriteBool(e.IsFile)
	w.WriteOptionString(e.Filename)
	w.WriteOptionU64(e.FileSize)
	w.WriteOptionString(e.WalrusBlobID)
	w.WriteU64(uint64(e.CreatedAt.UnixMilli()))
	w.WriteU64(uint64(e.UpdatedAt.UnixMilli()))
	return w.Bytes()
}

func encodeIDs(t *testing.T, ids ...string) []byte {
	t.Helper()
	w := ledger.NewWriter()
	w.WriteULEB(uint64(len(ids)))
	for _, id := range ids {
		require.NoError(t, w.WriteAddress(id))
	}
	return w.Bytes()
}

func inspectResult(values ...[]byte) *ledger.InspectResult {
	return &ledger.InspectResult{ReturnValues: values}
}

func newTestVaultService(lc *fakeLedger, signer *fakeSigner) *VaultService {
	return NewVaultService(testPkg, lc, signer, cache.New(), testKey, logging.NewNop())
}

func newTestEntryService(lc *fakeLedger, signer *fakeSigner, blobs *fakeBlobs, threshold int) *EntryService {
	return NewEntryService(testPkg, lc, signer, blobs, cache.New(), testKey, threshold, logging.NewNop())
}
