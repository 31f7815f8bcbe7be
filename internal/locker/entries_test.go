package locker

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suilocker/suilocker/internal/common"
	"github.com/suilocker/suilocker/internal/cryptox"
	"github.com/suilocker/suilocker/internal/ledger"
	"github.com/suilocker/suilocker/internal/logging"
)

const defaultThreshold = 200 * 1024

// Argument positions in the create_entry call.
const (
	createArgName    = 1
	createArgHash    = 2
	createArgContent = 3
	createArgIsFile  = 10
	createArgSize    = 12
	createArgBlobID  = 13
)

func u64Ptr(v uint64) *uint64 { return &v }

func entryFixture(owner string) *Entry {
	return &Entry{
		ID:        testAddr(0x20),
		Owner:     owner,
		VaultID:   testAddr(0x10),
		CreatedAt: time.UnixMilli(1700000000000).UTC(),
		UpdatedAt: time.UnixMilli(1700000001000).UTC(),
	}
}

func TestEntryCreateInlineThenRead(t *testing.T) {
	owner := testAddr(1)
	plaintext := []byte("hello world")

	lc := newFakeLedger()
	lc.effects = &ledger.Effects{
		Status:  "success",
		Created: []ledger.ObjectChange{{ObjectID: testAddr(0x20), ObjectType: "0xpkg::locker::Entry"}},
	}
	signer := &fakeSigner{addr: owner}
	blobs := newFakeBlobs()
	s := newTestEntryService(lc, signer, blobs, defaultThreshold)

	mu, err := s.Create(context.Background(), testAddr(0x10), EntryInput{
		Name:      "greeting",
		Plaintext: plaintext,
		Tags:      []string{"demo"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, mu.Status)
	assert.Equal(t, testAddr(0x20), mu.CreatedID)
	assert.Zero(t, blobs.uploads, "small content must stay inline")

	require.Len(t, signer.executed, 1)
	tx := signer.executed[0]
	require.Equal(t, "create_entry", tx.Function)
	assert.Equal(t, cryptox.Digest(plaintext), tx.Args[createArgHash].Str)
	assert.True(t, tx.Args[createArgBlobID].IsNone())

	// the submitted envelope decrypts back to the original plaintext
	envelope := tx.Args[createArgContent].Str
	got, err := cryptox.Decrypt(envelope, testKey)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)

	// read it back through the full decode+decrypt path
	e := entryFixture(owner)
	e.Name = "greeting"
	e.Hash = tx.Args[createArgHash].Str
	e.Content = envelope
	e.Tags = []string{"demo"}
	lc.inspect["get_entry/"+e.ID] = inspectResult(encodeEntry(t, e))

	fetched, err := s.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, plaintext, fetched.Plaintext)
	assert.Equal(t, "greeting", fetched.Name)
}

// Ciphertext size decides routing: 16 bytes of plaintext pad to one
// block (48 ciphertext bytes with the IV), 32 bytes pad to exactly the
// 64-byte threshold.
func TestEntryCreateThresholdBoundary(t *testing.T) {
	owner := testAddr(1)
	lc := newFakeLedger()
	signer := &fakeSigner{addr: owner}
	blobs := newFakeBlobs()
	s := newTestEntryService(lc, signer, blobs, 64)

	_, err := s.Create(context.Background(), testAddr(0x10), EntryInput{
		Name:      "below",
		Plaintext: bytes.Repeat([]byte{'a'}, 16),
	})
	require.NoError(t, err)
	assert.Zero(t, blobs.uploads)
	assert.True(t, signer.executed[0].Args[createArgBlobID].IsNone())

	_, err = s.Create(context.Background(), testAddr(0x10), EntryInput{
		Name:      "at threshold",
		Plaintext: bytes.Repeat([]byte{'a'}, 32),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, blobs.uploads)
	tx := signer.executed[1]
	require.False(t, tx.Args[createArgBlobID].IsNone())
	assert.Equal(t, "blob-1", *tx.Args[createArgBlobID].OptStr)
	assert.Equal(t, "blob-1", tx.Args[createArgContent].Str)
}

// Same boundary at the stock 200 KiB threshold: 204767 plaintext bytes
// pad to a 204784-byte ciphertext and stay inline, 204783 bytes pad to
// exactly 204800 and go to the blob store.
func TestEntryCreateThresholdBoundaryDefault(t *testing.T) {
	owner := testAddr(1)
	lc := newFakeLedger()
	signer := &fakeSigner{addr: owner}
	blobs := newFakeBlobs()
	s := newTestEntryService(lc, signer, blobs, defaultThreshold)

	_, err := s.Create(context.Background(), testAddr(0x10), EntryInput{
		Name:      "below",
		Plaintext: bytes.Repeat([]byte{'a'}, 204767),
	})
	require.NoError(t, err)
	assert.Zero(t, blobs.uploads)
	assert.True(t, signer.executed[0].Args[createArgBlobID].IsNone())

	_, err = s.Create(context.Background(), testAddr(0x10), EntryInput{
		Name:      "at threshold",
		Plaintext: bytes.Repeat([]byte{'a'}, 204783),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, blobs.uploads)
	require.False(t, signer.executed[1].Args[createArgBlobID].IsNone())
}

func TestEntryCreateLargeFileGoesToBlob(t *testing.T) {
	owner := testAddr(1)
	plaintext := bytes.Repeat([]byte{0x42}, 300*1024)

	lc := newFakeLedger()
	signer := &fakeSigner{addr: owner}
	blobs := newFakeBlobs()
	s := newTestEntryService(lc, signer, blobs, defaultThreshold)

	mu, err := s.Create(context.Background(), testAddr(0x10), EntryInput{
		Name:      "backup.tar",
		Plaintext: plaintext,
		IsFile:    true,
		Filename:  strPtr("backup.tar"),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, mu.Status)
	assert.Equal(t, 1, blobs.uploads)

	tx := signer.executed[0]
	assert.True(t, tx.Args[createArgIsFile].Bool)
	require.False(t, tx.Args[createArgSize].IsNone())
	assert.Equal(t, uint64(len(plaintext)), *tx.Args[createArgSize].OptU64)
	require.False(t, tx.Args[createArgBlobID].IsNone())

	// round trip through download + decrypt
	e := entryFixture(owner)
	e.Name = "backup.tar"
	e.Hash = cryptox.Digest(plaintext)
	e.Content = *tx.Args[createArgBlobID].OptStr
	e.IsFile = true
	e.Filename = strPtr("backup.tar")
	e.FileSize = u64Ptr(uint64(len(plaintext)))
	e.WalrusBlobID = tx.Args[createArgBlobID].OptStr
	lc.inspect["get_entry/"+e.ID] = inspectResult(encodeEntry(t, e))

	fetched, err := s.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, plaintext, fetched.Plaintext)
}

func TestEntryCreateUnauthenticated(t *testing.T) {
	lc := newFakeLedger()
	signer := &fakeSigner{addr: testAddr(1)}
	s := NewEntryService(testPkg, lc, signer, newFakeBlobs(), nil, "", defaultThreshold, logging.NewNop())

	mu, err := s.Create(context.Background(), testAddr(0x10), EntryInput{
		Name:      "x",
		Plaintext: []byte("secret"),
	})
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
	assert.Equal(t, StatusFailed, mu.Status)
	assert.Empty(t, signer.executed, "no network traffic before encryption succeeds")
}

func TestEntryUpdateContentRouting(t *testing.T) {
	owner := testAddr(1)
	lc := newFakeLedger()
	signer := &fakeSigner{addr: owner}
	s := newTestEntryService(lc, signer, newFakeBlobs(), defaultThreshold)

	// no plaintext in the patch: content option args stay None
	_, err := s.Update(context.Background(), testAddr(0x20), EntryPatch{Name: strPtr("renamed")})
	require.NoError(t, err)
	tx := signer.executed[0]
	require.Equal(t, "update_entry", tx.Function)
	assert.True(t, tx.Args[2].IsNone(), "hash untouched")
	assert.True(t, tx.Args[3].IsNone(), "content untouched")
	assert.True(t, tx.Args[12].IsNone(), "blob id untouched")

	// new inline plaintext: blob id is explicitly cleared, not left alone
	_, err = s.Update(context.Background(), testAddr(0x20), EntryPatch{Plaintext: []byte("new secret")})
	require.NoError(t, err)
	tx = signer.executed[1]
	require.False(t, tx.Args[2].IsNone())
	require.False(t, tx.Args[3].IsNone())
	require.False(t, tx.Args[12].IsNone())
	assert.Equal(t, "", *tx.Args[12].OptStr)

	got, err := cryptox.Decrypt(*tx.Args[3].OptStr, testKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("new secret"), got)
}

func TestEntryUpdateFileSizeOnlyForFiles(t *testing.T) {
	owner := testAddr(1)
	lc := newFakeLedger()
	signer := &fakeSigner{addr: owner}
	s := newTestEntryService(lc, signer, newFakeBlobs(), defaultThreshold)

	// text entry: replacing the content must not record a file size
	_, err := s.Update(context.Background(), testAddr(0x20), EntryPatch{Plaintext: []byte("new note")})
	require.NoError(t, err)
	tx := signer.executed[0]
	require.Equal(t, "update_entry", tx.Function)
	require.False(t, tx.Args[3].IsNone(), "content replaced")
	assert.True(t, tx.Args[11].IsNone(), "file size untouched for text content")

	// file entry: the caller marks the patch and the size refreshes
	_, err = s.Update(context.Background(), testAddr(0x20), EntryPatch{Plaintext: []byte("file body"), IsFile: true})
	require.NoError(t, err)
	tx = signer.executed[1]
	require.False(t, tx.Args[11].IsNone())
	assert.Equal(t, uint64(len("file body")), *tx.Args[11].OptU64)
}

func TestEntryGetBlobUnavailable(t *testing.T) {
	owner := testAddr(1)
	e := entryFixture(owner)
	e.Name = "gone"
	e.Hash = cryptox.Digest([]byte("data"))
	e.Content = "missing-blob"
	e.WalrusBlobID = strPtr("missing-blob")

	lc := newFakeLedger()
	lc.inspect["get_entry/"+e.ID] = inspectResult(encodeEntry(t, e))
	s := newTestEntryService(lc, &fakeSigner{addr: owner}, newFakeBlobs(), defaultThreshold)

	_, err := s.Get(context.Background(), e.ID)
	require.ErrorIs(t, err, common.ErrBlobUnavailable)
}

func TestEntryGetDigestMismatch(t *testing.T) {
	owner := testAddr(1)
	envelope, err := cryptox.Encrypt([]byte("actual content"), testKey)
	require.NoError(t, err)

	e := entryFixture(owner)
	e.Name = "tampered"
	e.Hash = cryptox.Digest([]byte("claimed content"))
	e.Content = envelope

	lc := newFakeLedger()
	lc.inspect["get_entry/"+e.ID] = inspectResult(encodeEntry(t, e))
	s := newTestEntryService(lc, &fakeSigner{addr: owner}, newFakeBlobs(), defaultThreshold)

	_, err = s.Get(context.Background(), e.ID)
	require.ErrorIs(t, err, common.ErrDecrypt)
}

func TestEntryListPartialFailure(t *testing.T) {
	owner := testAddr(1)
	lc := newFakeLedger()
	s := newTestEntryService(lc, &fakeSigner{addr: owner}, newFakeBlobs(), defaultThreshold)

	var ids []string
	for i := byte(0); i < 4; i++ {
		e := entryFixture(owner)
		e.ID = testAddr(0x20 + i)
		e.Name = "entry"
		plaintext := []byte{i}
		e.Hash = cryptox.Digest(plaintext)
		env, err := cryptox.Encrypt(plaintext, testKey)
		require.NoError(t, err)
		e.Content = env
		lc.inspect["get_entry/"+e.ID] = inspectResult(encodeEntry(t, e))
		ids = append(ids, e.ID)
	}
	// one entry written under another wallet's key: decryption (or the
	// digest check behind it) must fail for this item only
	foreign := entryFixture(owner)
	foreign.ID = testAddr(0x30)
	foreign.Name = "foreign"
	foreign.Hash = cryptox.Digest([]byte("theirs"))
	foreignEnv, err := cryptox.Encrypt([]byte("theirs"), "someone-elses-key")
	require.NoError(t, err)
	foreign.Content = foreignEnv
	lc.inspect["get_entry/"+foreign.ID] = inspectResult(encodeEntry(t, foreign))
	ids = append(ids, foreign.ID)
	lc.inspect["list_entries"] = inspectResult(encodeIDs(t, ids...))

	entries, report, err := s.List(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, foreign.ID, report.Failures[0].ID)
}

func TestEntryListFilterAndSort(t *testing.T) {
	owner := testAddr(1)
	lc := newFakeLedger()
	s := newTestEntryService(lc, &fakeSigner{addr: owner}, newFakeBlobs(), defaultThreshold)

	names := []string{"zebra", "Äpfel", "banana"}
	var ids []string
	for i, name := range names {
		e := entryFixture(owner)
		e.ID = testAddr(0x20 + byte(i))
		e.Name = name
		plaintext := []byte(name)
		e.Hash = cryptox.Digest(plaintext)
		env, err := cryptox.Encrypt(plaintext, testKey)
		require.NoError(t, err)
		e.Content = env
		if name == "banana" {
			e.Tags = []string{"fruit"}
		}
		lc.inspect["get_entry/"+e.ID] = inspectResult(encodeEntry(t, e))
		ids = append(ids, e.ID)
	}
	lc.inspect["list_entries"] = inspectResult(encodeIDs(t, ids...))

	entries, _, err := s.List(context.Background(), nil, &Sort{Field: SortByName})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// collation, not byte order: Ä sorts with A, ahead of b and z
	assert.Equal(t, "Äpfel", entries[0].Name)
	assert.Equal(t, "banana", entries[1].Name)
	assert.Equal(t, "zebra", entries[2].Name)

	tagged, _, err := s.List(context.Background(), &Filter{Tags: []string{"fruit"}}, nil)
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "banana", tagged[0].Name)
}
