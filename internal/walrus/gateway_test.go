package walrus

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/suilocker/suilocker/internal/common"
	"github.com/suilocker/suilocker/internal/ledger"
	"github.com/suilocker/suilocker/internal/logging"
	"github.com/suilocker/suilocker/internal/txb"
)

const testPkg = "0xpkg"

type fakeNodes struct {
	nodes      []string
	writeErr   error
	readData   []byte
	readErr    error
	writeCalls int
}

func (f *fakeNodes) Nodes() []string { return f.nodes }

func (f *fakeNodes) WriteShards(_ context.Context, blobObjectID string, shards []Shard) ([]string, error) {
	f.writeCalls++
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	confs := make([]string, len(shards))
	for i, s := range shards {
		confs[i] = fmt.Sprintf("conf-%s-%d-%s", s.Node, s.Index, blobObjectID)
	}
	return confs, nil
}

func (f *fakeNodes) ReadBlob(context.Context, string) ([]byte, error) {
	return f.readData, f.readErr
}

type fakeLedger struct {
	effects  map[string]*ledger.Effects
	waitErr  error
	inspects []*txb.Transaction
}

func (f *fakeLedger) DevInspect(_ context.Context, _ string, tx *txb.Transaction) (*ledger.InspectResult, error) {
	f.inspects = append(f.inspects, tx)
	return &ledger.InspectResult{}, nil
}

func (f *fakeLedger) WaitForTransaction(_ context.Context, digest string) (*ledger.Effects, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	if e, ok := f.effects[digest]; ok {
		return e, nil
	}
	return &ledger.Effects{Digest: digest, Status: "success"}, nil
}

// sagaSigner records executed transactions and can fail per function.
type sagaSigner struct {
	executed []*txb.Transaction
	failOn   string
}

func (s *sagaSigner) Address() string { return "0xme" }

func (s *sagaSigner) SignPersonalMessage(context.Context, []byte) ([]byte, error) {
	return []byte("sig"), nil
}

func (s *sagaSigner) SignAndExecuteTransaction(_ context.Context, tx *txb.Transaction) (string, error) {
	if tx.Function == s.failOn {
		return "", errors.New("user rejected signature")
	}
	s.executed = append(s.executed, tx)
	return "digest-" + tx.Function, nil
}

func newTestGateway(t *testing.T, nodes *fakeNodes, lc ledger.Client) (*Gateway, *SQLiteStore) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewSQLiteStore(db)
	require.NoError(t, store.Init(context.Background()))

	registerEffects := &ledger.Effects{
		Digest: "digest-register",
		Status: "success",
		Created: []ledger.ObjectChange{
			{ObjectID: "0xblobobj", ObjectType: testPkg + "::blob::Blob"},
		},
	}
	if fl, ok := lc.(*fakeLedger); ok && fl.effects == nil {
		fl.effects = map[string]*ledger.Effects{"digest-register": registerEffects}
	}

	return NewGateway(testPkg, 5, nodes, lc, store, logging.NewNop()), store
}

func testCiphertext() string {
	return hex.EncodeToString([]byte("pretend this is a large encrypted payload"))
}

func TestUpload_HappyPath(t *testing.T) {
	nodes := &fakeNodes{nodes: []string{"n1", "n2"}}
	signer := &sagaSigner{}
	gw, store := newTestGateway(t, nodes, &fakeLedger{})

	ref, err := gw.Upload(context.Background(), testCiphertext(), signer)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.NotEmpty(t, ref.BlobID)
	assert.Equal(t, ref.BlobID, ref.Hash, "blob id doubles as content hash")
	assert.Equal(t, uint64(len("pretend this is a large encrypted payload")), ref.Size)

	// register then certify, in order.
	require.Len(t, signer.executed, 2)
	assert.Equal(t, "register", signer.executed[0].Function)
	assert.Equal(t, "certify", signer.executed[1].Function)
	assert.Equal(t, 1, nodes.writeCalls)

	// Completed uploads leave no checkpoint behind.
	incomplete, err := store.ListIncomplete(context.Background())
	require.NoError(t, err)
	assert.Empty(t, incomplete)
}

func TestUpload_MalformedHexFailsInEncodeStep(t *testing.T) {
	gw, _ := newTestGateway(t, &fakeNodes{nodes: []string{"n1"}}, &fakeLedger{})

	_, err := gw.Upload(context.Background(), "zz-not-hex", &sagaSigner{})
	require.Error(t, err)

	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StepEncode, se.Step)
	assert.True(t, errors.Is(err, common.ErrMalformedEnvelope))
}

func TestUpload_RegisterRejectionLeavesNoCheckpoint(t *testing.T) {
	signer := &sagaSigner{failOn: "register"}
	gw, store := newTestGateway(t, &fakeNodes{nodes: []string{"n1"}}, &fakeLedger{})

	_, err := gw.Upload(context.Background(), testCiphertext(), signer)
	require.Error(t, err)

	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StepRegister, se.Step)

	// Nothing reached the blob network, so retry-from-scratch is safe
	// and no checkpoint survives.
	incomplete, err := store.ListIncomplete(context.Background())
	require.NoError(t, err)
	assert.Empty(t, incomplete)
}

func TestUpload_RegisterFinalityTimeoutKeepsCheckpoint(t *testing.T) {
	signer := &sagaSigner{}
	lc := &fakeLedger{waitErr: errors.New("finality wait timed out")}
	gw, store := newTestGateway(t, &fakeNodes{nodes: []string{"n1"}}, lc)

	_, err := gw.Upload(context.Background(), testCiphertext(), signer)
	require.Error(t, err)

	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StepRegister, se.Step)

	// The transaction was submitted; the blob object may exist on the
	// ledger, so the checkpoint must survive for Resume.
	require.Len(t, signer.executed, 1)
	incomplete, err := store.ListIncomplete(context.Background())
	require.NoError(t, err)
	require.Len(t, incomplete, 1)
	assert.Equal(t, StateEncoded, incomplete[0].State)

	// Finality recovers; the same checkpoint completes the saga.
	lc.waitErr = nil
	ref, err := gw.Resume(context.Background(), incomplete[0].ID, signer)
	require.NoError(t, err)
	require.NotNil(t, ref)
}

func TestUpload_ShardWriteFailureKeepsRegisteredCheckpoint(t *testing.T) {
	nodes := &fakeNodes{nodes: []string{"n1"}, writeErr: errors.New("node unreachable")}
	gw, store := newTestGateway(t, nodes, &fakeLedger{})

	_, err := gw.Upload(context.Background(), testCiphertext(), &sagaSigner{})
	require.Error(t, err)

	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StepWrite, se.Step)

	incomplete, err := store.ListIncomplete(context.Background())
	require.NoError(t, err)
	require.Len(t, incomplete, 1)
	assert.Equal(t, StateRegistered, incomplete[0].State)
	assert.Equal(t, "0xblobobj", incomplete[0].BlobObjectID)
}

func TestResume_ContinuesFromWriteStep(t *testing.T) {
	nodes := &fakeNodes{nodes: []string{"n1"}, writeErr: errors.New("node unreachable")}
	signer := &sagaSigner{}
	gw, store := newTestGateway(t, nodes, &fakeLedger{})

	_, err := gw.Upload(context.Background(), testCiphertext(), signer)
	require.Error(t, err)

	incomplete, err := store.ListIncomplete(context.Background())
	require.NoError(t, err)
	require.Len(t, incomplete, 1)

	// Node recovers; resume must not register a second time.
	nodes.writeErr = nil
	registersBefore := len(signer.executed)

	ref, err := gw.Resume(context.Background(), incomplete[0].ID, signer)
	require.NoError(t, err)
	assert.Equal(t, incomplete[0].BlobID, ref.BlobID)

	for _, tx := range signer.executed[registersBefore:] {
		assert.NotEqual(t, "register", tx.Function, "resume must skip the register step")
	}

	incomplete, err = store.ListIncomplete(context.Background())
	require.NoError(t, err)
	assert.Empty(t, incomplete)
}

func TestResume_CertifyFailureThenRetry(t *testing.T) {
	signer := &sagaSigner{failOn: "certify"}
	gw, store := newTestGateway(t, &fakeNodes{nodes: []string{"n1"}}, &fakeLedger{})

	_, err := gw.Upload(context.Background(), testCiphertext(), signer)
	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StepCertify, se.Step)

	incomplete, err := store.ListIncomplete(context.Background())
	require.NoError(t, err)
	require.Len(t, incomplete, 1)
	assert.Equal(t, StateWritten, incomplete[0].State)

	signer.failOn = ""
	ref, err := gw.Resume(context.Background(), incomplete[0].ID, signer)
	require.NoError(t, err)
	require.NotNil(t, ref)
}

func TestResume_UnknownCheckpoint(t *testing.T) {
	gw, _ := newTestGateway(t, &fakeNodes{nodes: []string{"n1"}}, &fakeLedger{})
	_, err := gw.Resume(context.Background(), "missing", &sagaSigner{})
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestDownload_UnavailableBlob(t *testing.T) {
	nodes := &fakeNodes{nodes: []string{"n1"}, readErr: errors.New("all nodes down")}
	gw, _ := newTestGateway(t, nodes, &fakeLedger{})

	_, err := gw.Download(context.Background(), "blob-1")
	assert.True(t, errors.Is(err, common.ErrBlobUnavailable))

	nodes.readErr = nil
	nodes.readData = nil
	_, err = gw.Download(context.Background(), "blob-1")
	assert.True(t, errors.Is(err, common.ErrBlobUnavailable))
}

func TestDownload_ReturnsBytes(t *testing.T) {
	nodes := &fakeNodes{nodes: []string{"n1"}, readData: []byte{1, 2, 3}}
	gw, _ := newTestGateway(t, nodes, &fakeLedger{})

	data, err := gw.Download(context.Background(), "blob-1")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestReportOrphans(t *testing.T) {
	nodes := &fakeNodes{nodes: []string{"n1"}, writeErr: errors.New("down")}
	gw, _ := newTestGateway(t, nodes, &fakeLedger{})

	_, _ = gw.Upload(context.Background(), testCiphertext(), &sagaSigner{})

	orphans, err := gw.ReportOrphans(context.Background())
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, StateRegistered, orphans[0].State)
}
