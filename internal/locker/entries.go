package locker

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/suilocker/suilocker/internal/cache"
	"github.com/suilocker/suilocker/internal/common"
	"github.com/suilocker/suilocker/internal/cryptox"
	"github.com/suilocker/suilocker/internal/ledger"
	"github.com/suilocker/suilocker/internal/logging"
	"github.com/suilocker/suilocker/internal/txb"
	"github.com/suilocker/suilocker/internal/wallet"
	"github.com/suilocker/suilocker/internal/walrus"
)

const (
	entryTypeSuffix = "::locker::Entry"
	entityEntries   = "entries"
)

// BlobStore is the slice of the blob gateway the entry service drives.
type BlobStore interface {
	Upload(ctx context.Context, ciphertextHex string, signer wallet.Signer) (*walrus.BlobRef, error)
	Download(ctx context.Context, blobID string) ([]byte, error)
}

// EntryInput carries the caller-supplied fields for entry creation.
// Plaintext is the raw content; the service hashes and encrypts it,
// the caller never sees the envelope.
type EntryInput struct {
	Name        string
	Plaintext   []byte
	EntryType   *string
	Description *string
	Notes       *string
	ImageURL    *string
	Link        *string
	Tags        []string
	IsFile      bool
	Filename    *string
}

// EntryPatch carries option-wrapped fields for a partial entry update.
// Nil means "leave unchanged"; a pointer to the zero value clears the
// field. Plaintext follows the same convention: nil leaves the stored
// content alone, a non-nil (possibly empty) slice replaces it.
type EntryPatch struct {
	Name        *string
	Plaintext   []byte
	EntryType   *string
	Description *string
	Notes       *string
	ImageURL    *string
	Link        *string
	Tags        *[]string
	Filename    *string

	// IsFile marks the replacement Plaintext as file content, which
	// refreshes the stored file size alongside it. Text entries keep
	// it false so their size is never recorded.
	IsFile bool
}

// EntryService manages entry reads and writes for one session. Content
// is encrypted before it leaves this service and decrypted on the way
// back in; the inline/blob routing decision is made here against the
// configured threshold.
type EntryService struct {
	pkg       string
	ledger    ledger.Client
	signer    wallet.Signer
	blobs     BlobStore
	cache     *cache.Cache
	log       logging.Logger
	lockerKey string
	threshold int
}

func NewEntryService(pkg string, lc ledger.Client, signer wallet.Signer, blobs BlobStore, c *cache.Cache, lockerKey string, threshold int, log logging.Logger) *EntryService {
	return &EntryService{
		pkg:       pkg,
		ledger:    lc,
		signer:    signer,
		blobs:     blobs,
		cache:     c,
		log:       log.With("component", "entries"),
		lockerKey: lockerKey,
		threshold: threshold,
	}
}

func (s *EntryService) cacheKey() string {
	return cache.Key(entityEntries, s.signer.Address(), s.lockerKey)
}

// sealed is the outcome of hashing, encrypting, and routing one payload.
type sealed struct {
	hash    string
	content string
	blobID  *string
	size    uint64
}

// seal hashes the plaintext, encrypts it, and routes the ciphertext:
// envelopes at or above the threshold go to the blob network and the
// entry stores the blob id, smaller ones are embedded inline. The
// threshold compares ciphertext bytes, not envelope hex length.
func (s *EntryService) seal(ctx context.Context, plaintext []byte) (*sealed, error) {
	if s.lockerKey == "" {
		return nil, common.ErrNotAuthenticated
	}

	out := &sealed{
		hash: cryptox.Digest(plaintext),
		size: uint64(len(plaintext)),
	}

	envelope, err := cryptox.Encrypt(plaintext, s.lockerKey)
	if err != nil {
		return nil, fmt.Errorf("encrypting content: %w", err)
	}

	if len(envelope)/2 >= s.threshold {
		ref, err := s.blobs.Upload(ctx, envelope, s.signer)
		if err != nil {
			return nil, fmt.Errorf("uploading content blob: %w", err)
		}
		out.content = ref.BlobID
		out.blobID = &ref.BlobID
		return out, nil
	}

	out.content = envelope
	return out, nil
}

// open reverses seal for a decoded entry: fetches the blob when the
// content is off-chain, decrypts the envelope, and verifies the stored
// plaintext digest before handing the plaintext back.
func (s *EntryService) open(ctx context.Context, e *Entry) error {
	if s.lockerKey == "" {
		return common.ErrNotAuthenticated
	}

	envelope := e.Content
	if e.WalrusBlobID != nil && *e.WalrusBlobID != "" {
		raw, err := s.blobs.Download(ctx, *e.WalrusBlobID)
		if err != nil {
			return fmt.Errorf("fetching content blob %s: %w", *e.WalrusBlobID, err)
		}
		envelope = hex.EncodeToString(raw)
	}

	plaintext, err := cryptox.Decrypt(envelope, s.lockerKey)
	if err != nil {
		return fmt.Errorf("decrypting entry %s: %w", e.ID, err)
	}
	if cryptox.Digest(plaintext) != e.Hash {
		return fmt.Errorf("entry %s: %w: content digest mismatch", e.ID, common.ErrDecrypt)
	}
	e.Plaintext = plaintext
	return nil
}

// List returns the session's entries, decrypted, with per-item failures
// isolated into the report. filter and sorting apply to the successes
// only; nil filter and sort mean "everything, ledger order".
func (s *EntryService) List(ctx context.Context, filter *Filter, sortBy *Sort) ([]*Entry, *ListReport, error) {
	all, report, err := s.listAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	// copy before filtering and sorting so the cached slice keeps its
	// order
	entries := make([]*Entry, 0, len(all))
	for _, e := range all {
		if filter == nil || filter.Match(e) {
			entries = append(entries, e)
		}
	}
	if sortBy != nil {
		sortBy.Apply(entries)
	}
	return entries, report, nil
}

func (s *EntryService) listAll(ctx context.Context) ([]*Entry, *ListReport, error) {
	if v, ok := s.cache.Get(s.cacheKey()); ok {
		cached := v.([]*Entry)
		return cached, &ListReport{Total: len(cached)}, nil
	}

	owner := s.signer.Address()
	res, err := s.ledger.DevInspect(ctx, owner, txb.ListEntries(s.pkg, owner))
	if err != nil {
		return nil, nil, fmt.Errorf("listing entries: %w", err)
	}
	if len(res.ReturnValues) == 0 {
		return nil, nil, fmt.Errorf("listing entries: %w: empty return", common.ErrMalformedRecord)
	}
	ids, err := decodeIDList(res.ReturnValues[0])
	if err != nil {
		return nil, nil, fmt.Errorf("decoding entry id list: %w", err)
	}

	report := &ListReport{Total: len(ids)}
	entries := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		e, err := s.Get(ctx, id)
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, ItemResult{ID: id, Err: err})
			s.log.Warn(ctx, "entry fetch failed", "id", id, "error", err)
			continue
		}
		entries = append(entries, e)
	}

	if report.Failed == 0 {
		s.cache.Set(s.cacheKey(), entries)
	}
	return entries, report, nil
}

// Get fetches, decodes, and decrypts a single entry.
func (s *EntryService) Get(ctx context.Context, entryID string) (*Entry, error) {
	if entryID == "" {
		return nil, fmt.Errorf("%w: entry id is required", common.ErrValidation)
	}
	res, err := s.ledger.DevInspect(ctx, s.signer.Address(), txb.GetEntry(s.pkg, entryID))
	if err != nil {
		return nil, fmt.Errorf("fetching entry %s: %w", entryID, err)
	}
	if len(res.ReturnValues) == 0 {
		return nil, fmt.Errorf("entry %s: %w", entryID, common.ErrNotFound)
	}
	e, err := decodeEntry(res.ReturnValues[0])
	if err != nil {
		return nil, fmt.Errorf("decoding entry %s: %w", entryID, err)
	}
	if err := s.open(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Create seals the plaintext and writes a new entry into vaultID.
func (s *EntryService) Create(ctx context.Context, vaultID string, in EntryInput) (*Mutation, error) {
	mu := newMutation(KindCreate)
	if vaultID == "" {
		return mu, mu.fail(fmt.Errorf("%w: vault id is required", common.ErrValidation))
	}
	if strings.TrimSpace(in.Name) == "" {
		return mu, mu.fail(fmt.Errorf("%w: entry name is required", common.ErrValidation))
	}

	sl, err := s.seal(ctx, in.Plaintext)
	if err != nil {
		return mu, mu.fail(err)
	}

	fields := txb.EntryFields{
		Name:         in.Name,
		Hash:         sl.hash,
		Content:      sl.content,
		EntryType:    in.EntryType,
		Description:  in.Description,
		Notes:        in.Notes,
		ImageURL:     in.ImageURL,
		Link:         in.Link,
		Tags:         in.Tags,
		IsFile:       in.IsFile,
		Filename:     in.Filename,
		WalrusBlobID: sl.blobID,
	}
	if in.IsFile {
		fields.FileSize = &sl.size
	}

	effects, err := submit(ctx, s.ledger, s.signer, mu, txb.CreateEntry(s.pkg, vaultID, fields))
	if err != nil {
		return mu, err
	}
	if id, ok := effects.FindCreated(entryTypeSuffix); ok {
		mu.CreatedID = id
	}

	s.invalidate()
	s.log.Info(ctx, "entry created", "id", mu.CreatedID, "vault", vaultID,
		"inline", sl.blobID == nil, "digest", mu.Digest)
	return mu, nil
}

// Update applies a partial entry update. When the patch carries new
// plaintext the content is re-sealed and re-routed against the
// threshold; moving from blob to inline clears the stored blob id.
func (s *EntryService) Update(ctx context.Context, entryID string, p EntryPatch) (*Mutation, error) {
	mu := newMutation(KindUpdate)
	if entryID == "" {
		return mu, mu.fail(fmt.Errorf("%w: entry id is required", common.ErrValidation))
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return mu, mu.fail(fmt.Errorf("%w: entry name cannot be cleared", common.ErrValidation))
	}

	u := txb.EntryUpdate{
		Name:        p.Name,
		EntryType:   p.EntryType,
		Description: p.Description,
		Notes:       p.Notes,
		ImageURL:    p.ImageURL,
		Link:        p.Link,
		Tags:        p.Tags,
		Filename:    p.Filename,
	}

	if p.Plaintext != nil {
		sl, err := s.seal(ctx, p.Plaintext)
		if err != nil {
			return mu, mu.fail(err)
		}
		u.Hash = &sl.hash
		u.Content = &sl.content
		if p.IsFile {
			u.FileSize = &sl.size
		}
		if sl.blobID != nil {
			u.WalrusBlobID = sl.blobID
		} else {
			empty := ""
			u.WalrusBlobID = &empty
		}
	}

	if _, err := submit(ctx, s.ledger, s.signer, mu, txb.UpdateEntry(s.pkg, entryID, u)); err != nil {
		return mu, err
	}

	s.invalidate()
	s.log.Info(ctx, "entry updated", "id", entryID, "digest", mu.Digest)
	return mu, nil
}

// Delete removes an entry from its vault.
func (s *EntryService) Delete(ctx context.Context, vaultID, entryID string) (*Mutation, error) {
	mu := newMutation(KindDelete)
	if vaultID == "" || entryID == "" {
		return mu, mu.fail(fmt.Errorf("%w: vault id and entry id are required", common.ErrValidation))
	}

	if _, err := submit(ctx, s.ledger, s.signer, mu, txb.DeleteEntry(s.pkg, vaultID, entryID)); err != nil {
		return mu, err
	}

	s.invalidate()
	s.log.Info(ctx, "entry deleted", "id", entryID, "vault", vaultID, "digest", mu.Digest)
	return mu, nil
}

// invalidate drops both entry and vault caches: entry mutations change
// the owning vault's entry count.
func (s *EntryService) invalidate() {
	addr := s.signer.Address()
	s.cache.InvalidatePrefix(entityEntries + ":" + addr)
	s.cache.InvalidatePrefix(entityVaults + ":" + addr)
}
