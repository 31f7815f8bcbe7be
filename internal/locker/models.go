// Package locker is the query/mutation layer: it orchestrates reads
// (simulated ledger calls, schema decoding, decryption) and writes
// (hash, encrypt, route, submit, wait, invalidate) for vaults and
// entries.
package locker

import "time"

// Vault is a named collection owned by one address. EntryCount is
// maintained by the ledger and trusted as-is; the client never computes
// or mutates it.
type Vault struct {
	ID          string
	Owner       string
	Name        string
	Description *string
	ImageURL    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	EntryCount  uint64
}

// Entry is an item inside exactly one vault. Content carries the wire
// value (hex envelope, or the blob id when the payload is off-chain);
// Plaintext is populated by the read path after decryption. Hash is the
// digest of the plaintext, computed before encryption, so integrity can
// be checked without decrypting.
type Entry struct {
	ID           string
	Owner        string
	VaultID      string
	Name         string
	Hash         string
	Content      string
	Plaintext    []byte
	EntryType    *string
	Description  *string
	Notes        *string
	ImageURL     *string
	Link         *string
	Tags         []string
	IsFile       bool
	Filename     *string
	FileSize     *uint64
	WalrusBlobID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ItemResult records one failed item in a list decode. Failures are
// isolated per item, not fatal for the whole list.
type ItemResult struct {
	ID  string
	Err error
}

// ListReport aggregates the outcome of a list fan-out so callers can
// surface failure counts instead of silently dropping rows.
type ListReport struct {
	Total    int
	Failed   int
	Failures []ItemResult
}
