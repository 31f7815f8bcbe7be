package locker

import (
	"time"

	"github.com/suilocker/suilocker/internal/ledger"
)

// Ledger record layouts. Records are versioned; bumping a layout means
// bumping the schema version here, and a stale decoder fails instead of
// misreading positionally.

var vaultSchema = &ledger.Schema{
	Name:    "vault",
	Version: 1,
	Fields: []ledger.Field{
		{Name: "id", Type: ledger.TypeAddress},
		{Name: "owner", Type: ledger.TypeAddress},
		{Name: "name", Type: ledger.TypeString},
		{Name: "description", Type: ledger.TypeOptString},
		{Name: "image_url", Type: ledger.TypeOptString},
		{Name: "created_at", Type: ledger.TypeU64},
		{Name: "updated_at", Type: ledger.TypeU64},
		{Name: "entry_count", Type: ledger.TypeU64},
	},
}

var entrySchema = &ledger.Schema{
	Name:    "entry",
	Version: 1,
	Fields: []ledger.Field{
		{Name: "id", Type: ledger.TypeAddress},
		{Name: "owner", Type: ledger.TypeAddress},
		{Name: "vault_id", Type: ledger.TypeAddress},
		{Name: "name", Type: ledger.TypeString},
		{Name: "hash", Type: ledger.TypeString},
		{Name: "content", Type: ledger.TypeString},
		{Name: "entry_type", Type: ledger.TypeOptString},
		{Name: "description", Type: ledger.TypeOptString},
		{Name: "notes", Type: ledger.TypeOptString},
		{Name: "image_url", Type: ledger.TypeOptString},
		{Name: "link", Type: ledger.TypeOptString},
		{Name: "tags", Type: ledger.TypeStrVector},
		{Name: "is_file", Type: ledger.TypeBool},
		{Name: "filename", Type: ledger.TypeOptString},
		{Name: "file_size", Type: ledger.TypeOptU64},
		{Name: "walrus_blob_id", Type: ledger.TypeOptString},
		{Name: "created_at", Type: ledger.TypeU64},
		{Name: "updated_at", Type: ledger.TypeU64},
	},
}

func msToTime(ms uint64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}

func decodeVault(data []byte) (*Vault, error) {
	rec, err := vaultSchema.Decode(data)
	if err != nil {
		return nil, err
	}

	v := &Vault{}
	if v.ID, err = rec.String("id"); err != nil {
		return nil, err
	}
	if v.Owner, err = rec.String("owner"); err != nil {
		return nil, err
	}
	if v.Name, err = rec.String("name"); err != nil {
		return nil, err
	}
	if v.Description, err = rec.OptString("description"); err != nil {
		return nil, err
	}
	if v.ImageURL, err = rec.OptString("image_url"); err != nil {
		return nil, err
	}
	createdAt, err := rec.U64("created_at")
	if err != nil {
		return nil, err
	}
	updatedAt, err := rec.U64("updated_at")
	if err != nil {
		return nil, err
	}
	v.CreatedAt = msToTime(createdAt)
	v.UpdatedAt = msToTime(updatedAt)
	if v.EntryCount, err = rec.U64("entry_count"); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeEntry(data []byte) (*Entry, error) {
	rec, err := entrySchema.Decode(data)
	if err != nil {
		return nil, err
	}

	e := &Entry{}
	if e.ID, err = rec.String("id"); err != nil {
		return nil, err
	}
	if e.Owner, err = rec.String("owner"); err != nil {
		return nil, err
	}
	if e.VaultID, err = rec.String("vault_id"); err != nil {
		return nil, err
	}
	if e.Name, err = rec.String("name"); err != nil {
		return nil, err
	}
	if e.Hash, err = rec.String("hash"); err != nil {
		return nil, err
	}
	if e.Content, err = rec.String("content"); err != nil {
		return nil, err
	}
	if e.EntryType, err = rec.OptString("entry_type"); err != nil {
		return nil, err
	}
	if e.Description, err = rec.OptString("description"); err != nil {
		return nil, err
	}
	if e.Notes, err = rec.OptString("notes"); err != nil {
		return nil, err
	}
	if e.ImageURL, err = rec.OptString("image_url"); err != nil {
		return nil, err
	}
	if e.Link, err = rec.OptString("link"); err != nil {
		return nil, err
	}
	if e.Tags, err = rec.Strings("tags"); err != nil {
		return nil, err
	}
	if e.IsFile, err = rec.Bool("is_file"); err != nil {
		return nil, err
	}
	if e.Filename, err = rec.OptString("filename"); err != nil {
		return nil, err
	}
	if e.FileSize, err = rec.OptU64("file_size"); err != nil {
		return nil, err
	}
	if e.WalrusBlobID, err = rec.OptString("walrus_blob_id"); err != nil {
		return nil, err
	}
	createdAt, err := rec.U64("created_at")
	if err != nil {
		return nil, err
	}
	updatedAt, err := rec.U64("updated_at")
	if err != nil {
		return nil, err
	}
	e.CreatedAt = msToTime(createdAt)
	e.UpdatedAt = msToTime(updatedAt)
	return e, nil
}

// decodeIDList reads the id vector returned by list calls. Order is not
// meaningful; filtering and sorting happen client-side after decryption.
func decodeIDList(data []byte) ([]string, error) {
	r := ledger.NewReader(data)
	n, err := r.ReadULEB()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		id, err := r.ReadAddress()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
