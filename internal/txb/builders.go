package txb

const (
	lockerModule = "locker"
	blobModule   = "blob"
)

// VaultUpdate carries option-wrapped vault fields for a partial update.
// A nil field means "leave unchanged"; a pointer to "" clears the field.
type VaultUpdate struct {
	Name        *string
	Description *string
	ImageURL    *string
}

// EntryFields carries all application-level fields for entry creation.
// Content is either an inline hex envelope or empty when the payload
// lives in the blob network (WalrusBlobID set).
type EntryFields struct {
	Name         string
	Hash         string
	Content      string
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
}

// EntryUpdate carries option-wrapped entry fields for a partial update.
type EntryUpdate struct {
	Name         *string
	Hash         *string
	Content      *string
	EntryType    *string
	Description  *string
	Notes        *string
	ImageURL     *string
	Link         *string
	Tags         *[]string
	Filename     *string
	FileSize     *uint64
	WalrusBlobID *string
}

func CreateVault(pkg, name string, description, imageURL *string) *Transaction {
	return &Transaction{
		Package:  pkg,
		Module:   lockerModule,
		Function: "create_vault",
		Args: []Arg{
			Pure(name),
			OptString(description),
			OptString(imageURL),
		},
	}
}

func UpdateVault(pkg, vaultID string, u VaultUpdate) *Transaction {
	return &Transaction{
		Package:  pkg,
		Module:   lockerModule,
		Function: "update_vault",
		Args: []Arg{
			Object(vaultID),
			OptString(u.Name),
			OptString(u.Description),
			OptString(u.ImageURL),
		},
	}
}

// DeleteVault builds the vault deletion call. The ledger rejects it while
// the vault still holds entries; callers translate that rejection into a
// domain error rather than retrying.
func DeleteVault(pkg, vaultID string) *Transaction {
	return &Transaction{
		Package:  pkg,
		Module:   lockerModule,
		Function: "delete_vault",
		Args:     []Arg{Object(vaultID)},
	}
}

func CreateEntry(pkg, vaultID string, f EntryFields) *Transaction {
	return &Transaction{
		Package:  pkg,
		Module:   lockerModule,
		Function: "create_entry",
		Args: []Arg{
			Object(vaultID),
			Pure(f.Name),
			Pure(f.Hash),
			Pure(f.Content),
			OptString(f.EntryType),
			OptString(f.Description),
			OptString(f.Notes),
			OptString(f.ImageURL),
			OptString(f.Link),
			StrVector(f.Tags),
			Bool(f.IsFile),
			OptString(f.Filename),
			OptU64(f.FileSize),
			OptString(f.WalrusBlobID),
		},
	}
}

func UpdateEntry(pkg, entryID string, u EntryUpdate) *Transaction {
	return &Transaction{
		Package:  pkg,
		Module:   lockerModule,
		Function: "update_entry",
		Args: []Arg{
			Object(entryID),
			OptString(u.Name),
			OptString(u.Hash),
			OptString(u.Content),
			OptString(u.EntryType),
			OptString(u.Description),
			OptString(u.Notes),
			OptString(u.ImageURL),
			OptString(u.Link),
			OptStrVector(u.Tags),
			OptString(u.Filename),
			OptU64(u.FileSize),
			OptString(u.WalrusBlobID),
		},
	}
}

func DeleteEntry(pkg, vaultID, entryID string) *Transaction {
	return &Transaction{
		Package:  pkg,
		Module:   lockerModule,
		Function: "delete_entry",
		Args: []Arg{
			Object(vaultID),
			Object(entryID),
		},
	}
}

// Read-call builders, executed via dev-inspect simulated calls.

func ListVaults(pkg, owner string) *Transaction {
	return &Transaction{
		Package:  pkg,
		Module:   lockerModule,
		Function: "list_vaults",
		Args:     []Arg{Pure(owner)},
	}
}

func GetVault(pkg, vaultID string) *Transaction {
	return &Transaction{
		Package:  pkg,
		Module:   lockerModule,
		Function: "get_vault",
		Args:     []Arg{Object(vaultID)},
	}
}

func ListEntries(pkg, owner string) *Transaction {
	return &Transaction{
		Package:  pkg,
		Module:   lockerModule,
		Function: "list_entries",
		Args:     []Arg{Pure(owner)},
	}
}

func GetEntry(pkg, entryID string) *Transaction {
	return &Transaction{
		Package:  pkg,
		Module:   lockerModule,
		Function: "get_entry",
		Args:     []Arg{Object(entryID)},
	}
}

// RegisterBlob declares intent to store a blob of the given size for
// epochs storage epochs. Step two of the upload saga.
func RegisterBlob(pkg, blobID string, size uint64, rootHash []byte, epochs uint64) *Transaction {
	return &Transaction{
		Package:  pkg,
		Module:   blobModule,
		Function: "register",
		Args: []Arg{
			Pure(blobID),
			U64(size),
			Bytes(rootHash),
			U64(epochs),
		},
	}
}

// CertifyBlob attaches storage-node confirmations to a registered blob
// object, marking it durably available. Step four of the upload saga.
func CertifyBlob(pkg, blobObjectID string, confirmations []string) *Transaction {
	return &Transaction{
		Package:  pkg,
		Module:   blobModule,
		Function: "certify",
		Args: []Arg{
			Object(blobObjectID),
			StrVector(confirmations),
		},
	}
}
