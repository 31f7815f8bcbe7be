// Package suilocker is the client-side core of an encrypted personal
// data store backed by a programmable ledger. Content is encrypted on
// this side of the wire with a key derived from a wallet signature; the
// ledger holds only ciphertext envelopes and blob references, and large
// payloads are sharded out to a blob storage network.
//
// A Locker is bound to one authenticated Session. Typical use:
//
//	cfg, _ := config.LoadConfig()
//	lk, err := suilocker.Connect(ctx, cfg, signer, log)
//	defer lk.Close()
//	lk.Vaults.Create(ctx, "Personal", nil, nil)
package suilocker

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/suilocker/suilocker/internal/backup"
	"github.com/suilocker/suilocker/internal/cache"
	"github.com/suilocker/suilocker/internal/common"
	"github.com/suilocker/suilocker/internal/config"
	"github.com/suilocker/suilocker/internal/filex"
	"github.com/suilocker/suilocker/internal/ledger"
	"github.com/suilocker/suilocker/internal/locker"
	"github.com/suilocker/suilocker/internal/logging"
	"github.com/suilocker/suilocker/internal/wallet"
	"github.com/suilocker/suilocker/internal/walrus"
)

// Session is one authenticated wallet binding. The locker key lives
// only here and is wiped on Close; it is never persisted or logged.
type Session struct {
	Address string
	key     []byte
}

func (s *Session) lockerKey() string { return string(s.key) }

// Locker is the assembled client. All state is carried explicitly: two
// Lockers for different wallets coexist in one process without sharing
// keys or caches.
type Locker struct {
	Vaults  *locker.VaultService
	Entries *locker.EntryService
	Blobs   *walrus.Gateway
	Backup  *backup.Exporter

	session *Session
	cache   *cache.Cache
	db      *sql.DB
	log     logging.Logger
}

// Connect authenticates the wallet, derives the locker key, and wires
// the client together. A signature rejection surfaces as
// common.ErrNotAuthenticated and leaves nothing half-initialized.
func Connect(ctx context.Context, cfg *config.Config, signer wallet.Signer, log logging.Logger) (*Locker, error) {
	if log == nil {
		log = logging.NewNop()
	}
	if cfg.PackageID == "" {
		return nil, fmt.Errorf("%w: package id is required", common.ErrValidation)
	}

	keyMaterial, err := wallet.DeriveLockerKey(ctx, signer)
	if err != nil {
		return nil, err
	}
	session := &Session{Address: signer.Address(), key: []byte(keyMaterial)}

	if err := filex.EnsureParentDir(cfg.CheckpointDBPath); err != nil {
		return nil, fmt.Errorf("preparing checkpoint db path: %w", err)
	}
	db, err := sql.Open("sqlite", cfg.CheckpointDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint db: %w", err)
	}
	store := walrus.NewSQLiteStore(db)
	if err := store.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing checkpoint db: %w", err)
	}

	rpc := ledger.NewRPCClient(cfg.RPCEndpoint, log,
		ledger.WithWaitTimeout(cfg.WaitTimeout),
		ledger.WithPollInterval(cfg.PollInterval))
	nodes := walrus.NewHTTPNodeClient(cfg.WalrusBaseURL, cfg.WalrusNodes)
	gateway := walrus.NewGateway(cfg.PackageID, cfg.StorageEpochs, nodes, rpc, store, log)

	c := cache.New()
	key := session.lockerKey()

	lk := &Locker{
		Vaults:  locker.NewVaultService(cfg.PackageID, rpc, signer, c, key, log),
		Entries: locker.NewEntryService(cfg.PackageID, rpc, signer, gateway, c, key, cfg.InlineThresholdBytes, log),
		Blobs:   gateway,
		Backup:  backup.NewExporter(cfg, log),
		session: session,
		cache:   c,
		db:      db,
		log:     log,
	}

	if orphans, err := gateway.ReportOrphans(ctx); err != nil {
		log.Warn(ctx, "orphan scan failed", "error", err)
	} else if len(orphans) > 0 {
		log.Warn(ctx, "incomplete uploads found", "count", len(orphans))
	}

	log.Info(ctx, "locker connected", "address", session.Address)
	return lk, nil
}

// Session returns the bound session.
func (l *Locker) Session() *Session { return l.session }

// Snapshot assembles the current locker state for export. Entries keep
// their wire-form content; decryption failures fail the snapshot rather
// than producing a partial backup.
func (l *Locker) Snapshot(ctx context.Context) (*backup.Snapshot, error) {
	vaults, vr, err := l.Vaults.List(ctx)
	if err != nil {
		return nil, err
	}
	entries, er, err := l.Entries.List(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	if vr.Failed > 0 || er.Failed > 0 {
		return nil, fmt.Errorf("snapshot incomplete: %d vaults and %d entries unreadable", vr.Failed, er.Failed)
	}
	return &backup.Snapshot{
		Address: l.session.Address,
		Vaults:  vaults,
		Entries: entries,
	}, nil
}

// Close wipes the session key, drops cached plaintext, and releases the
// checkpoint database. The Locker is unusable afterwards.
func (l *Locker) Close() error {
	common.WipeByteArray(l.session.key)
	l.session.key = nil
	l.cache.Clear()
	l.log.Info(context.Background(), "locker closed", "address", l.session.Address)
	return l.db.Close()
}
