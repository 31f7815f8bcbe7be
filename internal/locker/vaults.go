package locker

import (
	"context"
	"fmt"
	"strings"

	"github.com/suilocker/suilocker/internal/cache"
	"github.com/suilocker/suilocker/internal/common"
	"github.com/suilocker/suilocker/internal/ledger"
	"github.com/suilocker/suilocker/internal/logging"
	"github.com/suilocker/suilocker/internal/txb"
	"github.com/suilocker/suilocker/internal/wallet"
)

const (
	vaultTypeSuffix = "::locker::Vault"
	entityVaults    = "vaults"
)

// VaultService manages vault reads and writes for one session.
type VaultService struct {
	pkg       string
	ledger    ledger.Client
	signer    wallet.Signer
	cache     *cache.Cache
	log       logging.Logger
	lockerKey string
}

func NewVaultService(pkg string, lc ledger.Client, signer wallet.Signer, c *cache.Cache, lockerKey string, log logging.Logger) *VaultService {
	return &VaultService{
		pkg:       pkg,
		ledger:    lc,
		signer:    signer,
		cache:     c,
		log:       log.With("component", "vaults"),
		lockerKey: lockerKey,
	}
}

func (s *VaultService) cacheKey() string {
	return cache.Key(entityVaults, s.signer.Address(), s.lockerKey)
}

// List returns all vaults owned by the session address. Per-vault fetch
// or decode failures are isolated into the report; the returned slice
// carries the successes.
func (s *VaultService) List(ctx context.Context) ([]*Vault, *ListReport, error) {
	if v, ok := s.cache.Get(s.cacheKey()); ok {
		cached := v.([]*Vault)
		return cached, &ListReport{Total: len(cached)}, nil
	}

	owner := s.signer.Address()
	res, err := s.ledger.DevInspect(ctx, owner, txb.ListVaults(s.pkg, owner))
	if err != nil {
		return nil, nil, fmt.Errorf("listing vaults: %w", err)
	}
	if len(res.ReturnValues) == 0 {
		return nil, nil, fmt.Errorf("listing vaults: %w: empty return", common.ErrMalformedRecord)
	}
	ids, err := decodeIDList(res.ReturnValues[0])
	if err != nil {
		return nil, nil, fmt.Errorf("decoding vault id list: %w", err)
	}

	report := &ListReport{Total: len(ids)}
	vaults := make([]*Vault, 0, len(ids))
	for _, id := range ids {
		v, err := s.Get(ctx, id)
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, ItemResult{ID: id, Err: err})
			s.log.Warn(ctx, "vault fetch failed", "id", id, "error", err)
			continue
		}
		vaults = append(vaults, v)
	}

	if report.Failed == 0 {
		s.cache.Set(s.cacheKey(), vaults)
	}
	return vaults, report, nil
}

// Get fetches and decodes a single vault.
func (s *VaultService) Get(ctx context.Context, vaultID string) (*Vault, error) {
	if vaultID == "" {
		return nil, fmt.Errorf("%w: vault id is required", common.ErrValidation)
	}
	res, err := s.ledger.DevInspect(ctx, s.signer.Address(), txb.GetVault(s.pkg, vaultID))
	if err != nil {
		return nil, fmt.Errorf("fetching vault %s: %w", vaultID, err)
	}
	if len(res.ReturnValues) == 0 {
		return nil, fmt.Errorf("vault %s: %w", vaultID, common.ErrNotFound)
	}
	v, err := decodeVault(res.ReturnValues[0])
	if err != nil {
		return nil, fmt.Errorf("decoding vault %s: %w", vaultID, err)
	}
	return v, nil
}

// Create makes a new vault and reports the created object id.
func (s *VaultService) Create(ctx context.Context, name string, description, imageURL *string) (*Mutation, error) {
	mu := newMutation(KindCreate)
	if strings.TrimSpace(name) == "" {
		return mu, mu.fail(fmt.Errorf("%w: vault name is required", common.ErrValidation))
	}

	effects, err := submit(ctx, s.ledger, s.signer, mu, txb.CreateVault(s.pkg, name, description, imageURL))
	if err != nil {
		return mu, err
	}
	if id, ok := effects.FindCreated(vaultTypeSuffix); ok {
		mu.CreatedID = id
	}

	s.invalidate()
	s.log.Info(ctx, "vault created", "id", mu.CreatedID, "digest", mu.Digest)
	return mu, nil
}

// Update applies a partial vault update. Nil fields are left unchanged;
// a pointer to the empty string clears the field.
func (s *VaultService) Update(ctx context.Context, vaultID string, u txb.VaultUpdate) (*Mutation, error) {
	mu := newMutation(KindUpdate)
	if vaultID == "" {
		return mu, mu.fail(fmt.Errorf("%w: vault id is required", common.ErrValidation))
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return mu, mu.fail(fmt.Errorf("%w: vault name cannot be cleared", common.ErrValidation))
	}

	if _, err := submit(ctx, s.ledger, s.signer, mu, txb.UpdateVault(s.pkg, vaultID, u)); err != nil {
		return mu, err
	}

	s.invalidate()
	s.log.Info(ctx, "vault updated", "id", vaultID, "digest", mu.Digest)
	return mu, nil
}

// Delete removes an empty vault. Deleting a vault that still holds
// entries fails with common.ErrVaultNotEmpty.
func (s *VaultService) Delete(ctx context.Context, vaultID string) (*Mutation, error) {
	mu := newMutation(KindDelete)
	if vaultID == "" {
		return mu, mu.fail(fmt.Errorf("%w: vault id is required", common.ErrValidation))
	}

	if _, err := submit(ctx, s.ledger, s.signer, mu, txb.DeleteVault(s.pkg, vaultID)); err != nil {
		return mu, err
	}

	s.invalidate()
	s.log.Info(ctx, "vault deleted", "id", vaultID, "digest", mu.Digest)
	return mu, nil
}

func (s *VaultService) invalidate() {
	s.cache.InvalidatePrefix(entityVaults + ":" + s.signer.Address())
}
