// Package memory holds in-process stores. They are safe for concurrent use
// and every refresh-token write happens under one lock.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/domain"
)

type IdentityStore struct {
	mu       sync.RWMutex
	byID     map[domain.IdentityID]domain.Identity
	byEmail  map[string]domain.IdentityID
	byGoogle map[string]domain.IdentityID
	byWallet map[string]domain.IdentityID
}

var _ core.IdentityStore = (*IdentityStore)(nil)

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		byID:     make(map[domain.IdentityID]domain.Identity),
		byEmail:  make(map[string]domain.IdentityID),
		byGoogle: make(map[string]domain.IdentityID),
		byWallet: make(map[string]domain.IdentityID),
	}
}

func (s *IdentityStore) Create(_ context.Context, identity *domain.Identity) error {
	if identity == nil || identity.ID == "" {
		return domain.ErrInvalidInput
	}
	email := strings.ToLower(identity.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[identity.ID]; ok {
		return domain.ErrConflict
	}
	if _, ok := s.byEmail[email]; ok {
		return domain.ErrConflict
	}
	if identity.PhoneNumber != "" && s.phoneTaken(identity.PhoneNumber) {
		return domain.ErrConflict
	}
	if identity.GoogleID != "" {
		if _, ok := s.byGoogle[identity.GoogleID]; ok {
			return domain.ErrConflict
		}
		s.byGoogle[identity.GoogleID] = identity.ID
	}
	if identity.WalletID != "" {
		if _, ok := s.byWallet[identity.WalletID]; ok {
			return domain.ErrConflict
		}
		s.byWallet[identity.WalletID] = identity.ID
	}
	s.byID[identity.ID] = *identity
	s.byEmail[email] = identity.ID
	return nil
}

func (s *IdentityStore) Identity(_ context.Context, id domain.IdentityID) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(id)
}

func (s *IdentityStore) IdentityBySubject(ctx context.Context, subject string) (*domain.Identity, error) {
	id, err := domain.ParseIdentityID(subject)
	if err != nil {
		return nil, err
	}
	return s.Identity(ctx, id)
}

func (s *IdentityStore) IdentityByEmail(_ context.Context, email string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.lookup(id)
}

func (s *IdentityStore) IdentityByGoogleID(_ context.Context, googleID string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byGoogle[googleID]
	if !ok || googleID == "" {
		return nil, domain.ErrNotFound
	}
	return s.lookup(id)
}

func (s *IdentityStore) ExistsByEmailOrPhone(_ context.Context, email, phone string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]; ok {
		return true, nil
	}
	return phone != "" && s.phoneTaken(phone), nil
}

func (s *IdentityStore) SetRefreshToken(_ context.Context, id domain.IdentityID, digest string) error {
	return s.update(id, func(i *domain.Identity) bool {
		i.RefreshDigest = digest
		return true
	})
}

func (s *IdentityStore) SwapRefreshToken(_ context.Context, id domain.IdentityID, oldDigest, newDigest string) (bool, error) {
	swapped := false
	err := s.update(id, func(i *domain.Identity) bool {
		if oldDigest == "" || i.RefreshDigest != oldDigest {
			return false
		}
		i.RefreshDigest = newDigest
		swapped = true
		return true
	})
	return swapped, err
}

func (s *IdentityStore) ClearRefreshToken(_ context.Context, id domain.IdentityID) error {
	return s.update(id, func(i *domain.Identity) bool {
		i.RefreshDigest = ""
		return true
	})
}

func (s *IdentityStore) LinkWallet(_ context.Context, id domain.IdentityID, walletID string) error {
	if walletID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if i.WalletID != "" {
		return domain.ErrConflict
	}
	if _, taken := s.byWallet[walletID]; taken {
		return domain.ErrConflict
	}
	i.WalletID = walletID
	i.UpdatedAt = time.Now().UTC()
	s.byID[id] = i
	s.byWallet[walletID] = id
	return nil
}

// update applies fn under the write lock and stores the result when fn
// reports a change.
func (s *IdentityStore) update(id domain.IdentityID, fn func(*domain.Identity) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if fn(&i) {
		i.UpdatedAt = time.Now().UTC()
		s.byID[id] = i
	}
	return nil
}

func (s *IdentityStore) lookup(id domain.IdentityID) (*domain.Identity, error) {
	i, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &i, nil
}

func (s *IdentityStore) phoneTaken(phone string) bool {
	for _, i := range s.byID {
		if i.PhoneNumber == phone {
			return true
		}
	}
	return false
}
