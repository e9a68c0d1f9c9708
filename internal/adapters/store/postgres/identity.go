package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/domain"
)

const identityColumns = `id, name, email, coalesce(phone_number, ''), coalesce(wallet_id, ''), coalesce(google_id, ''), avatar, password_hash, refresh_digest, created_at, updated_at`

type IdentityStore struct {
	db *sql.DB
}

var _ core.IdentityStore = (*IdentityStore)(nil)

func NewIdentityStore(db *sql.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

func (s *IdentityStore) Create(ctx context.Context, i *domain.Identity) error {
	if i == nil || i.ID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx,
		`insert into identities(id, name, email, phone_number, wallet_id, google_id, avatar, password_hash, refresh_digest, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		string(i.ID), i.Name, strings.ToLower(i.Email), nullIfEmpty(i.PhoneNumber), nullIfEmpty(i.WalletID), nullIfEmpty(i.GoogleID),
		i.Avatar, i.PasswordHash, i.RefreshDigest, i.CreatedAt, i.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

func (s *IdentityStore) Identity(ctx context.Context, id domain.IdentityID) (*domain.Identity, error) {
	return s.queryOne(ctx, `select `+identityColumns+` from identities where id=$1`, string(id))
}

func (s *IdentityStore) IdentityBySubject(ctx context.Context, subject string) (*domain.Identity, error) {
	id, err := domain.ParseIdentityID(subject)
	if err != nil {
		return nil, err
	}
	return s.Identity(ctx, id)
}

func (s *IdentityStore) IdentityByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return s.queryOne(ctx, `select `+identityColumns+` from identities where email=$1`, strings.ToLower(strings.TrimSpace(email)))
}

func (s *IdentityStore) IdentityByGoogleID(ctx context.Context, googleID string) (*domain.Identity, error) {
	if googleID == "" {
		return nil, domain.ErrNotFound
	}
	return s.queryOne(ctx, `select `+identityColumns+` from identities where google_id=$1`, googleID)
}

func (s *IdentityStore) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from identities where email=$1 or ($2 <> '' and phone_number=$2))`,
		strings.ToLower(strings.TrimSpace(email)), phone,
	).Scan(&ok)
	return ok, err
}

func (s *IdentityStore) SetRefreshToken(ctx context.Context, id domain.IdentityID, digest string) error {
	res, err := s.db.ExecContext(ctx,
		`update identities set refresh_digest=$2, updated_at=now() where id=$1`, string(id), digest)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// SwapRefreshToken is a compare-and-set on refresh_digest.
func (s *IdentityStore) SwapRefreshToken(ctx context.Context, id domain.IdentityID, oldDigest, newDigest string) (bool, error) {
	if oldDigest == "" {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx,
		`update identities set refresh_digest=$3, updated_at=now() where id=$1 and refresh_digest=$2`,
		string(id), oldDigest, newDigest)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *IdentityStore) ClearRefreshToken(ctx context.Context, id domain.IdentityID) error {
	res, err := s.db.ExecContext(ctx,
		`update identities set refresh_digest='', updated_at=now() where id=$1`, string(id))
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (s *IdentityStore) LinkWallet(ctx context.Context, id domain.IdentityID, walletID string) error {
	if walletID == "" {
		return domain.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx,
		`update identities set wallet_id=$2, updated_at=now() where id=$1 and wallet_id is null`,
		string(id), walletID)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n == 1 {
		return err
	}
	found, err := exists(ctx, s.db, "identities", string(id))
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (s *IdentityStore) queryOne(ctx context.Context, query string, arg any) (*domain.Identity, error) {
	var i domain.Identity
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&i.ID, &i.Name, &i.Email, &i.PhoneNumber, &i.WalletID, &i.GoogleID,
		&i.Avatar, &i.PasswordHash, &i.RefreshDigest, &i.CreatedAt, &i.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	return &i, nil
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
