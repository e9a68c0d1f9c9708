package core

import (
	"context"
	"time"

	"github.com/dkeye/demeet/internal/domain"
)

// IdentityStore is the credential store. Refresh tokens are handed over as
// digests; every refresh-token mutation is one atomic write.
type IdentityStore interface {
	Create(ctx context.Context, identity *domain.Identity) error
	Identity(ctx context.Context, id domain.IdentityID) (*domain.Identity, error)
	IdentityBySubject(ctx context.Context, subject string) (*domain.Identity, error)
	IdentityByEmail(ctx context.Context, email string) (*domain.Identity, error)
	IdentityByGoogleID(ctx context.Context, googleID string) (*domain.Identity, error)
	// ExistsByEmailOrPhone ignores an empty phone.
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)

	SetRefreshToken(ctx context.Context, id domain.IdentityID, digest string) error
	// SwapRefreshToken replaces oldDigest with newDigest only if oldDigest is
	// still the stored value. It reports false when it is not.
	SwapRefreshToken(ctx context.Context, id domain.IdentityID, oldDigest, newDigest string) (bool, error)
	ClearRefreshToken(ctx context.Context, id domain.IdentityID) error

	// LinkWallet sets the wallet id only if none is linked yet and no other
	// identity holds it. Otherwise domain.ErrConflict.
	LinkWallet(ctx context.Context, id domain.IdentityID, walletID string) error
}

// MeetingStore supplies meeting snapshots to the permission evaluator.
type MeetingStore interface {
	Create(ctx context.Context, m *domain.Meeting) error
	Meeting(ctx context.Context, id domain.MeetingID) (*domain.Meeting, error)
	AddMember(ctx context.Context, id domain.MeetingID, member domain.IdentityID) error
	UpdateSettings(ctx context.Context, id domain.MeetingID, settings domain.MeetingSettings) error
	End(ctx context.Context, id domain.MeetingID, at time.Time) error
}
