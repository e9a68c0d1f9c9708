package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/domain"
)

type MeetingStore struct {
	db *sql.DB
}

var _ core.MeetingStore = (*MeetingStore)(nil)

func NewMeetingStore(db *sql.DB) *MeetingStore {
	return &MeetingStore{db: db}
}

func (s *MeetingStore) Create(ctx context.Context, m *domain.Meeting) error {
	if m == nil || m.ID == "" || len(m.Host) == 0 {
		return domain.ErrInvalidInput
	}
	host, err := json.Marshal(m.Host)
	if err != nil {
		return fmt.Errorf("encode host: %w", err)
	}
	members, err := json.Marshal(nonNil(m.Members))
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	perms, err := json.Marshal(m.Permissions)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`insert into meetings(id, name, organisation_id, host, members, created_by, permissions, waiting_room, start_at, end_at, created_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		string(m.ID), m.Name, m.OrganisationID, host, members, string(m.CreatedBy), perms,
		m.Settings.WaitingRoomEnabled, m.StartDateTime, m.EndDateTime, m.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

func (s *MeetingStore) Meeting(ctx context.Context, id domain.MeetingID) (*domain.Meeting, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, organisation_id, host, members, created_by, permissions, waiting_room, start_at, end_at, created_at
		 from meetings where id=$1`, string(id))
	var (
		m                    domain.Meeting
		host, members, perms []byte
		end                  sql.NullTime
	)
	err := row.Scan(&m.ID, &m.Name, &m.OrganisationID, &host, &members, &m.CreatedBy, &perms,
		&m.Settings.WaitingRoomEnabled, &m.StartDateTime, &end, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan meeting: %w", err)
	}
	if err := json.Unmarshal(host, &m.Host); err != nil {
		return nil, fmt.Errorf("decode host: %w", err)
	}
	if err := json.Unmarshal(members, &m.Members); err != nil {
		return nil, fmt.Errorf("decode members: %w", err)
	}
	if err := json.Unmarshal(perms, &m.Permissions); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	m.Members = nonNil(m.Members)
	if end.Valid {
		t := end.Time
		m.EndDateTime = &t
	}
	return &m, nil
}

// AddMember appends in one statement; a subject already listed as host or
// member leaves the row untouched.
func (s *MeetingStore) AddMember(ctx context.Context, id domain.MeetingID, member domain.IdentityID) error {
	if member == "" {
		return domain.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx,
		`update meetings set members = members || jsonb_build_array($2::text)
		 where id=$1 and not host @> jsonb_build_array($2::text) and not members @> jsonb_build_array($2::text)`,
		string(id), string(member))
	if err != nil {
		return err
	}
	return s.conditional(ctx, res, id)
}

func (s *MeetingStore) UpdateSettings(ctx context.Context, id domain.MeetingID, settings domain.MeetingSettings) error {
	res, err := s.db.ExecContext(ctx,
		`update meetings set waiting_room=$2 where id=$1`, string(id), settings.WaitingRoomEnabled)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (s *MeetingStore) End(ctx context.Context, id domain.MeetingID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update meetings set end_at=$2 where id=$1 and end_at is null`, string(id), at.UTC())
	if err != nil {
		return err
	}
	return s.conditional(ctx, res, id)
}

// conditional maps an untouched row to NotFound or Conflict.
func (s *MeetingStore) conditional(ctx context.Context, res sql.Result, id domain.MeetingID) error {
	n, err := res.RowsAffected()
	if err != nil || n == 1 {
		return err
	}
	found, err := exists(ctx, s.db, "meetings", string(id))
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func nonNil(ids []domain.IdentityID) []domain.IdentityID {
	if ids == nil {
		return []domain.IdentityID{}
	}
	return ids
}
