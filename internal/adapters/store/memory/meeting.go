package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/domain"
)

type MeetingStore struct {
	mu       sync.RWMutex
	meetings map[domain.MeetingID]*domain.Meeting
}

var _ core.MeetingStore = (*MeetingStore)(nil)

func NewMeetingStore() *MeetingStore {
	return &MeetingStore{meetings: make(map[domain.MeetingID]*domain.Meeting)}
}

func (s *MeetingStore) Create(_ context.Context, m *domain.Meeting) error {
	if m == nil || m.ID == "" || len(m.Host) == 0 {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[m.ID]; ok {
		return domain.ErrConflict
	}
	s.meetings[m.ID] = cloneMeeting(m)
	return nil
}

// Meeting returns a snapshot; later writes do not show through it.
func (s *MeetingStore) Meeting(_ context.Context, id domain.MeetingID) (*domain.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneMeeting(m), nil
}

func (s *MeetingStore) AddMember(_ context.Context, id domain.MeetingID, member domain.IdentityID) error {
	if member == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if slices.Contains(m.Host, member) || slices.Contains(m.Members, member) {
		return domain.ErrConflict
	}
	m.Members = append(m.Members, member)
	return nil
}

func (s *MeetingStore) UpdateSettings(_ context.Context, id domain.MeetingID, settings domain.MeetingSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Settings = settings
	return nil
}

func (s *MeetingStore) End(_ context.Context, id domain.MeetingID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if m.EndDateTime != nil {
		return domain.ErrConflict
	}
	end := at.UTC()
	m.EndDateTime = &end
	return nil
}

func cloneMeeting(m *domain.Meeting) *domain.Meeting {
	out := *m
	out.Host = slices.Clone(m.Host)
	out.Members = slices.Clone(m.Members)
	if out.Members == nil {
		out.Members = []domain.IdentityID{}
	}
	out.Permissions = make(map[domain.Action][]domain.Role, len(m.Permissions))
	for action, roles := range m.Permissions {
		out.Permissions[action] = slices.Clone(roles)
	}
	if m.EndDateTime != nil {
		end := *m.EndDateTime
		out.EndDateTime = &end
	}
	return &out
}
