package provisioning

import (
	"context"
	"fmt"
	"sort"
	"sync"

	id "sigrh/pkg/domain"
	"sigrh/pkg/platform/sentinel"
)

// InMemoryProfiles is the test double for the postgres profile store. The
// mutex is held across the singleton scan and the write, mirroring what
// the partial unique index guarantees transactionally.
type InMemoryProfiles struct {
	mu       sync.RWMutex
	profiles map[id.ProfileID]*Profile
	byEmail  map[string]id.ProfileID
}

func NewInMemoryProfiles() *InMemoryProfiles {
	return &InMemoryProfiles{
		profiles: make(map[id.ProfileID]*Profile),
		byEmail:  make(map[string]id.ProfileID),
	}
}

// authoritySlotTaken reports whether another active central authority
// exists for the ministry. Callers must hold mu.
func (s *InMemoryProfiles) authoritySlotTaken(ministryID id.MinistryID, except id.ProfileID) bool {
	for _, p := range s.profiles {
		if p.ID != except && p.MinistryID == ministryID && p.Role == RoleCentralAuthority && p.Active {
			return true
		}
	}
	return false
}

func (s *InMemoryProfiles) Create(_ context.Context, profile *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.ID]; ok {
		return fmt.Errorf("profile %s: %w", profile.ID, sentinel.ErrConflict)
	}
	if _, ok := s.byEmail[profile.Email]; ok {
		return fmt.Errorf("email %s: %w", profile.Email, sentinel.ErrConflict)
	}
	if profile.Role == RoleCentralAuthority && profile.Active && s.authoritySlotTaken(profile.MinistryID, profile.ID) {
		return fmt.Errorf("central authority slot for ministry %s: %w", profile.MinistryID, sentinel.ErrConflict)
	}
	clone := *profile
	s.profiles[profile.ID] = &clone
	s.byEmail[profile.Email] = profile.ID
	return nil
}

func (s *InMemoryProfiles) GetByID(_ context.Context, profileID id.ProfileID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[profileID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", profileID, sentinel.ErrNotFound)
	}
	clone := *profile
	return &clone, nil
}

func (s *InMemoryProfiles) Execute(_ context.Context, profileID id.ProfileID, validate func(*Profile) error, mutate func(*Profile)) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[profileID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", profileID, sentinel.ErrNotFound)
	}
	clone := *profile
	if err := validate(&clone); err != nil {
		return nil, err
	}
	mutate(&clone)
	if clone.Role == RoleCentralAuthority && clone.Active && s.authoritySlotTaken(clone.MinistryID, clone.ID) {
		return nil, fmt.Errorf("central authority slot for ministry %s: %w", clone.MinistryID, sentinel.ErrConflict)
	}
	s.profiles[profileID] = &clone
	result := clone
	return &result, nil
}

func (s *InMemoryProfiles) FindActiveAuthority(_ context.Context, ministryID id.MinistryID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.MinistryID == ministryID && p.Role == RoleCentralAuthority && p.Active {
			clone := *p
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("active authority for ministry %s: %w", ministryID, sentinel.ErrNotFound)
}

func (s *InMemoryProfiles) ListByRole(_ context.Context, ministryID id.MinistryID, role Role) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Profile
	for _, p := range s.profiles {
		if p.MinistryID == ministryID && p.Role == role && p.Active {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryProfiles) CountByRole(_ context.Context, ministryID id.MinistryID, role Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.profiles {
		if p.MinistryID == ministryID && p.Role == role && p.Active {
			count++
		}
	}
	return count, nil
}

// InMemoryLocks is the test double for the postgres lock store.
type InMemoryLocks struct {
	mu    sync.RWMutex
	locks []*AuthorityLock
}

func NewInMemoryLocks() *InMemoryLocks {
	return &InMemoryLocks{}
}

func (s *InMemoryLocks) Append(_ context.Context, lock *AuthorityLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *lock
	s.locks = append(s.locks, &clone)
	return nil
}

func (s *InMemoryLocks) ListByMinistry(_ context.Context, ministryID id.MinistryID) ([]*AuthorityLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*AuthorityLock
	for _, l := range s.locks {
		if l.MinistryID == ministryID {
			clone := *l
			out = append(out, &clone)
		}
	}
	return out, nil
}
