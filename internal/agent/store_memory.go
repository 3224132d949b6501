package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	id "sigrh/pkg/domain"
	"sigrh/pkg/platform/sentinel"
)

// InMemory is the test double for the postgres store. The mutex plays the
// role of row locks: Execute holds it across validate and mutate.
type InMemory struct {
	mu          sync.RWMutex
	agents      map[id.AgentID]*Agent
	byMatricule map[string]id.AgentID
}

func NewInMemory() *InMemory {
	return &InMemory{
		agents:      make(map[id.AgentID]*Agent),
		byMatricule: make(map[string]id.AgentID),
	}
}

func (s *InMemory) Create(_ context.Context, agent *Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[agent.ID]; ok {
		return fmt.Errorf("agent %s: %w", agent.ID, sentinel.ErrConflict)
	}
	if _, ok := s.byMatricule[agent.Matricule]; ok {
		return fmt.Errorf("matricule %s: %w", agent.Matricule, sentinel.ErrConflict)
	}
	clone := *agent
	s.agents[agent.ID] = &clone
	s.byMatricule[agent.Matricule] = agent.ID
	return nil
}

func (s *InMemory) GetByID(_ context.Context, agentID id.AgentID) (*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", agentID, sentinel.ErrNotFound)
	}
	clone := *agent
	return &clone, nil
}

func (s *InMemory) Execute(_ context.Context, agentID id.AgentID, validate func(*Agent) error, mutate func(*Agent)) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", agentID, sentinel.ErrNotFound)
	}
	clone := *agent
	if err := validate(&clone); err != nil {
		return nil, err
	}
	mutate(&clone)
	s.agents[agentID] = &clone
	result := clone
	return &result, nil
}

func (s *InMemory) ListByStatus(_ context.Context, ministryID id.MinistryID, status Status) ([]*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Agent
	for _, agent := range s.agents {
		if agent.MinistryID != ministryID || agent.Status != status {
			continue
		}
		clone := *agent
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SubmittedAt != nil && b.SubmittedAt != nil && !a.SubmittedAt.Equal(*b.SubmittedAt) {
			return a.SubmittedAt.Before(*b.SubmittedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}

func (s *InMemory) LinkProfile(_ context.Context, agentID id.AgentID, profileID id.ProfileID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[agentID]
	if !ok {
		return fmt.Errorf("agent %s: %w", agentID, sentinel.ErrNotFound)
	}
	agent.ProfileID = &profileID
	return nil
}

func (s *InMemory) CountByMinistry(_ context.Context, ministryID id.MinistryID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, agent := range s.agents {
		if agent.MinistryID == ministryID {
			count++
		}
	}
	return count, nil
}
