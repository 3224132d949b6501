package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	id "sigrh/pkg/domain"
	"sigrh/pkg/platform/sentinel"
)

// InMemory is a map-backed catalog for tests and local development.
// Seed it with Put* before handing it to the validator or the handlers.
type InMemory struct {
	mu        sync.RWMutex
	corps     map[id.CorpsID]*Corps
	grades    map[id.GradeID]*Grade
	payScales map[id.PayScaleID]*PayScale
	steps     map[id.StepID]*Step
}

func NewInMemory() *InMemory {
	return &InMemory{
		corps:     make(map[id.CorpsID]*Corps),
		grades:    make(map[id.GradeID]*Grade),
		payScales: make(map[id.PayScaleID]*PayScale),
		steps:     make(map[id.StepID]*Step),
	}
}

func (s *InMemory) PutCorps(c *Corps) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.corps[c.ID] = &cp
}

func (s *InMemory) PutGrade(g *Grade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.grades[g.ID] = &cp
}

// PutPayScale enforces the one-active-scale-per-(category, grade) invariant
// so fixtures cannot drift from what the schema guarantees.
func (s *InMemory) PutPayScale(p *PayScale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Active {
		for _, existing := range s.payScales {
			if existing.Active && existing.ID != p.ID &&
				existing.Category == p.Category && existing.GradeID == p.GradeID {
				return fmt.Errorf("pay scale for (%s, %s): %w", p.Category, p.GradeID, sentinel.ErrConflict)
			}
		}
	}
	cp := *p
	s.payScales[p.ID] = &cp
	return nil
}

// PutStep enforces step-number uniqueness within a pay-scale.
func (s *InMemory) PutStep(st *Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.steps {
		if existing.ID != st.ID && existing.PayScaleID == st.PayScaleID && existing.Number == st.Number {
			return fmt.Errorf("step %d of pay scale %s: %w", st.Number, st.PayScaleID, sentinel.ErrConflict)
		}
	}
	cp := *st
	s.steps[st.ID] = &cp
	return nil
}

func (s *InMemory) GetCorps(_ context.Context, corpsID id.CorpsID) (*Corps, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.corps[corpsID]
	if !ok {
		return nil, fmt.Errorf("corps %s: %w", corpsID, sentinel.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *InMemory) GetGrade(_ context.Context, gradeID id.GradeID) (*Grade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grades[gradeID]
	if !ok {
		return nil, fmt.Errorf("grade %s: %w", gradeID, sentinel.ErrNotFound)
	}
	cp := *g
	return &cp, nil
}

func (s *InMemory) GetPayScale(_ context.Context, payScaleID id.PayScaleID) (*PayScale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payScales[payScaleID]
	if !ok {
		return nil, fmt.Errorf("pay scale %s: %w", payScaleID, sentinel.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) GetStep(_ context.Context, stepID id.StepID) (*Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.steps[stepID]
	if !ok {
		return nil, fmt.Errorf("step %s: %w", stepID, sentinel.ErrNotFound)
	}
	cp := *st
	return &cp, nil
}

func (s *InMemory) ListCorps(_ context.Context) ([]*Corps, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Corps, 0, len(s.corps))
	for _, c := range s.corps {
		if !c.Active {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *InMemory) ListGrades(_ context.Context) ([]*Grade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Grade, 0, len(s.grades))
	for _, g := range s.grades {
		if !g.Active || !g.Transversal() {
			continue
		}
		cp := *g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal > out[j].Ordinal })
	return out, nil
}

func (s *InMemory) ListPayScales(_ context.Context, category Category, gradeID id.GradeID) ([]*PayScale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*PayScale
	for _, p := range s.payScales {
		if !p.Active || p.Category != category || p.GradeID != gradeID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *InMemory) ListSteps(_ context.Context, payScaleID id.PayScaleID) ([]*Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Step
	for _, st := range s.steps {
		if !st.Active || st.PayScaleID != payScaleID {
			continue
		}
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out, nil
}
