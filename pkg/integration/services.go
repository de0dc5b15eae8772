package integration

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/gryfd/pkg/gryf"
)

// lookup resolves a service target. Unknown entries are logged and
// reported as ErrEntryNotFound.
func (m *Manager) lookup(service, entryID string) (*setup, error) {
	if entryID == "" {
		entryID = YAMLEntryID
	}

	m.mu.Lock()
	s, ok := m.setups[entryID]
	m.mu.Unlock()
	if !ok {
		log.Error().Str("service", service).Str("entry", entryID).Msg("Config entry not found")
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, entryID)
	}
	return s, nil
}

// Reset resets every module on the entry's bus.
func (m *Manager) Reset(ctx context.Context, entryID string) error {
	s, err := m.lookup("reset", entryID)
	if err != nil {
		return err
	}
	return s.bus.api.Reset(ctx, 0, true)
}

// SearchModules asks modules 1..module_count of the entry to identify
// themselves.
func (m *Manager) SearchModules(ctx context.Context, entryID string) error {
	s, err := m.lookup("search_modules", entryID)
	if err != nil {
		return err
	}
	return s.bus.api.SearchModules(ctx, s.moduleCount)
}

// GryfExpert starts the entry's expert server on ExpertTurnOn, creating it
// on first use, and stops it on any other action.
func (m *Manager) GryfExpert(ctx context.Context, entryID, action string) error {
	s, err := m.lookup("gryf_expert", entryID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	expert := s.expert
	if expert == nil && action == ExpertTurnOn {
		expert = gryf.NewExpert(s.bus.api, m.opts.ExpertAddress)
		s.expert = expert
	}
	m.mu.Unlock()

	if action == ExpertTurnOn {
		return expert.StartServer(ctx)
	}
	if expert == nil {
		return nil
	}
	return expert.StopServer()
}
