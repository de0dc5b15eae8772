package configflow

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/gryfd/pkg/db"
	"github.com/urmzd/gryfd/pkg/device/schema"
)

// EntrySetup brings created or changed entries to life.
type EntrySetup interface {
	AddEntry(ctx context.Context, entry *db.ConfigEntry) error
	ReloadEntry(ctx context.Context, entryID string) error
}

// Manager holds the flows in progress, keyed by flow id.
type Manager struct {
	entries   db.EntryStore
	setup     EntrySetup
	validator *schema.Validator

	mu    sync.Mutex
	flows map[string]*Flow
}

// NewManager creates a flow manager storing entries in entries. setup may be
// nil, in which case finished flows only touch the store.
func NewManager(entries db.EntryStore, setup EntrySetup, validator *schema.Validator) *Manager {
	if validator == nil {
		validator = schema.NewValidator()
	}
	return &Manager{
		entries:   entries,
		setup:     setup,
		validator: validator,
		flows:     make(map[string]*Flow),
	}
}

// Start begins a config flow and returns its first form.
func (m *Manager) Start(ctx context.Context) (*Result, error) {
	return m.begin(ctx, KindConfig, "", StepUser)
}

// StartOptions begins an options flow for an existing entry.
func (m *Manager) StartOptions(ctx context.Context, entryID string) (*Result, error) {
	return m.begin(ctx, KindOptions, entryID, StepInit)
}

func (m *Manager) begin(ctx context.Context, kind Kind, entryID, step string) (*Result, error) {
	f := newFlow(m, uuid.NewString(), kind)
	f.entryID = entryID

	f.mu.Lock()
	defer f.mu.Unlock()

	res, err := f.run(ctx, step, nil)
	if err != nil {
		return nil, err
	}
	if !res.Done() {
		m.mu.Lock()
		m.flows[f.id] = f
		m.mu.Unlock()
	}
	log.Debug().Str("flow", f.id).Str("kind", string(kind)).Str("step", res.StepID).Msg("Flow started")
	return res, nil
}

// Configure submits input to the flow's current step. Menus expect
// {"next_step_id": "<option>"}. Finished flows are forgotten.
func (m *Manager) Configure(ctx context.Context, flowID string, input map[string]any) (*Result, error) {
	f, err := m.get(flowID)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if input == nil {
		input = map[string]any{}
	}
	res, err := f.submit(ctx, input)
	if err != nil {
		return nil, err
	}
	if res.Done() {
		m.remove(flowID)
		log.Info().Str("flow", flowID).Str("result", string(res.Type)).Str("reason", res.Reason).Msg("Flow finished")
	}
	return res, nil
}

// Get returns the step a flow is waiting on.
func (m *Manager) Get(flowID string) (*Result, error) {
	f, err := m.get(flowID)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	res := *f.last
	return &res, nil
}

// Abort drops a flow in progress.
func (m *Manager) Abort(flowID string) error {
	if _, err := m.get(flowID); err != nil {
		return err
	}
	m.remove(flowID)
	return nil
}

// Progress lists the current step of every flow in progress.
func (m *Manager) Progress() []Result {
	m.mu.Lock()
	flows := make([]*Flow, 0, len(m.flows))
	for _, f := range m.flows {
		flows = append(flows, f)
	}
	m.mu.Unlock()

	out := make([]Result, 0, len(flows))
	for _, f := range flows {
		f.mu.Lock()
		if f.last != nil {
			out = append(out, *f.last)
		}
		f.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FlowID < out[j].FlowID })
	return out
}

func (m *Manager) get(flowID string) (*Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flows[flowID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}
	return f, nil
}

func (m *Manager) remove(flowID string) {
	m.mu.Lock()
	delete(m.flows, flowID)
	m.mu.Unlock()
}

// inProgress reports whether another config flow already claimed f's port.
// Flows busy with a step of their own are skipped.
func (m *Manager) inProgress(f *Flow) bool {
	m.mu.Lock()
	others := make([]*Flow, 0, len(m.flows))
	for _, o := range m.flows {
		if o != f && o.kind == KindConfig {
			others = append(others, o)
		}
	}
	m.mu.Unlock()

	for _, o := range others {
		if !o.mu.TryLock() {
			continue
		}
		claimed := o.claimed && o.uniqueID() == f.uniqueID()
		o.mu.Unlock()
		if claimed {
			return true
		}
	}
	return false
}
