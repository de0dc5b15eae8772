// Package integration sets up Gryf buses from the YAML section and from
// stored config entries, registers their entities and runs the bus
// services.
package integration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/db"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/gryf"
	"github.com/urmzd/gryfd/pkg/platform"
)

// YAMLEntryID owns the bus set up from the YAML section. Services called
// with an empty entry id use it.
const YAMLEntryID = "yaml"

// Expert actions.
const (
	ExpertTurnOn  = "turn_on"
	ExpertTurnOff = "turn_off"
)

// Options tunes a Manager.
type Options struct {
	// UpdateInterval is the module poll period.
	UpdateInterval time.Duration
	// RetryInterval is the pause between setup attempts of a not-ready entry.
	RetryInterval time.Duration
	// ExpertAddress is where expert servers listen.
	ExpertAddress string
	// APIOptions are passed to every bus API.
	APIOptions []gryf.Option
}

// bus is one open serial link, shared by every setup on its port. owners
// maps each entry using it to the module count it declares.
type bus struct {
	api    *gryf.API
	owners map[string]int
}

func (b *bus) moduleCount() int {
	n := 1
	for _, c := range b.owners {
		n = max(n, c)
	}
	return n
}

// setup is the runtime data of one entry.
type setup struct {
	entryID     string
	port        string
	moduleCount int
	bus         *bus
	expert      *gryf.Expert
}

// Manager owns every bus and setup.
type Manager struct {
	registry *Registry
	entries  db.EntryStore
	opts     Options

	mu      sync.Mutex
	buses   map[string]*bus
	opening map[string]chan struct{}
	setups  map[string]*setup
	retries map[string]*retryHandle
}

type retryHandle struct {
	cancel context.CancelFunc
}

// NewManager creates a manager registering entities in registry. entries
// may be nil when no store is available.
func NewManager(registry *Registry, entries db.EntryStore, opts Options) *Manager {
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 30 * time.Second
	}
	m := &Manager{
		registry: registry,
		entries:  entries,
		opts:     opts,
		buses:    make(map[string]*bus),
		opening:  make(map[string]chan struct{}),
		setups:   make(map[string]*setup),
		retries:  make(map[string]*retryHandle),
	}
	registry.SetConnected(m.anyConnected)
	return m
}

// SetupYAML sets up the YAML section. A nil section is a no-op.
func (m *Manager) SetupYAML(ctx context.Context, domain *config.DomainConfig) error {
	if domain == nil {
		return nil
	}

	port := domain.Port
	owner := platform.Owner{Port: port, EntryID: YAMLEntryID, Device: deviceInfo(port)}
	if err := m.setup(ctx, owner, max(domain.ModuleCount, 1), domain.Devices()); err != nil {
		log.Error().Err(err).Str("port", port).Msg("Unable to connect")
		return err
	}
	return nil
}

// SetupEntries sets up every stored entry. Entries whose bus is not ready
// are retried in the background until ctx is done.
func (m *Manager) SetupEntries(ctx context.Context) error {
	if m.entries == nil {
		return nil
	}
	list, err := m.entries.List(ctx)
	if err != nil {
		return fmt.Errorf("list config entries: %w", err)
	}
	for _, entry := range list {
		if err := m.SetupEntry(ctx, entry); err != nil {
			if errors.Is(err, ErrNotReady) {
				m.retry(ctx, entry.EntryID)
				continue
			}
			log.Error().Err(err).Str("entry", entry.EntryID).Msg("Config entry setup failed")
		}
	}
	return nil
}

// SetupEntry sets up one config entry. The bus is shared with any setup
// already using the same port; otherwise it is opened here. Failing to
// open it returns ErrNotReady.
func (m *Manager) SetupEntry(ctx context.Context, entry *db.ConfigEntry) error {
	data := entry.Effective()
	owner := platform.Owner{
		Port:    data.Communication.Port,
		EntryID: entry.EntryID,
		Device:  deviceInfo(entry.UniqueID),
	}
	if err := m.setup(ctx, owner, max(data.Communication.ModuleCount, 1), data.Devices); err != nil {
		if errors.Is(err, gryf.ErrConnection) {
			return fmt.Errorf("%w: %w", ErrNotReady, err)
		}
		return err
	}
	return nil
}

func (m *Manager) setup(ctx context.Context, owner platform.Owner, moduleCount int, devices []config.DeviceConfig) error {
	b, err := m.claimBus(ctx, owner, moduleCount)
	if err != nil {
		return err
	}

	m.addEntities(ctx, owner.EntryID, platform.BuildAll(devices, owner, b.api))

	if err := b.api.UpdateStates(ctx); err != nil {
		log.Warn().Err(err).Str("port", owner.Port).Msg("Initial state update failed")
	}

	log.Info().
		Str("entry", owner.EntryID).
		Str("port", owner.Port).
		Int("modules", moduleCount).
		Int("devices", len(devices)).
		Msg("Gryf bus set up")
	return nil
}

// AddEntry sets up a newly created entry. When its bus is not ready the
// entry is retried in the background until it is unloaded or the manager
// closed, and ErrNotReady is still returned.
func (m *Manager) AddEntry(ctx context.Context, entry *db.ConfigEntry) error {
	err := m.SetupEntry(ctx, entry)
	if errors.Is(err, ErrNotReady) {
		m.retry(context.WithoutCancel(ctx), entry.EntryID)
	}
	return err
}

// claimBus records the setup of owner on the bus of its port, opening the
// port when no setup uses it yet. The port is opened without holding m.mu;
// concurrent setups on the same port wait for that open to finish.
func (m *Manager) claimBus(ctx context.Context, owner platform.Owner, moduleCount int) (*bus, error) {
	for {
		m.mu.Lock()
		if _, ok := m.setups[owner.EntryID]; ok {
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrAlreadySetUp, owner.EntryID)
		}
		if b, ok := m.buses[owner.Port]; ok {
			m.register(b, owner, moduleCount)
			m.mu.Unlock()
			log.Info().Str("port", owner.Port).Str("entry", owner.EntryID).Msg("Reusing open bus")
			return b, nil
		}
		if wait, ok := m.opening[owner.Port]; ok {
			m.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		m.opening[owner.Port] = done
		m.mu.Unlock()

		b, err := m.openBus(ctx, owner.Port, moduleCount)

		m.mu.Lock()
		delete(m.opening, owner.Port)
		close(done)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		if _, ok := m.setups[owner.EntryID]; ok {
			m.mu.Unlock()
			_ = b.api.Close()
			return nil, fmt.Errorf("%w: %s", ErrAlreadySetUp, owner.EntryID)
		}
		m.buses[owner.Port] = b
		m.register(b, owner, moduleCount)
		m.mu.Unlock()
		return b, nil
	}
}

func (m *Manager) openBus(ctx context.Context, port string, moduleCount int) (*bus, error) {
	api := gryf.NewAPI(port, m.opts.APIOptions...)
	if err := api.StartConnection(ctx); err != nil {
		return nil, err
	}
	api.SetModuleCount(moduleCount)
	if err := api.StartUpdateInterval(m.opts.UpdateInterval); err != nil {
		_ = api.Close()
		return nil, err
	}
	return &bus{api: api, owners: make(map[string]int)}, nil
}

// register adds owner to b. The bus polls as many modules as its largest
// owner declares. Callers hold m.mu.
func (m *Manager) register(b *bus, owner platform.Owner, moduleCount int) {
	b.owners[owner.EntryID] = moduleCount
	b.api.SetModuleCount(b.moduleCount())
	m.setups[owner.EntryID] = &setup{
		entryID:     owner.EntryID,
		port:        owner.Port,
		moduleCount: moduleCount,
		bus:         b,
	}
}

// addEntities registers entities, detaching the ones the registry rejects
// so they drop any bus subscription taken when built.
func (m *Manager) addEntities(ctx context.Context, entryID string, entities []platform.Entity) {
	for _, e := range entities {
		if err := m.registry.Add(ctx, e); err != nil {
			log.Warn().Err(err).Str("entry", entryID).Msg("Skipping entity")
			e.Detach()
		}
	}
}

// UnloadEntry removes an entry's entities and stops its expert server. The
// bus is closed once no setup uses it.
func (m *Manager) UnloadEntry(_ context.Context, entryID string) error {
	m.mu.Lock()
	if h, ok := m.retries[entryID]; ok {
		h.cancel()
		delete(m.retries, entryID)
	}
	s, ok := m.setups[entryID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEntryNotFound, entryID)
	}
	delete(m.setups, entryID)
	delete(s.bus.owners, entryID)
	closeBus := len(s.bus.owners) == 0
	if closeBus {
		delete(m.buses, s.port)
	} else {
		s.bus.api.SetModuleCount(s.bus.moduleCount())
	}
	expert := s.expert
	m.mu.Unlock()

	removed := m.registry.RemoveEntry(entryID)

	if expert != nil {
		if err := expert.StopServer(); err != nil {
			log.Warn().Err(err).Str("entry", entryID).Msg("Failed to stop expert server")
		}
	}
	if closeBus {
		if err := s.bus.api.Close(); err != nil {
			log.Warn().Err(err).Str("port", s.port).Msg("Failed to close bus")
		}
	}

	log.Info().Str("entry", entryID).Int("entities", removed).Bool("bus_closed", closeBus).Msg("Entry unloaded")
	return nil
}

// ReloadEntry unloads an entry if set up and sets it up again from the
// store.
func (m *Manager) ReloadEntry(ctx context.Context, entryID string) error {
	if m.entries == nil {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, entryID)
	}
	entry, err := m.entries.Get(ctx, entryID)
	if err != nil {
		if errors.Is(err, db.ErrEntryNotFound) {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, entryID)
		}
		return err
	}

	if err := m.UnloadEntry(ctx, entryID); err != nil && !errors.Is(err, ErrEntryNotFound) {
		return err
	}
	if err := m.SetupEntry(ctx, entry); err != nil {
		if errors.Is(err, ErrNotReady) {
			m.retry(context.WithoutCancel(ctx), entryID)
		}
		return err
	}
	return nil
}

// retry sets an entry up again every RetryInterval until it succeeds, it is
// unloaded or ctx is done.
func (m *Manager) retry(ctx context.Context, entryID string) {
	m.mu.Lock()
	if _, ok := m.retries[entryID]; ok {
		m.mu.Unlock()
		return
	}
	rctx, cancel := context.WithCancel(ctx)
	h := &retryHandle{cancel: cancel}
	m.retries[entryID] = h
	m.mu.Unlock()

	log.Warn().Str("entry", entryID).Dur("every", m.opts.RetryInterval).Msg("Bus not ready, retrying")

	go func() {
		defer func() {
			m.mu.Lock()
			if m.retries[entryID] == h {
				delete(m.retries, entryID)
			}
			m.mu.Unlock()
			cancel()
		}()

		ticker := time.NewTicker(m.opts.RetryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-rctx.Done():
				return
			case <-ticker.C:
			}

			entry, err := m.entries.Get(rctx, entryID)
			if err != nil {
				log.Warn().Err(err).Str("entry", entryID).Msg("Entry vanished, retry stopped")
				return
			}
			err = m.SetupEntry(rctx, entry)
			if err == nil || errors.Is(err, ErrAlreadySetUp) {
				return
			}
			log.Debug().Err(err).Str("entry", entryID).Msg("Setup retry failed")
		}
	}()
}

// Close unloads every setup.
func (m *Manager) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.setups))
	for id := range m.setups {
		ids = append(ids, id)
	}
	for id, h := range m.retries {
		h.cancel()
		delete(m.retries, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_ = m.UnloadEntry(context.Background(), id)
	}
}

func (m *Manager) anyConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.buses {
		if b.api.IsConnected() {
			return true
		}
	}
	return false
}

// BusStatus describes one set up entry.
type BusStatus struct {
	EntryID      string      `json:"entry_id"`
	Port         string      `json:"port"`
	ModuleCount  int         `json:"module_count"`
	Connected    bool        `json:"connected"`
	ExpertAddr   string      `json:"expert_address,omitempty"` // Set while the expert server runs
	FoundModules map[int]int `json:"found_modules,omitempty"`
}

// Status lists every set up entry, sorted by entry id.
func (m *Manager) Status() []BusStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]BusStatus, 0, len(m.setups))
	for _, s := range m.setups {
		st := BusStatus{
			EntryID:      s.entryID,
			Port:         s.port,
			ModuleCount:  s.moduleCount,
			Connected:    s.bus.api.IsConnected(),
			FoundModules: s.bus.api.FoundModules(),
		}
		if s.expert != nil && s.expert.Running() {
			st.ExpertAddr = s.expert.Addr()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	return out
}

// deviceInfo groups an entry's entities under one hub device.
func deviceInfo(uniqueID string) device.DeviceInfo {
	return device.DeviceInfo{
		Identifiers:  []string{config.Domain, "Gryf Smart", uniqueID},
		Name:         "Gryf Smart " + uniqueID,
		Manufacturer: "Gryf Smart",
		Model:        "serial",
		SWVersion:    "1.0.0",
		HWVersion:    "1.0.0",
	}
}
