package integration

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/db"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/gryf"
	"github.com/urmzd/gryfd/pkg/platform"
)

func newTestManager(t *testing.T, entries db.EntryStore) (*Manager, *Registry, *ports) {
	t.Helper()
	p := newPorts()
	r := NewRegistry(nil, nil)
	m := NewManager(r, entries, Options{
		UpdateInterval: time.Hour,
		RetryInterval:  10 * time.Millisecond,
		ExpertAddress:  "127.0.0.1:0",
		APIOptions:     []gryf.Option{gryf.WithOpener(p.open), gryf.WithReconnectDelay(time.Hour)},
	})
	t.Cleanup(m.Close)
	return m, r, p
}

func yamlSection(port string) *config.DomainConfig {
	return &config.DomainConfig{
		Port:        port,
		ModuleCount: 2,
		Light:       config.List[config.StandardDevice]{{Name: "Kitchen", ID: 11}},
		Output:      config.List[config.DeviceClassDevice]{{Name: "Socket", ID: 12, DeviceClass: "outlet"}},
	}
}

func testEntry(port string) *db.ConfigEntry {
	return &db.ConfigEntry{
		EntryID:  "e1",
		UniqueID: port,
		Title:    config.EntryTitle(port),
		Data: config.EntryData{
			Communication: config.Communication{Port: port, ModuleCount: 1},
			Devices:       []config.DeviceConfig{{Type: config.PlatformLock, ID: 21, Name: "Door"}},
		},
	}
}

func entityIDs(t *testing.T, r *Registry) []string {
	t.Helper()
	list, err := r.ListEntities(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, e := range list {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestSetupYAML_Nil(t *testing.T) {
	m, r, _ := newTestManager(t, nil)
	require.NoError(t, m.SetupYAML(context.Background(), nil))
	assert.Empty(t, entityIDs(t, r))
}

func TestSetupYAML(t *testing.T) {
	m, r, p := newTestManager(t, nil)
	require.NoError(t, m.SetupYAML(context.Background(), yamlSection("/dev/a")))

	assert.Equal(t, []string{
		"gryfsmart_dev_a_reset",
		"gryfsmart_dev_a_line_gryf_in",
		"gryfsmart_dev_a_line_gryf_out",
		"gryfsmart_dev_a_light_11",
		"gryfsmart_dev_a_output_12",
	}, entityIDs(t, r))
	assert.True(t, r.IsConnected())

	port := p.get("/dev/a")
	port.waitFor(t, "AT+StanIN=2")
	port.waitFor(t, "AT+StanOUT=2")

	e, err := r.GetEntity(context.Background(), "gryfsmart_dev_a_light_11")
	require.NoError(t, err)
	assert.Equal(t, YAMLEntryID, e.EntryID)
	assert.Equal(t, "Gryf Smart", e.Device.Manufacturer)
	assert.Equal(t, []string{"gryfsmart", "Gryf Smart", "/dev/a"}, e.Device.Identifiers)
}

func TestSetupYAML_ConnectionFailure(t *testing.T) {
	m, r, p := newTestManager(t, nil)
	p.setFail("/dev/a", true)

	err := m.SetupYAML(context.Background(), yamlSection("/dev/a"))
	assert.ErrorIs(t, err, gryf.ErrConnection)
	assert.Empty(t, entityIDs(t, r))
}

func TestSetupEntry_CommandsReachBus(t *testing.T) {
	m, r, p := newTestManager(t, nil)
	require.NoError(t, m.SetupEntry(context.Background(), testEntry("/dev/b")))

	id := "gryfsmart_dev_b_lock_21"
	_, err := r.SetState(context.Background(), id, map[string]any{"state": "LOCK"})
	require.NoError(t, err)
	p.get("/dev/b").waitFor(t, "AT+SetOut=2,1,0,0,0,0,0")

	p.get("/dev/b").inject(t, "O=2,1,0,0,0,0,0")
	assert.Eventually(t, func() bool {
		s, _ := r.GetState(context.Background(), id)
		return s["state"] == "LOCKED"
	}, time.Second, 5*time.Millisecond)

	e, err := r.GetEntity(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Gryf Smart /dev/b", e.Device.Name)
	assert.Equal(t, "1.0.0", e.Device.SWVersion)
}

func TestSetupEntry_NotReady(t *testing.T) {
	m, _, p := newTestManager(t, nil)
	p.setFail("/dev/b", true)

	err := m.SetupEntry(context.Background(), testEntry("/dev/b"))
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, err, gryf.ErrConnection)
}

func TestSetupEntry_Twice(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	require.NoError(t, m.SetupEntry(context.Background(), testEntry("/dev/b")))
	assert.ErrorIs(t, m.SetupEntry(context.Background(), testEntry("/dev/b")), ErrAlreadySetUp)
}

func TestSetupEntry_SharesYAMLBus(t *testing.T) {
	m, r, p := newTestManager(t, nil)
	ctx := context.Background()
	require.NoError(t, m.SetupYAML(ctx, yamlSection("/dev/a")))
	entry := testEntry("/dev/a")
	entry.UniqueID = "second"
	require.NoError(t, m.SetupEntry(ctx, entry))

	assert.Equal(t, 1, p.openCount("/dev/a"))
	// Per-bus entities collide on the shared port and are skipped once.
	assert.Contains(t, entityIDs(t, r), "gryfsmart_dev_a_lock_21")

	require.NoError(t, m.UnloadEntry(ctx, "e1"))
	assert.NotContains(t, entityIDs(t, r), "gryfsmart_dev_a_lock_21")
	assert.False(t, p.get("/dev/a").isClosed())

	require.NoError(t, m.UnloadEntry(ctx, YAMLEntryID))
	assert.True(t, p.get("/dev/a").isClosed())
	assert.Empty(t, entityIDs(t, r))
	assert.False(t, r.IsConnected())
}

func TestSetupEntry_SharedBusPollsLargestModuleCount(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	ctx := context.Background()
	require.NoError(t, m.SetupYAML(ctx, yamlSection("/dev/a")))

	entry := testEntry("/dev/a")
	entry.UniqueID = "second"
	entry.Data.Communication.ModuleCount = 4
	require.NoError(t, m.SetupEntry(ctx, entry))

	busModules := func() int {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.buses["/dev/a"].api.ModuleCount()
	}
	assert.Equal(t, 4, busModules())

	require.NoError(t, m.UnloadEntry(ctx, "e1"))
	assert.Equal(t, 2, busModules())
}

func TestSetupEntry_OpeningPortDoesNotBlockManager(t *testing.T) {
	m, r, p := newTestManager(t, nil)
	ctx := context.Background()
	h := p.hold("/dev/a")

	first := make(chan error, 1)
	go func() { first <- m.SetupEntry(ctx, testEntry("/dev/a")) }()
	<-h.entered

	status := make(chan []BusStatus, 1)
	go func() { status <- m.Status() }()
	select {
	case st := <-status:
		assert.Empty(t, st)
	case <-time.After(time.Second):
		t.Fatal("Status blocked while a port was opening")
	}
	assert.False(t, r.IsConnected())

	// A second setup on the same port waits for the open and shares it.
	second := make(chan error, 1)
	go func() { second <- m.SetupYAML(ctx, yamlSection("/dev/a")) }()

	close(h.release)
	require.NoError(t, recv(t, first))
	require.NoError(t, recv(t, second))
	assert.Equal(t, 1, p.openCount("/dev/a"))
	assert.Len(t, m.Status(), 2)
	assert.True(t, r.IsConnected())
}

func TestAddEntities_DetachesRejected(t *testing.T) {
	m, r, _ := newTestManager(t, nil)
	ctx := context.Background()
	require.NoError(t, r.Add(ctx, newStubEntity("a", "")))

	dup, fresh := newStubEntity("a", ""), newStubEntity("b", "")
	m.addEntities(ctx, "e1", []platform.Entity{dup, fresh})

	assert.True(t, dup.detached)
	assert.False(t, fresh.detached)
	assert.Equal(t, []string{"a", "b"}, entityIDs(t, r))
}

func TestUnloadEntry_Unknown(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	assert.ErrorIs(t, m.UnloadEntry(context.Background(), "nope"), ErrEntryNotFound)
}

func TestSetupEntries_RetriesUntilReady(t *testing.T) {
	d := openTestDB(t)
	store := d.Entries()
	entry := testEntry("/dev/c")
	entry.EntryID = ""
	require.NoError(t, store.Create(context.Background(), entry))

	m, r, p := newTestManager(t, store)
	p.setFail("/dev/c", true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, m.SetupEntries(ctx))
	assert.Empty(t, entityIDs(t, r))

	p.setFail("/dev/c", false)
	assert.Eventually(t, func() bool {
		for _, id := range entityIDs(t, r) {
			if id == "gryfsmart_dev_c_lock_21" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAddEntry_RetriesAfterRequestEnds(t *testing.T) {
	d := openTestDB(t)
	store := d.Entries()
	entry := testEntry("/dev/f")
	entry.EntryID = ""
	require.NoError(t, store.Create(context.Background(), entry))

	m, r, p := newTestManager(t, store)
	p.setFail("/dev/f", true)

	ctx, cancel := context.WithCancel(context.Background())
	assert.ErrorIs(t, m.AddEntry(ctx, entry), ErrNotReady)
	cancel()

	p.setFail("/dev/f", false)
	assert.Eventually(t, func() bool {
		for _, id := range entityIDs(t, r) {
			if id == "gryfsmart_dev_f_lock_21" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReloadEntry_AppliesOptions(t *testing.T) {
	d := openTestDB(t)
	store := d.Entries()
	ctx := context.Background()
	entry := testEntry("/dev/d")
	entry.EntryID = ""
	require.NoError(t, store.Create(ctx, entry))

	m, r, _ := newTestManager(t, store)
	require.NoError(t, m.SetupEntries(ctx))
	assert.Contains(t, entityIDs(t, r), "gryfsmart_dev_d_lock_21")

	opts := entry.Data.Clone()
	opts.Devices = []config.DeviceConfig{{Type: config.PlatformGate, ID: 31, Name: "Gate"}}
	require.NoError(t, store.UpdateOptions(ctx, entry.EntryID, opts))
	require.NoError(t, m.ReloadEntry(ctx, entry.EntryID))

	ids := entityIDs(t, r)
	assert.NotContains(t, ids, "gryfsmart_dev_d_lock_21")
	assert.Contains(t, ids, "gryfsmart_dev_d_gate_31")

	assert.ErrorIs(t, m.ReloadEntry(ctx, "missing"), ErrEntryNotFound)
}

func TestServices(t *testing.T) {
	m, _, p := newTestManager(t, nil)
	ctx := context.Background()
	require.NoError(t, m.SetupYAML(ctx, yamlSection("/dev/a")))
	port := p.get("/dev/a")

	require.NoError(t, m.Reset(ctx, ""))
	port.waitFor(t, "AT+RST=0")

	require.NoError(t, m.SearchModules(ctx, YAMLEntryID))
	port.waitFor(t, "AT+Search=0,1")
	port.waitFor(t, "AT+Search=0,2")

	port.inject(t, "C=2,7")
	assert.Eventually(t, func() bool {
		st := m.Status()
		return len(st) == 1 && st[0].FoundModules[2] == 7
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, m.Reset(ctx, "nope"), ErrEntryNotFound)
	assert.ErrorIs(t, m.SearchModules(ctx, "nope"), ErrEntryNotFound)
	assert.ErrorIs(t, m.GryfExpert(ctx, "nope", ExpertTurnOn), ErrEntryNotFound)
}

func TestGryfExpertService(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	ctx := context.Background()
	require.NoError(t, m.SetupYAML(ctx, yamlSection("/dev/a")))

	// Stopping before the first start does nothing.
	require.NoError(t, m.GryfExpert(ctx, "", ExpertTurnOff))
	assert.Empty(t, m.Status()[0].ExpertAddr)

	require.NoError(t, m.GryfExpert(ctx, "", ExpertTurnOn))
	addr := m.Status()[0].ExpertAddr
	require.NotEmpty(t, addr)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	_ = conn.Close()

	require.NoError(t, m.GryfExpert(ctx, "", ExpertTurnOff))
	assert.Empty(t, m.Status()[0].ExpertAddr)
}

func TestRegistry_ControllerInterface(t *testing.T) {
	var _ device.Controller = (*Registry)(nil)
	var _ device.EventSubscriber = (*Registry)(nil)
}
