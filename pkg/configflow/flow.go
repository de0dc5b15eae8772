// Package configflow builds Gryf Smart config entries through a multi-step
// dialogue of menus and forms. The same steps edit an existing entry's
// options.
package configflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/db"
)

// Step ids.
const (
	StepUser          = "user"
	StepInit          = "init"
	StepDeviceMenu    = "device_menu"
	StepAddDevice     = "add_device"
	StepEditDevice    = "edit_device"
	StepCommunication = "communication"
	StepFinish        = "finish"
)

const fieldDeviceIndex = "device_index"

// Flow is one config or options dialogue in progress.
type Flow struct {
	id      string
	kind    Kind
	entryID string
	m       *Manager

	mu     sync.Mutex
	data   config.EntryData
	lastID int
	last   *Result
	// claimed is set once the port passed the duplicate check.
	claimed bool
	// fields of the form currently shown, nil for menus.
	fields []Field
}

func newFlow(m *Manager, id string, kind Kind) *Flow {
	return &Flow{
		id:     id,
		kind:   kind,
		m:      m,
		lastID: config.FirstAddress,
		data:   config.EntryData{Devices: []config.DeviceConfig{}},
	}
}

// uniqueID is the port the entry will be keyed by.
func (f *Flow) uniqueID() string {
	return f.data.Communication.Port
}

// submit validates input against the shown step and advances the flow.
func (f *Flow) submit(ctx context.Context, input map[string]any) (*Result, error) {
	if f.last == nil {
		return nil, fmt.Errorf("%w: flow %s has not started", ErrUnknownStep, f.id)
	}

	if f.last.Type == ResultMenu {
		next := stringValue(input["next_step_id"])
		for _, o := range f.last.MenuOptions {
			if o.Value == next {
				return f.run(ctx, next, nil)
			}
		}
		return nil, fmt.Errorf("%w: %q is not offered by %s", ErrUnknownStep, next, f.last.StepID)
	}

	filled := withDefaults(f.fields, input)
	if err := f.m.validator.Validate(formSchema(f.fields), filled); err != nil {
		log.Debug().Err(err).Str("flow", f.id).Str("step", f.last.StepID).Msg("Rejected step input")
		res := *f.last
		res.Errors = fieldErrors(err)
		return f.show(&res), nil
	}
	return f.run(ctx, f.last.StepID, filled)
}

// run executes a step. A nil input shows the step.
func (f *Flow) run(ctx context.Context, step string, input map[string]any) (*Result, error) {
	switch step {
	case StepUser:
		return f.stepUser(ctx, input)
	case StepInit:
		return f.stepInit(ctx)
	case StepDeviceMenu:
		return f.menu(StepDeviceMenu, menuOptions()), nil
	case StepAddDevice:
		return f.menu(StepAddDevice, platformOptions()), nil
	case StepEditDevice:
		return f.stepEditDevice(input)
	case StepCommunication:
		return f.stepCommunication(ctx, input)
	case StepFinish:
		return f.stepFinish(ctx)
	}

	if p := config.Platform(step); p.Valid() {
		return f.stepPlatform(p, input, nil), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownStep, step)
}

func (f *Flow) stepUser(ctx context.Context, input map[string]any) (*Result, error) {
	if input == nil {
		return f.form(StepUser, communicationFields(f.data.Communication)), nil
	}

	f.setCommunication(input)
	if res, err := f.abortIfConfigured(ctx); res != nil || err != nil {
		return res, err
	}
	return f.run(ctx, StepDeviceMenu, nil)
}

func (f *Flow) stepInit(ctx context.Context) (*Result, error) {
	entry, err := f.m.entries.Get(ctx, f.entryID)
	if err != nil {
		if errors.Is(err, db.ErrEntryNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, f.entryID)
		}
		return nil, err
	}
	f.data = entry.Effective().Clone()
	if f.data.Devices == nil {
		f.data.Devices = []config.DeviceConfig{}
	}
	return f.run(ctx, StepDeviceMenu, nil)
}

func (f *Flow) stepCommunication(ctx context.Context, input map[string]any) (*Result, error) {
	if input == nil {
		return f.form(StepCommunication, communicationFields(f.data.Communication)), nil
	}

	f.setCommunication(input)
	if f.kind == KindConfig {
		if res, err := f.abortIfConfigured(ctx); res != nil || err != nil {
			return res, err
		}
	}
	return f.run(ctx, StepDeviceMenu, nil)
}

func (f *Flow) setCommunication(input map[string]any) {
	f.data.Communication.Port = stringValue(input[config.KeyPort])
	f.data.Communication.ModuleCount = intValue(input[config.KeyModuleCount])
}

// abortIfConfigured ends a config flow whose port already has an entry or
// another flow in progress.
func (f *Flow) abortIfConfigured(ctx context.Context) (*Result, error) {
	_, err := f.m.entries.GetByUniqueID(ctx, f.uniqueID())
	switch {
	case err == nil:
		return f.abort(AbortAlreadyConfigured), nil
	case !errors.Is(err, db.ErrEntryNotFound):
		return nil, err
	}
	if f.m.inProgress(f) {
		return f.abort(AbortAlreadyInProgress), nil
	}
	f.claimed = true
	return nil, nil
}

// stepPlatform adds one device record per submission and shows the form
// again. A blank name or address returns to the platform menu.
func (f *Flow) stepPlatform(p config.Platform, input map[string]any, edited *config.DeviceConfig) *Result {
	if input != nil {
		rec, ok := recordFrom(p, input)
		if !ok {
			return f.menu(StepAddDevice, platformOptions())
		}
		f.data.Devices = append(f.data.Devices, rec)
		f.lastID = rec.ID
		log.Debug().Str("flow", f.id).Str("type", string(p)).Int("id", rec.ID).Msg("Device added")
	}
	return f.form(string(p), platformFields(p, f.lastID, edited))
}

// stepEditDevice removes the selected record and shows its form pre-filled,
// so submitting it again puts the record back.
func (f *Flow) stepEditDevice(input map[string]any) (*Result, error) {
	if len(f.data.Devices) == 0 {
		return f.menu(StepDeviceMenu, menuOptions()), nil
	}

	if input == nil {
		opts := make([]Option, 0, len(f.data.Devices))
		for i, d := range f.data.Devices {
			opts = append(opts, Option{
				Value: strconv.Itoa(i),
				Label: fmt.Sprintf("%s (ID: %d)", d.Name, d.ID),
			})
		}
		field := Field{Name: fieldDeviceIndex, Type: FieldSelect, Required: true, Options: opts}
		return f.form(StepEditDevice, []Field{field}), nil
	}

	idx := intValue(input[fieldDeviceIndex])
	if idx < 0 || idx >= len(f.data.Devices) {
		res := *f.last
		res.Errors = map[string]string{fieldDeviceIndex: "invalid"}
		return f.show(&res), nil
	}
	edited := f.data.Devices[idx]
	f.data.Devices = append(f.data.Devices[:idx], f.data.Devices[idx+1:]...)
	return f.stepPlatform(edited.Type, nil, &edited), nil
}

func (f *Flow) stepFinish(ctx context.Context) (*Result, error) {
	data := f.data.Clone()
	port := data.Communication.Port

	if f.kind == KindOptions {
		if err := f.m.entries.UpdateOptions(ctx, f.entryID, data); err != nil {
			if errors.Is(err, db.ErrEntryNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, f.entryID)
			}
			return nil, err
		}
		if f.m.setup != nil {
			if err := f.m.setup.ReloadEntry(ctx, f.entryID); err != nil {
				log.Warn().Err(err).Str("entry", f.entryID).Msg("Reload after options change failed")
			}
		}
		return f.show(&Result{Type: ResultCreateEntry, Title: port, EntryID: f.entryID}), nil
	}

	entry := &db.ConfigEntry{
		UniqueID: port,
		Title:    config.EntryTitle(port),
		Data:     data,
	}
	if err := f.m.entries.Create(ctx, entry); err != nil {
		if errors.Is(err, db.ErrEntryExists) {
			return f.abort(AbortAlreadyConfigured), nil
		}
		return nil, err
	}
	log.Info().Str("entry", entry.EntryID).Str("port", port).Int("devices", len(data.Devices)).Msg("Config entry created")

	if f.m.setup != nil {
		if err := f.m.setup.AddEntry(ctx, entry); err != nil {
			log.Warn().Err(err).Str("entry", entry.EntryID).Msg("New entry not set up yet")
		}
	}
	return f.show(&Result{Type: ResultCreateEntry, Title: entry.Title, EntryID: entry.EntryID, Data: &data}), nil
}

func (f *Flow) form(step string, fields []Field) *Result {
	f.fields = fields
	return f.show(&Result{Type: ResultForm, StepID: step, DataSchema: fields})
}

func (f *Flow) menu(step string, options []Option) *Result {
	f.fields = nil
	return f.show(&Result{Type: ResultMenu, StepID: step, MenuOptions: options})
}

func (f *Flow) abort(reason string) *Result {
	f.fields = nil
	return f.show(&Result{Type: ResultAbort, Reason: reason})
}

// show stamps res with the flow identity and makes it the current step.
func (f *Flow) show(res *Result) *Result {
	res.FlowID = f.id
	res.Handler = config.Domain
	res.Kind = f.kind
	f.last = res
	return res
}

func menuOptions() []Option {
	opts := make([]Option, 0, len(config.MenuOrder))
	for _, key := range config.MenuOrder {
		opts = append(opts, Option{Value: key, Label: config.MenuOptions[key]})
	}
	return opts
}

// platformOptions lists every platform followed by a way back to the
// device menu.
func platformOptions() []Option {
	opts := make([]Option, 0, len(config.Platforms)+1)
	for _, p := range config.Platforms {
		opts = append(opts, Option{Value: string(p), Label: config.PublicNames[p]})
	}
	return append(opts, Option{Value: StepDeviceMenu, Label: "Back"})
}
