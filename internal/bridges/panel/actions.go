package panel

import (
	"context"
	"fmt"
	"time"
)

// Target is the kind of device an action drives.
type Target string

// Actuation targets.
const (
	TargetLight   Target = "light"
	TargetClimate Target = "climate"
)

// Key bindings known to the panel firmware.
const (
	// dashboardQueue is the input queue carrying the overhead console keys.
	dashboardQueue int32 = 9

	// keyDomeLight toggles the dome light.
	keyDomeLight int32 = 0x13

	// keyPack1 is the first climate pack key.
	keyPack1 int32 = 0x22
)

// Action is a single on/off command for one entity.
type Action struct {
	Target   Target
	EntityID string
	On       bool
}

// String returns a human-readable representation of the action.
func (a Action) String() string {
	state := "off"
	if a.On {
		state = "on"
	}
	return fmt.Sprintf("%s %s -> %s", a.Target, a.EntityID, state)
}

// Actuator sends on/off commands to the home automation controller.
// homeassistant.Client satisfies this interface.
type Actuator interface {
	TurnOnLight(ctx context.Context, entityID string) error
	TurnOffLight(ctx context.Context, entityID string) error
	TurnOnAC(ctx context.Context, entityID string) error
	TurnOffAC(ctx context.Context, entityID string) error
}

// ActuationResult describes the outcome of one actuation call.
type ActuationResult struct {
	Action   Action
	Source   Kind
	Err      error
	Duration time.Duration
	At       time.Time
}

type keyBinding struct {
	queueID int32
	keyCode int32
}

type keyRule struct {
	target  Target
	enabled bool
	name    string
}

// keyPolicy maps physical keys to targets. A key's release turns the target
// on and its press turns it off.
//
// Pack 1 used to drive the climate unit. The pack channel (KindPackEvent)
// replaced it, so the binding stays disabled until product confirms whether
// it should come back.
var keyPolicy = map[keyBinding]keyRule{
	{queueID: dashboardQueue, keyCode: keyDomeLight}: {target: TargetLight, enabled: true, name: "dome_light"},
	{queueID: dashboardQueue, keyCode: keyPack1}:     {target: TargetClimate, enabled: false, name: "pack_1"},
}

// ActionMapper applies the fixed key/pack policy to decoded events.
type ActionMapper struct {
	lightEntityID   string
	climateEntityID string
	logger          Logger
}

// NewActionMapper creates a mapper targeting the given entities.
func NewActionMapper(lightEntityID, climateEntityID string, logger Logger) *ActionMapper {
	return &ActionMapper{
		lightEntityID:   lightEntityID,
		climateEntityID: climateEntityID,
		logger:          logger,
	}
}

// MapKeyEvent returns the action for a key event, if any.
func (m *ActionMapper) MapKeyEvent(ev KeyEvent) (Action, bool) {
	rule, ok := keyPolicy[keyBinding{queueID: ev.QueueID, keyCode: ev.KeyCode}]
	if !ok {
		return Action{}, false
	}
	if !rule.enabled {
		if m.logger != nil {
			m.logger.Debug("key binding disabled, ignoring", "binding", rule.name, "event", ev.String())
		}
		return Action{}, false
	}

	return Action{
		Target:   rule.target,
		EntityID: m.entityFor(rule.target),
		On:       ev.IsRelease,
	}, true
}

// MapPackEvent returns the climate action for a pack event.
func (m *ActionMapper) MapPackEvent(ev PackEvent) (Action, bool) {
	return Action{
		Target:   TargetClimate,
		EntityID: m.climateEntityID,
		On:       ev.On,
	}, true
}

func (m *ActionMapper) entityFor(t Target) string {
	if t == TargetClimate {
		return m.climateEntityID
	}
	return m.lightEntityID
}

// Execute performs the action through the actuator.
func Execute(ctx context.Context, act Actuator, a Action) error {
	switch {
	case a.Target == TargetLight && a.On:
		return act.TurnOnLight(ctx, a.EntityID)
	case a.Target == TargetLight:
		return act.TurnOffLight(ctx, a.EntityID)
	case a.Target == TargetClimate && a.On:
		return act.TurnOnAC(ctx, a.EntityID)
	case a.Target == TargetClimate:
		return act.TurnOffAC(ctx, a.EntityID)
	default:
		return fmt.Errorf("panel: unknown target %q", a.Target)
	}
}
