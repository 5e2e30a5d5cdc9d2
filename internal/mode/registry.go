package mode

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrUnknownMode is returned when a mode id is not registered.
var ErrUnknownMode = errors.New("unknown mode")

var validate = validator.New()

// Registry is the static table of mode definitions.
type Registry struct {
	defs map[ID]Definition
}

// NewRegistry builds a registry from the given definitions. With no
// definitions the built-in table is used.
func NewRegistry(defs ...Definition) (*Registry, error) {
	if len(defs) == 0 {
		defs = Defaults()
	}
	r := &Registry{defs: make(map[ID]Definition, len(defs))}
	for _, d := range defs {
		if err := r.register(d); err != nil {
			return nil, err
		}
	}
	if _, ok := r.defs[Standard]; !ok {
		r.defs[Standard] = standardDefinition()
	}
	return r, nil
}

func (r *Registry) register(d Definition) error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("mode %q: %w", d.ID, err)
	}
	r.defs[d.ID] = cloneDefinition(d)
	return nil
}

// Lookup returns the definition for id and whether it exists.
func (r *Registry) Lookup(id ID) (Definition, bool) {
	d, ok := r.defs[id]
	if !ok {
		return Definition{}, false
	}
	return cloneDefinition(d), true
}

// Get returns the definition for id, falling back to Standard.
func (r *Registry) Get(id ID) Definition {
	if d, ok := r.Lookup(id); ok {
		return d
	}
	d, _ := r.Lookup(Standard)
	return d
}

// IDs lists the registered modes in a stable order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Definitions lists every registered definition ordered by id.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, id := range r.IDs() {
		out = append(out, cloneDefinition(r.defs[id]))
	}
	return out
}

// Tuning overrides product parameters that are not fixed by the rules.
// Zero values leave the defaults untouched.
type Tuning struct {
	Combo           []ComboThreshold
	PuzzlesPerLevel int
	Restart         RestartScope
	TimeBonus       time.Duration
	TimePenalty     time.Duration
}

// Tune applies t to every definition that uses the tuned feature. Either
// every definition is tuned or, on a validation error, none is.
func (r *Registry) Tune(t Tuning) error {
	tuned := make(map[ID]Definition, len(r.defs))
	for id, d := range r.defs {
		d = cloneDefinition(d)
		if d.HasCombo && len(t.Combo) > 0 {
			d.Combo = append([]ComboThreshold(nil), t.Combo...)
		}
		if d.HasLevels {
			if t.PuzzlesPerLevel > 0 {
				d.PuzzlesPerLevel = t.PuzzlesPerLevel
			}
			if t.Restart != "" {
				d.Restart = t.Restart
			}
		}
		if d.TimeBonus > 0 && t.TimeBonus > 0 {
			d.TimeBonus = t.TimeBonus
		}
		if d.TimePenalty > 0 && t.TimePenalty > 0 {
			d.TimePenalty = t.TimePenalty
		}
		if err := validate.Struct(d); err != nil {
			return fmt.Errorf("tune mode %q: %w", id, err)
		}
		tuned[id] = d
	}
	r.defs = tuned
	return nil
}

func standardDefinition() Definition {
	for _, d := range Defaults() {
		if d.ID == Standard {
			return d
		}
	}
	return Definition{ID: Standard, Name: "Standard", Family: FamilyStandard}
}

func cloneDefinition(d Definition) Definition {
	d.Combo = append([]ComboThreshold(nil), d.Combo...)
	return d
}
