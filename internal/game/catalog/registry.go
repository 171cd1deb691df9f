package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// Registry is the in-memory catalog. Populate it with the Register methods
// before sharing it; once shared it is read-only and safe for concurrent
// lookups.
type Registry struct {
	moves     map[MoveKind]map[string]MoveDef
	inspirits map[string]InspiritDef
	yokai     map[string]YokaiDef
	attitudes map[string]AttitudeDef
	equipment map[string]EquipmentDef
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		moves: map[MoveKind]map[string]MoveDef{
			KindAttack:     {},
			KindTechnique:  {},
			KindSoultimate: {},
		},
		inspirits: make(map[string]InspiritDef),
		yokai:     make(map[string]YokaiDef),
		attitudes: make(map[string]AttitudeDef),
		equipment: make(map[string]EquipmentDef),
	}
}

// Counts summarises how many entries of each table a Registry holds.
type Counts struct {
	Moves     int
	Inspirits int
	Yokai     int
	Attitudes int
	Equipment int
}

// Counts returns the size of each table.
func (r *Registry) Counts() Counts {
	n := 0
	for _, m := range r.moves {
		n += len(m)
	}
	return Counts{
		Moves:     n,
		Inspirits: len(r.inspirits),
		Yokai:     len(r.yokai),
		Attitudes: len(r.attitudes),
		Equipment: len(r.equipment),
	}
}

// RegisterMove adds def to the table for def.Kind.
//
// Precondition: def.ID is non-empty and Hits >= 0.
// Postcondition: Returns an error on a duplicate id within the same kind.
func (r *Registry) RegisterMove(def MoveDef) error {
	if def.ID == "" {
		return errors.New("move id must not be empty")
	}
	table, ok := r.moves[def.Kind]
	if !ok {
		return fmt.Errorf("move %q: invalid kind %d", def.ID, int(def.Kind))
	}
	if _, dup := table[def.ID]; dup {
		return fmt.Errorf("duplicate %s %q", def.Kind, def.ID)
	}
	if def.Hits < 0 {
		return fmt.Errorf("%s %q: hits must be >= 0", def.Kind, def.ID)
	}
	if def.BasePower != nil && *def.BasePower < 0 {
		return fmt.Errorf("%s %q: power must be >= 0", def.Kind, def.ID)
	}
	if !def.Element.Valid() {
		return fmt.Errorf("%s %q: invalid element", def.Kind, def.ID)
	}
	table[def.ID] = def
	return nil
}

// RegisterInspirit adds def.
func (r *Registry) RegisterInspirit(def InspiritDef) error {
	if def.ID == "" {
		return errors.New("inspirit id must not be empty")
	}
	if _, dup := r.inspirits[def.ID]; dup {
		return fmt.Errorf("duplicate inspirit %q", def.ID)
	}
	switch def.Targets {
	case TargetEnemy, TargetSelf:
	case "":
		def.Targets = TargetEnemy
	default:
		return fmt.Errorf("inspirit %q: unknown targets %q", def.ID, def.Targets)
	}
	for _, eff := range def.Effects {
		if _, ok := eff.(Drain); ok && def.Targets == TargetSelf {
			return fmt.Errorf("inspirit %q: drain requires an enemy target", def.ID)
		}
	}
	def.Effects = append([]Effect(nil), def.Effects...)
	r.inspirits[def.ID] = def
	return nil
}

// RegisterYokai adds def.
func (r *Registry) RegisterYokai(def YokaiDef) error {
	if def.ID == "" {
		return errors.New("yokai id must not be empty")
	}
	if _, dup := r.yokai[def.ID]; dup {
		return fmt.Errorf("duplicate yokai %q", def.ID)
	}
	if def.Base.HP <= 0 {
		return fmt.Errorf("yokai %q: base hp must be > 0", def.ID)
	}
	if def.EquipmentSlots < 0 {
		return fmt.Errorf("yokai %q: equipment slots must be >= 0", def.ID)
	}
	r.yokai[def.ID] = def
	return nil
}

// RegisterAttitude adds def.
func (r *Registry) RegisterAttitude(def AttitudeDef) error {
	if def.ID == "" {
		return errors.New("attitude id must not be empty")
	}
	if _, dup := r.attitudes[def.ID]; dup {
		return fmt.Errorf("duplicate attitude %q", def.ID)
	}
	r.attitudes[def.ID] = def
	return nil
}

// RegisterEquipment adds def.
func (r *Registry) RegisterEquipment(def EquipmentDef) error {
	if def.ID == "" {
		return errors.New("equipment id must not be empty")
	}
	if _, dup := r.equipment[def.ID]; dup {
		return fmt.Errorf("duplicate equipment %q", def.ID)
	}
	r.equipment[def.ID] = def
	return nil
}

// GetMove implements Provider.
func (r *Registry) GetMove(kind MoveKind, id string) (MoveDef, error) {
	def, ok := r.moves[kind][id]
	if !ok {
		return MoveDef{}, fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return def, nil
}

// GetInspirit implements Provider. The returned Effects slice is a copy.
func (r *Registry) GetInspirit(id string) (InspiritDef, error) {
	def, ok := r.inspirits[id]
	if !ok {
		return InspiritDef{}, fmt.Errorf("inspirit %q: %w", id, ErrNotFound)
	}
	def.Effects = append([]Effect(nil), def.Effects...)
	return def, nil
}

// GetYokai implements IntakeSource. The returned Resistances map is a copy.
func (r *Registry) GetYokai(id string) (YokaiDef, error) {
	def, ok := r.yokai[id]
	if !ok {
		return YokaiDef{}, fmt.Errorf("yokai %q: %w", id, ErrNotFound)
	}
	def.Resistances = def.Resistances.Clone()
	return def, nil
}

// GetAttitude implements IntakeSource.
func (r *Registry) GetAttitude(id string) (AttitudeDef, error) {
	def, ok := r.attitudes[id]
	if !ok {
		return AttitudeDef{}, fmt.Errorf("attitude %q: %w", id, ErrNotFound)
	}
	return def, nil
}

// GetEquipment implements IntakeSource.
func (r *Registry) GetEquipment(id string) (EquipmentDef, error) {
	def, ok := r.equipment[id]
	if !ok {
		return EquipmentDef{}, fmt.Errorf("equipment %q: %w", id, ErrNotFound)
	}
	return def, nil
}

// YokaiIDs returns all Yo-kai ids sorted.
func (r *Registry) YokaiIDs() []string {
	out := make([]string, 0, len(r.yokai))
	for id := range r.yokai {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Validate checks that every Yo-kai references moves and an inspirit that
// exist in the matching tables. All problems are reported together.
func (r *Registry) Validate() error {
	var errs []error
	for _, id := range r.YokaiIDs() {
		y := r.yokai[id]
		refs := []struct {
			kind MoveKind
			ref  string
		}{
			{KindAttack, y.AttackID},
			{KindTechnique, y.TechniqueID},
			{KindSoultimate, y.SoultimateID},
		}
		for _, ref := range refs {
			if ref.ref == "" {
				continue
			}
			if _, err := r.GetMove(ref.kind, ref.ref); err != nil {
				errs = append(errs, fmt.Errorf("yokai %q: %w", id, err))
			}
		}
		if y.InspiritID != "" {
			if _, err := r.GetInspirit(y.InspiritID); err != nil {
				errs = append(errs, fmt.Errorf("yokai %q: %w", id, err))
			}
		}
	}
	return errors.Join(errs...)
}
