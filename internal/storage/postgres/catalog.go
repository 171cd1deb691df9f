package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
)

// CatalogRepository reads and writes the move, inspirit, yokai, attitude
// and equipment tables.
type CatalogRepository struct {
	db *pgxpool.Pool
}

// NewCatalogRepository creates a CatalogRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Load reads every catalog table and builds a validated Registry. Inspirit
// tags are parsed into typed effects here, once.
//
// Postcondition: Returns a validated Registry, or an error on any query,
// decoding or validation failure.
func (r *CatalogRepository) Load(ctx context.Context) (*catalog.Registry, error) {
	recs, err := r.Records(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := recs.Build()
	if err != nil {
		return nil, fmt.Errorf("building catalog from database: %w", err)
	}
	return reg, nil
}

// Records reads every catalog table in on-disk record form.
func (r *CatalogRepository) Records(ctx context.Context) (catalog.Records, error) {
	var recs catalog.Records

	rows, err := r.db.Query(ctx,
		`SELECT id, name, kind, power, hits, element, soul_charge_lv1, soul_charge_lv10
		 FROM moves ORDER BY kind, id`)
	if err != nil {
		return recs, fmt.Errorf("querying moves: %w", err)
	}
	recs.Moves, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.MoveRecord, error) {
		var m catalog.MoveRecord
		err := row.Scan(&m.ID, &m.Name, &m.Kind, &m.Power, &m.Hits, &m.Element, &m.SoulChargeLv1, &m.SoulChargeLv10)
		return m, err
	})
	if err != nil {
		return recs, fmt.Errorf("scanning moves: %w", err)
	}

	rows, err = r.db.Query(ctx, `SELECT id, name, targets, duration, tags, effects FROM inspirits ORDER BY id`)
	if err != nil {
		return recs, fmt.Errorf("querying inspirits: %w", err)
	}
	recs.Inspirits, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.InspiritRecord, error) {
		var in catalog.InspiritRecord
		var effects []byte
		if err := row.Scan(&in.ID, &in.Name, &in.Targets, &in.Duration, &in.Tags, &effects); err != nil {
			return in, err
		}
		if err := json.Unmarshal(effects, &in.Effects); err != nil {
			return in, fmt.Errorf("inspirit %q effects: %w", in.ID, err)
		}
		return in, nil
	})
	if err != nil {
		return recs, fmt.Errorf("scanning inspirits: %w", err)
	}

	rows, err = r.db.Query(ctx,
		`SELECT id, name, tribe, rank, hp, str, spr, def, spd, resistances,
		        attack_id, technique_id, inspirit_id, soultimate_id, skill_id, equipment_slots
		 FROM yokai ORDER BY id`)
	if err != nil {
		return recs, fmt.Errorf("querying yokai: %w", err)
	}
	recs.Yokai, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.YokaiRecord, error) {
		var y catalog.YokaiRecord
		var res []byte
		err := row.Scan(&y.ID, &y.Name, &y.Tribe, &y.Rank,
			&y.Stats.HP, &y.Stats.STR, &y.Stats.SPR, &y.Stats.DEF, &y.Stats.SPD, &res,
			&y.Attack, &y.Technique, &y.Inspirit, &y.Soultimate, &y.Skill, &y.EquipmentSlots)
		if err != nil {
			return y, err
		}
		if err := json.Unmarshal(res, &y.Resistances); err != nil {
			return y, fmt.Errorf("yokai %q resistances: %w", y.ID, err)
		}
		return y, nil
	})
	if err != nil {
		return recs, fmt.Errorf("scanning yokai: %w", err)
	}

	rows, err = r.db.Query(ctx, `SELECT id, name, hp, str, spr, def, spd FROM attitudes ORDER BY id`)
	if err != nil {
		return recs, fmt.Errorf("querying attitudes: %w", err)
	}
	recs.Attitudes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.AttitudeRecord, error) {
		var a catalog.AttitudeRecord
		err := row.Scan(&a.ID, &a.Name, &a.Boost.HP, &a.Boost.STR, &a.Boost.SPR, &a.Boost.DEF, &a.Boost.SPD)
		return a, err
	})
	if err != nil {
		return recs, fmt.Errorf("scanning attitudes: %w", err)
	}

	rows, err = r.db.Query(ctx, `SELECT id, name, hp, str, spr, def, spd FROM equipment ORDER BY id`)
	if err != nil {
		return recs, fmt.Errorf("querying equipment: %w", err)
	}
	recs.Equipment, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.EquipmentRecord, error) {
		var e catalog.EquipmentRecord
		err := row.Scan(&e.ID, &e.Name, &e.Bonus.HP, &e.Bonus.STR, &e.Bonus.SPR, &e.Bonus.DEF, &e.Bonus.SPD)
		return e, err
	})
	if err != nil {
		return recs, fmt.Errorf("scanning equipment: %w", err)
	}
	return recs, nil
}

// Save upserts every record in one transaction. Rows not present in recs
// are left alone.
//
// Precondition: recs should already build into a valid Registry.
// Postcondition: Either every record is written or none is.
func (r *CatalogRepository) Save(ctx context.Context, recs catalog.Records) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, m := range recs.Moves {
			hits := m.Hits
			if hits == 0 {
				hits = 1
			}
			elem := m.Element
			if elem == "" {
				elem = "none"
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO moves (id, name, kind, power, hits, element, soul_charge_lv1, soul_charge_lv10)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				 ON CONFLICT (kind, id) DO UPDATE SET name = EXCLUDED.name,
				   power = EXCLUDED.power, hits = EXCLUDED.hits, element = EXCLUDED.element,
				   soul_charge_lv1 = EXCLUDED.soul_charge_lv1, soul_charge_lv10 = EXCLUDED.soul_charge_lv10`,
				m.ID, m.Name, m.Kind, m.Power, hits, elem, m.SoulChargeLv1, m.SoulChargeLv10,
			); err != nil {
				return fmt.Errorf("saving move %q: %w", m.ID, err)
			}
		}
		for _, in := range recs.Inspirits {
			effects, err := json.Marshal(nonNil(in.Effects))
			if err != nil {
				return fmt.Errorf("encoding inspirit %q effects: %w", in.ID, err)
			}
			targets := in.Targets
			if targets == "" {
				targets = string(catalog.TargetEnemy)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO inspirits (id, name, targets, duration, tags, effects)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, targets = EXCLUDED.targets,
				   duration = EXCLUDED.duration, tags = EXCLUDED.tags, effects = EXCLUDED.effects`,
				in.ID, in.Name, targets, in.Duration, nonNil(in.Tags), effects,
			); err != nil {
				return fmt.Errorf("saving inspirit %q: %w", in.ID, err)
			}
		}
		for _, y := range recs.Yokai {
			res, err := json.Marshal(y.Resistances)
			if err != nil {
				return fmt.Errorf("encoding yokai %q resistances: %w", y.ID, err)
			}
			if y.Resistances == nil {
				res = []byte("{}")
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO yokai (id, name, tribe, rank, hp, str, spr, def, spd, resistances,
				   attack_id, technique_id, inspirit_id, soultimate_id, skill_id, equipment_slots)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
				 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, tribe = EXCLUDED.tribe,
				   rank = EXCLUDED.rank, hp = EXCLUDED.hp, str = EXCLUDED.str, spr = EXCLUDED.spr,
				   def = EXCLUDED.def, spd = EXCLUDED.spd, resistances = EXCLUDED.resistances,
				   attack_id = EXCLUDED.attack_id, technique_id = EXCLUDED.technique_id,
				   inspirit_id = EXCLUDED.inspirit_id, soultimate_id = EXCLUDED.soultimate_id,
				   skill_id = EXCLUDED.skill_id, equipment_slots = EXCLUDED.equipment_slots`,
				y.ID, y.Name, y.Tribe, y.Rank, y.Stats.HP, y.Stats.STR, y.Stats.SPR, y.Stats.DEF, y.Stats.SPD, res,
				y.Attack, y.Technique, y.Inspirit, y.Soultimate, y.Skill, y.EquipmentSlots,
			); err != nil {
				return fmt.Errorf("saving yokai %q: %w", y.ID, err)
			}
		}
		for _, a := range recs.Attitudes {
			if err := upsertBoost(ctx, tx, "attitudes", a.ID, a.Name, a.Boost); err != nil {
				return fmt.Errorf("saving attitude %q: %w", a.ID, err)
			}
		}
		for _, e := range recs.Equipment {
			if err := upsertBoost(ctx, tx, "equipment", e.ID, e.Name, e.Bonus); err != nil {
				return fmt.Errorf("saving equipment %q: %w", e.ID, err)
			}
		}
		return nil
	})
}

// upsertBoost writes a row of the attitudes or equipment table.
//
// Precondition: table is a fixed identifier, never user input.
func upsertBoost(ctx context.Context, tx pgx.Tx, table, id, name string, s catalog.Stats) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO `+table+` (id, name, hp, str, spr, def, spd)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, hp = EXCLUDED.hp, str = EXCLUDED.str,
		   spr = EXCLUDED.spr, def = EXCLUDED.def, spd = EXCLUDED.spd`,
		id, name, s.HP, s.STR, s.SPR, s.DEF, s.SPD,
	)
	return err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
