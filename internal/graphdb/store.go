package graphdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/rulegraph/internal/entity"
	"github.com/MrWong99/rulegraph/internal/observe"
	"github.com/MrWong99/rulegraph/internal/pipeline"
)

// Relationship types stored in the rel_type column.
const (
	RelDependsOn = "dependsOn"
	RelModifies  = "modifies"
)

var _ pipeline.Mirror = (*Store)(nil)

// Store is a PostgreSQL mirror of the rule graph. All operations are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// attributes is the JSONB payload of an entities row.
type attributes struct {
	Formula     string   `json:"formula,omitempty"`
	Source      string   `json:"source,omitempty"`
	CodeMapping string   `json:"codeMapping,omitempty"`
	Status      string   `json:"status,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}

// NewStore connects to the database at dsn and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("graphdb: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("graphdb: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("graphdb: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}

// Sync replaces the stored graph with g. Entities are upserted, entities no
// longer in g are deleted, and every relationship is rewritten. Edges to ids
// absent from g are not stored. The whole sync is one transaction.
func (s *Store) Sync(ctx context.Context, g *entity.Graph) error {
	ents := g.Entities()

	ids := make([]string, 0, len(ents))
	batch := &pgx.Batch{}
	for _, e := range ents {
		attrs, err := json.Marshal(attributes{
			Formula:     e.Formula,
			Source:      e.Source,
			CodeMapping: e.CodeMapping,
			Status:      e.Status,
			Tags:        e.Tags.Sorted(),
			Description: e.Description,
		})
		if err != nil {
			return fmt.Errorf("graphdb: marshal attributes of %s: %w", e.ID, err)
		}
		ids = append(ids, e.ID)
		batch.Queue(`
			INSERT INTO entities (id, type, name, attributes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
			ON CONFLICT (id) DO UPDATE SET
			    type        = EXCLUDED.type,
			    name        = EXCLUDED.name,
			    attributes  = EXCLUDED.attributes,
			    updated_at  = now()`,
			e.ID, string(e.Kind), e.Name, attrs,
		)
	}

	var edges int
	for _, e := range ents {
		for _, rel := range []struct {
			typ     string
			targets entity.Set
		}{
			{RelDependsOn, e.DependsOn},
			{RelModifies, e.Modifies},
		} {
			for _, target := range g.Resolve(rel.targets) {
				if target == e.ID {
					continue
				}
				edges++
				batch.Queue(`
					INSERT INTO relationships (source_id, target_id, rel_type)
					VALUES ($1, $2, $3)`,
					e.ID, target, rel.typ,
				)
			}
		}
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM relationships`); err != nil {
			return fmt.Errorf("clear relationships: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM entities WHERE NOT (id = ANY($1))`, ids); err != nil {
			return fmt.Errorf("prune entities: %w", err)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("write graph: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("graphdb: sync: %w", err)
	}
	observe.Logger(ctx).Debug("graph mirrored", "entities", len(ids), "relationships", edges)
	return nil
}

// GetEntity returns the stored entity with the given id, edges included.
// Returns (nil, nil) when the entity does not exist.
func (s *Store) GetEntity(ctx context.Context, id string) (*entity.Entity, error) {
	var (
		kind, name string
		raw        []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT type, name, attributes FROM entities WHERE id = $1`, id,
	).Scan(&kind, &name, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("graphdb: get entity: %w", err)
	}

	var attrs attributes
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("graphdb: unmarshal attributes of %s: %w", id, err)
	}
	e := &entity.Entity{
		ID:          id,
		Kind:        entity.Kind(kind),
		Name:        name,
		Source:      attrs.Source,
		Formula:     attrs.Formula,
		CodeMapping: attrs.CodeMapping,
		Status:      attrs.Status,
		Tags:        entity.NewSet(attrs.Tags...),
		Description: attrs.Description,
		DependsOn:   entity.Set{},
		Modifies:    entity.Set{},
	}

	rows, err := s.pool.Query(ctx,
		`SELECT target_id, rel_type FROM relationships WHERE source_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("graphdb: get relationships: %w", err)
	}
	type edge struct{ target, typ string }
	edges, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (edge, error) {
		var ed edge
		err := row.Scan(&ed.target, &ed.typ)
		return ed, err
	})
	if err != nil {
		return nil, fmt.Errorf("graphdb: get relationships: %w", err)
	}
	for _, ed := range edges {
		switch ed.typ {
		case RelDependsOn:
			e.DependsOn.Add(ed.target)
		case RelModifies:
			e.Modifies.Add(ed.target)
		}
	}
	return e, nil
}

// Dependents returns the ids of entities holding a relType edge to id,
// sorted.
func (s *Store) Dependents(ctx context.Context, id, relType string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT source_id
		FROM   relationships
		WHERE  target_id = $1 AND rel_type = $2
		ORDER BY source_id`, id, relType)
	if err != nil {
		return nil, fmt.Errorf("graphdb: dependents: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("graphdb: dependents: %w", err)
	}
	return out, nil
}
