package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/artscene/internal/database"
	"github.com/stwalsh4118/artscene/internal/scene"
)

type postgresSceneRepository struct {
	db *database.Database
}

// NewPostgresSceneRepository stores scenes in PostgreSQL. Element shapes are
// PostGIS geometries exchanged as GeoJSON.
func NewPostgresSceneRepository(db *database.Database) SceneRepository {
	return &postgresSceneRepository{db: db}
}

// Save replaces the scene in one transaction. Row inserts are sent as a
// single batch.
func (r *postgresSceneRepository) Save(ctx context.Context, s *StoredScene) error {
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM scenes WHERE id = $1`, s.ID)
		batch.Queue(`INSERT INTO scenes (id, name, saved_at) VALUES ($1, $2, $3)`, s.ID, s.Name, s.SavedAt)

		objects, elements := flatten(s.Snapshot)
		for _, o := range objects {
			batch.Queue(`
				INSERT INTO scene_objects
					(scene_id, idx, object_id, parent_idx, position, name, floor, height, annotations)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				s.ID, o.rec.Index, o.rec.ID.String(), o.rec.Parent, o.position, o.rec.Name,
				o.rec.Floor, o.rec.Height, o.rec.Annotations,
			)
		}
		for _, e := range elements {
			geom, err := e.rec.Geometry.Value()
			if err != nil {
				return fmt.Errorf("failed to encode geometry of element %s: %w", e.rec.ID, err)
			}
			batch.Queue(`
				INSERT INTO scene_elements
					(scene_id, element_id, object_idx, position, layer, groups, geom)
				VALUES ($1, $2, $3, $4, $5, $6, ST_GeomFromGeoJSON($7))`,
				s.ID, e.rec.ID.String(), e.objectIdx, e.position, e.rec.Type, e.rec.Groups, geom,
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save scene %s: %w", s.ID, err)
		}
		return nil
	})
}

func (r *postgresSceneRepository) Load(ctx context.Context, id string) (*StoredScene, error) {
	out := &StoredScene{ID: id}
	err := r.db.Pool.QueryRow(ctx, `SELECT name, saved_at FROM scenes WHERE id = $1`, id).
		Scan(&out.Name, &out.SavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, id)
		}
		return nil, fmt.Errorf("failed to query scene %s: %w", id, err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT idx, object_id::text, parent_idx, name, floor, height, annotations
		FROM scene_objects
		WHERE scene_id = $1
		ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects of scene %s: %w", id, err)
	}
	objects, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (scene.ObjectRecord, error) {
		var rec scene.ObjectRecord
		var objectID string
		if err := row.Scan(&rec.Index, &objectID, &rec.Parent, &rec.Name, &rec.Floor, &rec.Height, &rec.Annotations); err != nil {
			return rec, err
		}
		return rec, rec.ID.UnmarshalText([]byte(objectID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read objects of scene %s: %w", id, err)
	}

	rows, err = r.db.Pool.Query(ctx, `
		SELECT element_id::text, object_idx, position, layer, groups, ST_AsGeoJSON(geom)
		FROM scene_elements
		WHERE scene_id = $1
		ORDER BY object_idx, position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query elements of scene %s: %w", id, err)
	}
	elements, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (elementRow, error) {
		var e elementRow
		var elementID string
		var geomJSON []byte
		if err := row.Scan(&elementID, &e.objectIdx, &e.position, &e.rec.Type, &e.rec.Groups, &geomJSON); err != nil {
			return e, err
		}
		if err := e.rec.ID.UnmarshalText([]byte(elementID)); err != nil {
			return e, err
		}
		return e, e.rec.Geometry.Scan(geomJSON)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read elements of scene %s: %w", id, err)
	}

	if out.Snapshot, err = assemble(objects, elements); err != nil {
		return nil, fmt.Errorf("scene %s: %w", id, err)
	}
	return out, nil
}

func (r *postgresSceneRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM scenes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scene %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	return nil
}

func (r *postgresSceneRepository) List(ctx context.Context) ([]SceneSummary, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT s.id, s.name, s.saved_at, COUNT(o.idx)::int
		FROM scenes s
		LEFT JOIN scene_objects o ON o.scene_id = s.id
		GROUP BY s.id, s.name, s.saved_at
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SceneSummary, error) {
		var sum SceneSummary
		err := row.Scan(&sum.ID, &sum.Name, &sum.SavedAt, &sum.Objects)
		return sum, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read scenes: %w", err)
	}
	if out == nil {
		out = []SceneSummary{}
	}
	return out, nil
}

func (r *postgresSceneRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
