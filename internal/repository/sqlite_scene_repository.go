package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/artscene/internal/database"
	"github.com/stwalsh4118/artscene/internal/models"
	"github.com/stwalsh4118/artscene/internal/scene"
)

type sqliteSceneRepository struct {
	db *database.SQLite
}

// NewSQLiteSceneRepository stores scenes in SQLite. Geometries are kept as
// GeoJSON text.
func NewSQLiteSceneRepository(db *database.SQLite) SceneRepository {
	return &sqliteSceneRepository{db: db}
}

func (r *sqliteSceneRepository) Save(ctx context.Context, s *StoredScene) (err error) {
	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM scenes WHERE id = ?`, s.ID); err != nil {
		return fmt.Errorf("failed to replace scene %s: %w", s.ID, err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO scenes (id, name, saved_at) VALUES (?, ?, ?)`,
		s.ID, s.Name, s.SavedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to insert scene %s: %w", s.ID, err)
	}

	objects, elements := flatten(s.Snapshot)
	for _, o := range objects {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO scene_objects
				(scene_id, idx, object_id, parent_idx, position, name, floor, height, annotations)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, o.rec.Index, o.rec.ID.String(), o.rec.Parent, o.position, o.rec.Name,
			o.rec.Floor, o.rec.Height, o.rec.Annotations,
		); err != nil {
			return fmt.Errorf("failed to insert object %d: %w", o.rec.Index, err)
		}
	}
	for _, e := range elements {
		var groups []byte
		groups, err = json.Marshal(e.rec.Groups)
		if err != nil {
			return fmt.Errorf("failed to encode groups of element %s: %w", e.rec.ID, err)
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO scene_elements
				(scene_id, element_id, object_idx, position, layer, groups, geom)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.ID, e.rec.ID.String(), e.objectIdx, e.position, e.rec.Type, string(groups), e.rec.Geometry,
		); err != nil {
			return fmt.Errorf("failed to insert element %s: %w", e.rec.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scene %s: %w", s.ID, err)
	}
	return nil
}

func (r *sqliteSceneRepository) Load(ctx context.Context, id string) (*StoredScene, error) {
	db := r.db.DB()
	out := &StoredScene{ID: id}
	var savedAt string
	err := db.QueryRowContext(ctx, `SELECT name, saved_at FROM scenes WHERE id = ?`, id).Scan(&out.Name, &savedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, id)
		}
		return nil, fmt.Errorf("failed to query scene %s: %w", id, err)
	}
	if out.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return nil, fmt.Errorf("failed to parse saved_at of scene %s: %w", id, err)
	}

	objects, err := r.loadObjects(ctx, id)
	if err != nil {
		return nil, err
	}
	elements, err := r.loadElements(ctx, id)
	if err != nil {
		return nil, err
	}
	if out.Snapshot, err = assemble(objects, elements); err != nil {
		return nil, fmt.Errorf("scene %s: %w", id, err)
	}
	return out, nil
}

func (r *sqliteSceneRepository) loadObjects(ctx context.Context, id string) ([]scene.ObjectRecord, error) {
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT idx, object_id, parent_idx, name, floor, height, annotations
		FROM scene_objects
		WHERE scene_id = ?
		ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects of scene %s: %w", id, err)
	}
	defer rows.Close()

	var out []scene.ObjectRecord
	for rows.Next() {
		var rec scene.ObjectRecord
		var objectID string
		if err := rows.Scan(&rec.Index, &objectID, &rec.Parent, &rec.Name, &rec.Floor, &rec.Height, &rec.Annotations); err != nil {
			return nil, fmt.Errorf("failed to scan object row: %w", err)
		}
		if rec.ID, err = uuid.Parse(objectID); err != nil {
			return nil, fmt.Errorf("object %d has a malformed id: %w", rec.Index, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating object rows: %w", err)
	}
	return out, nil
}

func (r *sqliteSceneRepository) loadElements(ctx context.Context, id string) ([]elementRow, error) {
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT element_id, object_idx, position, layer, groups, geom
		FROM scene_elements
		WHERE scene_id = ?
		ORDER BY object_idx, position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query elements of scene %s: %w", id, err)
	}
	defer rows.Close()

	var out []elementRow
	for rows.Next() {
		var row elementRow
		var elementID, groups string
		var geom models.Geometry
		if err := rows.Scan(&elementID, &row.objectIdx, &row.position, &row.rec.Type, &groups, &geom); err != nil {
			return nil, fmt.Errorf("failed to scan element row: %w", err)
		}
		if row.rec.ID, err = uuid.Parse(elementID); err != nil {
			return nil, fmt.Errorf("element has a malformed id: %w", err)
		}
		if err := json.Unmarshal([]byte(groups), &row.rec.Groups); err != nil {
			return nil, fmt.Errorf("failed to decode groups of element %s: %w", row.rec.ID, err)
		}
		row.rec.Geometry = geom
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating element rows: %w", err)
	}
	return out, nil
}

func (r *sqliteSceneRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.DB().ExecContext(ctx, `DELETE FROM scenes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scene %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	return nil
}

func (r *sqliteSceneRepository) List(ctx context.Context) ([]SceneSummary, error) {
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT s.id, s.name, s.saved_at, COUNT(o.idx)
		FROM scenes s
		LEFT JOIN scene_objects o ON o.scene_id = s.id
		GROUP BY s.id, s.name, s.saved_at
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	defer rows.Close()

	out := []SceneSummary{}
	for rows.Next() {
		var sum SceneSummary
		var savedAt string
		if err := rows.Scan(&sum.ID, &sum.Name, &savedAt, &sum.Objects); err != nil {
			return nil, fmt.Errorf("failed to scan scene row: %w", err)
		}
		if sum.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
			return nil, fmt.Errorf("failed to parse saved_at of scene %s: %w", sum.ID, err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scene rows: %w", err)
	}
	return out, nil
}

func (r *sqliteSceneRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
