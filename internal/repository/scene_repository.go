package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stwalsh4118/artscene/internal/scene"
)

// ErrSceneNotFound is returned when no scene is stored under an id.
var ErrSceneNotFound = errors.New("scene not found")

// StoredScene is one saved scene.
type StoredScene struct {
	ID       string
	Name     string
	SavedAt  time.Time
	Snapshot scene.Snapshot
}

// SceneSummary describes a stored scene without its content.
type SceneSummary struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	SavedAt time.Time `json:"savedAt"`
	Objects int       `json:"objects"`
}

// SceneRepository persists scene snapshots.
type SceneRepository interface {
	// Save stores the scene, replacing any scene with the same id.
	Save(ctx context.Context, s *StoredScene) error

	// Load returns the scene stored under id or ErrSceneNotFound.
	Load(ctx context.Context, id string) (*StoredScene, error)

	// Delete removes a scene. Deleting a missing scene returns ErrSceneNotFound.
	Delete(ctx context.Context, id string) error

	// List returns every stored scene ordered by id.
	List(ctx context.Context) ([]SceneSummary, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// memoryRepository keeps encoded snapshots so callers never share state
// with the store.
type memoryRepository struct {
	mu     sync.RWMutex
	scenes map[string]memoryEntry
}

type memoryEntry struct {
	name    string
	savedAt time.Time
	objects int
	data    []byte
}

// NewMemoryRepository returns a SceneRepository that lives as long as the process.
func NewMemoryRepository() SceneRepository {
	return &memoryRepository{scenes: make(map[string]memoryEntry)}
}

func (r *memoryRepository) Save(_ context.Context, s *StoredScene) error {
	data, err := json.Marshal(s.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode scene %s: %w", s.ID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenes[s.ID] = memoryEntry{
		name:    s.Name,
		savedAt: s.SavedAt,
		objects: len(s.Snapshot.Objects),
		data:    data,
	}
	return nil
}

func (r *memoryRepository) Load(_ context.Context, id string) (*StoredScene, error) {
	r.mu.RLock()
	entry, ok := r.scenes[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	var snap scene.Snapshot
	if err := json.Unmarshal(entry.data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode scene %s: %w", id, err)
	}
	return &StoredScene{ID: id, Name: entry.name, SavedAt: entry.savedAt, Snapshot: snap}, nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scenes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	delete(r.scenes, id)
	return nil
}

func (r *memoryRepository) List(_ context.Context) ([]SceneSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SceneSummary, 0, len(r.scenes))
	for id, e := range r.scenes {
		out = append(out, SceneSummary{ID: id, Name: e.name, SavedAt: e.savedAt, Objects: e.objects})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepository) Ping(context.Context) error {
	return nil
}

// objectRow and elementRow are the flattened table rows shared by the SQL
// stores. Position is the pre-order ordinal for objects and the order
// within the owner for elements.
type objectRow struct {
	rec      scene.ObjectRecord
	position int
}

type elementRow struct {
	rec       scene.ElementRecord
	objectIdx int
	position  int
}

func flatten(snap scene.Snapshot) ([]objectRow, []elementRow) {
	objects := make([]objectRow, 0, len(snap.Objects))
	var elements []elementRow
	for i, o := range snap.Objects {
		objects = append(objects, objectRow{rec: o, position: i})
		for j, e := range o.Elements {
			elements = append(elements, elementRow{rec: e, objectIdx: o.Index, position: j})
		}
	}
	return objects, elements
}

// assemble rebuilds a snapshot from rows ordered by position.
func assemble(objects []scene.ObjectRecord, elements []elementRow) (scene.Snapshot, error) {
	at := make(map[int]int, len(objects))
	for i := range objects {
		objects[i].Elements = []scene.ElementRecord{}
		at[objects[i].Index] = i
	}
	for _, e := range elements {
		i, ok := at[e.objectIdx]
		if !ok {
			return scene.Snapshot{}, fmt.Errorf("element %s references missing object %d", e.rec.ID, e.objectIdx)
		}
		objects[i].Elements = append(objects[i].Elements, e.rec)
	}
	if objects == nil {
		objects = []scene.ObjectRecord{}
	}
	return scene.Snapshot{Objects: objects}, nil
}
