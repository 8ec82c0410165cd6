package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/stwalsh4118/artscene/internal/drawing"
	"github.com/stwalsh4118/artscene/internal/logger"
	"github.com/stwalsh4118/artscene/internal/models"
	"github.com/stwalsh4118/artscene/internal/repository"
	"github.com/stwalsh4118/artscene/internal/scene"
	"github.com/stwalsh4118/artscene/internal/style"
)

// RootRef addresses the root of a scene wherever an object reference is taken.
const RootRef = "root"

// Service-level errors
var (
	ErrSceneNotOpen = errors.New("scene is not open")
	ErrInvalidInput = errors.New("invalid input")
)

// NewObject describes an object to add to a scene.
type NewObject struct {
	Index       int
	Name        string
	Floor       *int
	Height      *float64
	Annotations *string
}

// NewElement describes an element to give to an object.
type NewElement struct {
	Layer    string
	Groups   []int
	Geometry models.Geometry
}

// SceneService manages the open scenes: importing drawings, querying and
// editing their object trees and saving them to the scene store.
// Object references are decimal indices or names, an index winning when both
// match. RootRef is the root.
type SceneService interface {
	// Import assembles a drawing export into a new open scene.
	Import(ctx context.Context, doc *models.Drawing) (*SceneInfo, error)

	// List returns the open scenes ordered by id.
	List(ctx context.Context) []SceneInfo

	// Get returns the whole tree of a scene.
	Get(ctx context.Context, sceneID string) (*SceneTree, error)

	// Find returns one object.
	Find(ctx context.Context, sceneID, ref string) (*ObjectView, error)

	// Add attaches a new object as the last child of parentRef.
	Add(ctx context.Context, sceneID string, obj NewObject, parentRef string) (*ObjectView, error)

	// Insert places a new object between parentRef and its direct child childRef.
	Insert(ctx context.Context, sceneID string, obj NewObject, parentRef, childRef string) (*ObjectView, error)

	// Delete removes an object with its subtree and returns how many objects went.
	Delete(ctx context.Context, sceneID, ref string) (int, error)

	// Move re-parents an object with its subtree.
	Move(ctx context.Context, sceneID, ref, parentRef string) (*ObjectView, error)

	// ObjectsUnder lists an object and its descendants in pre-order.
	ObjectsUnder(ctx context.Context, sceneID, ref string) ([]ObjectView, error)

	// ElementsUnder lists the elements of an object and its descendants in pre-order.
	ElementsUnder(ctx context.Context, sceneID, ref string) ([]ElementView, error)

	// AddElement gives a new element to an object.
	AddElement(ctx context.Context, sceneID, ref string, el NewElement) (*ElementView, error)

	// DeleteElement removes an element from an object.
	DeleteElement(ctx context.Context, sceneID, ref string, elementID uuid.UUID) error

	// Save writes an open scene to the store.
	Save(ctx context.Context, sceneID string) (*repository.SceneSummary, error)

	// Load opens a stored scene, replacing the open copy if there is one.
	Load(ctx context.Context, sceneID string) (*SceneInfo, error)

	// Stored lists the scenes in the store.
	Stored(ctx context.Context) ([]repository.SceneSummary, error)
}

// Options configure drawing import.
type Options struct {
	ReadableKinds []string
	// StyleDir receives a style file per imported drawing; empty disables it.
	StyleDir string
}

// session is one open scene. mu guards tree and everything reachable from it.
type session struct {
	mu      sync.Mutex
	id      string
	name    string
	skipped int
	tree    *scene.Tree
}

type sceneService struct {
	repo repository.SceneRepository
	opts Options
	log  *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewSceneService creates a new instance of SceneService.
func NewSceneService(repo repository.SceneRepository, opts Options, log *logger.Logger) SceneService {
	return &sceneService{
		repo:     repo,
		opts:     opts,
		log:      log,
		sessions: make(map[string]*session),
	}
}

func (s *sceneService) Import(ctx context.Context, doc *models.Drawing) (*SceneInfo, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: no drawing", ErrInvalidInput)
	}
	res, err := drawing.Assemble(doc, drawing.Options{ReadableKinds: s.opts.ReadableKinds, Log: s.log})
	if err != nil {
		s.log.Warn("Drawing rejected", logger.Fields{"drawing": doc.Name, "error": err.Error()})
		return nil, err
	}

	if s.opts.StyleDir != "" {
		path, created, err := style.EnsureFile(s.opts.StyleDir, doc.Name, res.Layers)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare style file: %w", err)
		}
		if created {
			s.log.Info("Style file created", logger.Fields{"path": path, "layers": len(res.Layers)})
		}
	}

	sess := &session{name: res.Name, skipped: res.Skipped, tree: res.Tree}
	s.mu.Lock()
	sess.id = s.newID(doc.Name)
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.log.WithScene(sess.id).Info("Scene imported", logger.Fields{
		"drawing":  doc.Name,
		"objects":  res.Tree.Len(),
		"elements": len(res.Elements),
		"skipped":  res.Skipped,
	})
	info := sess.info()
	return &info, nil
}

// newID slugs name and adds a short random suffix when the slug is taken.
// Callers hold s.mu.
func (s *sceneService) newID(name string) string {
	base := slug.Make(name)
	if base == "" {
		base = "scene"
	}
	id := base
	for {
		if _, taken := s.sessions[id]; !taken {
			return id
		}
		id = base + "-" + uuid.NewString()[:8]
	}
}

func (s *sceneService) List(context.Context) []SceneInfo {
	s.mu.RLock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	out := make([]SceneInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.Lock()
		out = append(out, sess.info())
		sess.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *sceneService) Get(ctx context.Context, sceneID string) (*SceneTree, error) {
	var out *SceneTree
	err := s.withScene(sceneID, func(sess *session) error {
		out = &SceneTree{SceneInfo: sess.info(), Roots: treeNodes(sess.tree, scene.RootKey)}
		return nil
	})
	return out, err
}

func (s *sceneService) Find(ctx context.Context, sceneID, ref string) (*ObjectView, error) {
	var out *ObjectView
	err := s.withScene(sceneID, func(sess *session) error {
		obj, err := sess.tree.Resolve(ref)
		if err != nil {
			return err
		}
		v := objectView(sess.tree, obj)
		out = &v
		return nil
	})
	return out, err
}

func (s *sceneService) Add(ctx context.Context, sceneID string, obj NewObject, parentRef string) (*ObjectView, error) {
	return s.place(sceneID, obj, func(sess *session, o *scene.Object) error {
		parent, err := resolveKey(sess.tree, parentRef)
		if err != nil {
			return err
		}
		return sess.tree.Add(o, parent)
	})
}

func (s *sceneService) Insert(ctx context.Context, sceneID string, obj NewObject, parentRef, childRef string) (*ObjectView, error) {
	return s.place(sceneID, obj, func(sess *session, o *scene.Object) error {
		parent, err := resolveKey(sess.tree, parentRef)
		if err != nil {
			return err
		}
		child, err := resolveKey(sess.tree, childRef)
		if err != nil {
			return err
		}
		return sess.tree.Insert(o, parent, child)
	})
}

func (s *sceneService) place(sceneID string, obj NewObject, attach func(*session, *scene.Object) error) (*ObjectView, error) {
	if obj.Index < 0 {
		return nil, fmt.Errorf("%w: index must be non-negative, got %d", ErrInvalidInput, obj.Index)
	}
	o := scene.NewObject(obj.Index, obj.Name)
	o.Floor, o.Height, o.Annotations = clonePtr(obj.Floor), clonePtr(obj.Height), clonePtr(obj.Annotations)

	var out *ObjectView
	err := s.withScene(sceneID, func(sess *session) error {
		if err := attach(sess, o); err != nil {
			return err
		}
		v := objectView(sess.tree, o)
		out = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithScene(sceneID).Info("Object added", logger.Fields{
		"index":  out.Index,
		"name":   out.Name,
		"parent": out.Parent,
	})
	return out, nil
}

func (s *sceneService) Delete(ctx context.Context, sceneID, ref string) (int, error) {
	var removed, key int
	err := s.withScene(sceneID, func(sess *session) error {
		var err error
		if key, err = resolveKey(sess.tree, ref); err != nil {
			return err
		}
		removed, err = sess.tree.Delete(key)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.WithScene(sceneID).Info("Object deleted", logger.Fields{"index": key, "removed": removed})
	return removed, nil
}

func (s *sceneService) Move(ctx context.Context, sceneID, ref, parentRef string) (*ObjectView, error) {
	var out *ObjectView
	err := s.withScene(sceneID, func(sess *session) error {
		key, err := resolveKey(sess.tree, ref)
		if err != nil {
			return err
		}
		parent, err := resolveKey(sess.tree, parentRef)
		if err != nil {
			return err
		}
		if err := sess.tree.Move(key, parent); err != nil {
			return err
		}
		obj, _ := sess.tree.Find(key)
		v := objectView(sess.tree, obj)
		out = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithScene(sceneID).Info("Object moved", logger.Fields{"index": out.Index, "parent": out.Parent})
	return out, nil
}

func (s *sceneService) ObjectsUnder(ctx context.Context, sceneID, ref string) ([]ObjectView, error) {
	var out []ObjectView
	err := s.withScene(sceneID, func(sess *session) error {
		key, err := resolveKey(sess.tree, ref)
		if err != nil {
			return err
		}
		objs, err := sess.tree.ObjectsUnder(key)
		if err != nil {
			return err
		}
		out = objectViews(sess.tree, objs)
		return nil
	})
	return out, err
}

func (s *sceneService) ElementsUnder(ctx context.Context, sceneID, ref string) ([]ElementView, error) {
	var out []ElementView
	err := s.withScene(sceneID, func(sess *session) error {
		key, err := resolveKey(sess.tree, ref)
		if err != nil {
			return err
		}
		elems, err := sess.tree.ElementsUnder(key)
		if err != nil {
			return err
		}
		out = elementViews(elems)
		return nil
	})
	return out, err
}

func (s *sceneService) AddElement(ctx context.Context, sceneID, ref string, el NewElement) (*ElementView, error) {
	var out *ElementView
	err := s.withScene(sceneID, func(sess *session) error {
		obj, err := sess.tree.Resolve(ref)
		if err != nil {
			return err
		}
		e := scene.NewElement(el.Layer, el.Groups, el.Geometry)
		if err := obj.AddElement(e); err != nil {
			return err
		}
		v := elementView(e)
		out = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithScene(sceneID).Info("Element added", logger.Fields{"element": out.ID, "owner": out.Owner})
	return out, nil
}

func (s *sceneService) DeleteElement(ctx context.Context, sceneID, ref string, elementID uuid.UUID) error {
	err := s.withScene(sceneID, func(sess *session) error {
		obj, err := sess.tree.Resolve(ref)
		if err != nil {
			return err
		}
		return obj.DeleteElement(elementID)
	})
	if err != nil {
		return err
	}
	s.log.WithScene(sceneID).Info("Element deleted", logger.Fields{"element": elementID, "owner": ref})
	return nil
}

func (s *sceneService) Save(ctx context.Context, sceneID string) (*repository.SceneSummary, error) {
	var stored *repository.StoredScene
	err := s.withScene(sceneID, func(sess *session) error {
		stored = &repository.StoredScene{
			ID:       sess.id,
			Name:     sess.name,
			SavedAt:  time.Now().UTC(),
			Snapshot: sess.tree.Snapshot(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, stored); err != nil {
		s.log.WithScene(sceneID).Error("Failed to save scene", err, nil)
		return nil, fmt.Errorf("failed to save scene: %w", err)
	}
	s.log.WithScene(sceneID).Info("Scene saved", logger.Fields{"objects": len(stored.Snapshot.Objects)})
	return &repository.SceneSummary{
		ID:      stored.ID,
		Name:    stored.Name,
		SavedAt: stored.SavedAt,
		Objects: len(stored.Snapshot.Objects),
	}, nil
}

func (s *sceneService) Load(ctx context.Context, sceneID string) (*SceneInfo, error) {
	stored, err := s.repo.Load(ctx, sceneID)
	if err != nil {
		if !errors.Is(err, repository.ErrSceneNotFound) {
			s.log.WithScene(sceneID).Error("Failed to load scene", err, nil)
		}
		return nil, fmt.Errorf("failed to load scene: %w", err)
	}
	tree, err := scene.Restore(stored.Snapshot)
	if err != nil {
		s.log.WithScene(sceneID).Error("Stored scene is inconsistent", err, nil)
		return nil, fmt.Errorf("failed to restore scene %s: %w", sceneID, err)
	}

	sess := &session{id: stored.ID, name: stored.Name, tree: tree}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.log.WithScene(sceneID).Info("Scene loaded", logger.Fields{"objects": tree.Len(), "saved_at": stored.SavedAt})
	info := sess.info()
	return &info, nil
}

func (s *sceneService) Stored(ctx context.Context) ([]repository.SceneSummary, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		s.log.Error("Failed to list stored scenes", err, nil)
		return nil, fmt.Errorf("failed to list stored scenes: %w", err)
	}
	return list, nil
}

// withScene runs fn holding the scene's lock.
func (s *sceneService) withScene(sceneID string, fn func(*session) error) error {
	s.mu.RLock()
	sess, ok := s.sessions[sceneID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSceneNotOpen, sceneID)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess)
}

func (sess *session) info() SceneInfo {
	elems, _ := sess.tree.ElementsUnder(scene.RootKey)
	return SceneInfo{
		ID:       sess.id,
		Name:     sess.name,
		Objects:  sess.tree.Len(),
		Elements: len(elems),
		Skipped:  sess.skipped,
	}
}

// resolveKey turns an object reference into a tree key.
func resolveKey(t *scene.Tree, ref string) (int, error) {
	if ref == RootRef || ref == strconv.Itoa(scene.RootKey) {
		return scene.RootKey, nil
	}
	obj, err := t.Resolve(ref)
	if err != nil {
		return 0, err
	}
	return obj.Index(), nil
}
