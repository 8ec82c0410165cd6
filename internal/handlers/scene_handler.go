package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stwalsh4118/artscene/internal/drawing"
	apierrors "github.com/stwalsh4118/artscene/internal/errors"
	"github.com/stwalsh4118/artscene/internal/middleware"
	"github.com/stwalsh4118/artscene/internal/models"
	"github.com/stwalsh4118/artscene/internal/repository"
	"github.com/stwalsh4118/artscene/internal/scene"
	"github.com/stwalsh4118/artscene/internal/services"
)

// SceneHandler handles scene-related HTTP requests.
type SceneHandler struct {
	service services.SceneService
}

// NewSceneHandler creates a new SceneHandler instance.
func NewSceneHandler(service services.SceneService) *SceneHandler {
	return &SceneHandler{service: service}
}

// Register mounts the scene routes on rg.
func (h *SceneHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/stored", h.Stored)

	scenes := rg.Group("/scenes")
	scenes.POST("", h.Import)
	scenes.GET("", h.List)
	scenes.GET("/:scene", h.Get)
	scenes.POST("/:scene/save", h.Save)
	scenes.POST("/:scene/load", h.Load)

	objects := scenes.Group("/:scene/objects")
	objects.POST("", h.AddObject)
	objects.GET("/:ref", h.GetObject)
	objects.DELETE("/:ref", h.DeleteObject)
	objects.POST("/:ref/move", h.MoveObject)
	objects.GET("/:ref/objects", h.ObjectsUnder)
	objects.GET("/:ref/elements", h.ElementsUnder)
	objects.POST("/:ref/elements", h.AddElement)
	objects.DELETE("/:ref/elements/:element", h.DeleteElement)
}

// AddObjectRequest is the body of POST /scenes/:scene/objects. With Child
// set the object is inserted between Parent and Child.
type AddObjectRequest struct {
	Index       *int     `json:"index" binding:"required,gte=0"`
	Name        string   `json:"name" binding:"max=200"`
	Parent      string   `json:"parent"`
	Child       string   `json:"child"`
	Floor       *int     `json:"floor" binding:"omitempty,gte=0"`
	Height      *float64 `json:"height" binding:"omitempty,gte=0"`
	Annotations *string  `json:"annotations"`
}

// MoveRequest is the body of POST /scenes/:scene/objects/:ref/move.
type MoveRequest struct {
	Parent string `json:"parent" binding:"required"`
}

// AddElementRequest is the body of POST /scenes/:scene/objects/:ref/elements.
type AddElementRequest struct {
	Layer    string          `json:"layer" binding:"required"`
	Groups   []int           `json:"groups" binding:"dive,gte=0"`
	Geometry models.Geometry `json:"geometry"`
}

// DeleteResponse reports how many objects a delete removed.
type DeleteResponse struct {
	Removed int `json:"removed"`
}

// ListResponse wraps a list with its length.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func listOf[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

// Import handles POST /api/v1/scenes with a drawing export as body.
func (h *SceneHandler) Import(c *gin.Context) {
	doc, err := drawing.Decode(c.Request.Body)
	if err != nil {
		apierrors.BadRequest(c, err.Error(), nil)
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Importing drawing", map[string]interface{}{
			"drawing": doc.Name,
			"objects": len(doc.Objects),
		})
	}

	info, err := h.service.Import(c.Request.Context(), doc)
	if err != nil {
		respondError(c, err, "Failed to import drawing")
		return
	}
	c.JSON(http.StatusCreated, info)
}

// List handles GET /api/v1/scenes.
func (h *SceneHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, listOf(h.service.List(c.Request.Context())))
}

// Get handles GET /api/v1/scenes/:scene and returns the nested tree.
func (h *SceneHandler) Get(c *gin.Context) {
	tree, err := h.service.Get(c.Request.Context(), c.Param("scene"))
	if err != nil {
		respondError(c, err, "Failed to read scene")
		return
	}
	c.JSON(http.StatusOK, tree)
}

// GetObject handles GET /api/v1/scenes/:scene/objects/:ref.
func (h *SceneHandler) GetObject(c *gin.Context) {
	obj, err := h.service.Find(c.Request.Context(), c.Param("scene"), c.Param("ref"))
	if err != nil {
		respondError(c, err, "Failed to read object")
		return
	}
	c.JSON(http.StatusOK, obj)
}

// AddObject handles POST /api/v1/scenes/:scene/objects.
func (h *SceneHandler) AddObject(c *gin.Context) {
	var req AddObjectRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Parent == "" {
		req.Parent = services.RootRef
	}
	obj := services.NewObject{
		Index:       *req.Index,
		Name:        req.Name,
		Floor:       req.Floor,
		Height:      req.Height,
		Annotations: req.Annotations,
	}

	var (
		view *services.ObjectView
		err  error
	)
	if req.Child != "" {
		view, err = h.service.Insert(c.Request.Context(), c.Param("scene"), obj, req.Parent, req.Child)
	} else {
		view, err = h.service.Add(c.Request.Context(), c.Param("scene"), obj, req.Parent)
	}
	if err != nil {
		respondError(c, err, "Failed to add object")
		return
	}
	c.JSON(http.StatusCreated, view)
}

// DeleteObject handles DELETE /api/v1/scenes/:scene/objects/:ref. The whole
// subtree goes and the response reports how many objects were removed.
func (h *SceneHandler) DeleteObject(c *gin.Context) {
	removed, err := h.service.Delete(c.Request.Context(), c.Param("scene"), c.Param("ref"))
	if err != nil {
		respondError(c, err, "Failed to delete object")
		return
	}
	c.JSON(http.StatusOK, DeleteResponse{Removed: removed})
}

// MoveObject handles POST /api/v1/scenes/:scene/objects/:ref/move.
func (h *SceneHandler) MoveObject(c *gin.Context) {
	var req MoveRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.service.Move(c.Request.Context(), c.Param("scene"), c.Param("ref"), req.Parent)
	if err != nil {
		respondError(c, err, "Failed to move object")
		return
	}
	c.JSON(http.StatusOK, view)
}

// ObjectsUnder handles GET /api/v1/scenes/:scene/objects/:ref/objects.
// The list is in pre-order and starts with the object itself.
func (h *SceneHandler) ObjectsUnder(c *gin.Context) {
	objs, err := h.service.ObjectsUnder(c.Request.Context(), c.Param("scene"), c.Param("ref"))
	if err != nil {
		respondError(c, err, "Failed to list objects")
		return
	}
	c.JSON(http.StatusOK, listOf(objs))
}

// ElementsUnder handles GET /api/v1/scenes/:scene/objects/:ref/elements.
func (h *SceneHandler) ElementsUnder(c *gin.Context) {
	elems, err := h.service.ElementsUnder(c.Request.Context(), c.Param("scene"), c.Param("ref"))
	if err != nil {
		respondError(c, err, "Failed to list elements")
		return
	}
	c.JSON(http.StatusOK, listOf(elems))
}

// AddElement handles POST /api/v1/scenes/:scene/objects/:ref/elements.
// The element path must start with the object index.
func (h *SceneHandler) AddElement(c *gin.Context) {
	var req AddElementRequest
	if !bindJSON(c, &req) {
		return
	}
	el, err := h.service.AddElement(c.Request.Context(), c.Param("scene"), c.Param("ref"), services.NewElement{
		Layer:    req.Layer,
		Groups:   req.Groups,
		Geometry: req.Geometry,
	})
	if err != nil {
		respondError(c, err, "Failed to add element")
		return
	}
	c.JSON(http.StatusCreated, el)
}

// DeleteElement handles DELETE /api/v1/scenes/:scene/objects/:ref/elements/:element.
func (h *SceneHandler) DeleteElement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("element"))
	if err != nil {
		apierrors.BadRequest(c, "Element id must be a UUID", nil)
		return
	}
	if err := h.service.DeleteElement(c.Request.Context(), c.Param("scene"), c.Param("ref"), id); err != nil {
		respondError(c, err, "Failed to delete element")
		return
	}
	c.Status(http.StatusNoContent)
}

// Save handles POST /api/v1/scenes/:scene/save. Store failures answer 503.
func (h *SceneHandler) Save(c *gin.Context) {
	summary, err := h.service.Save(c.Request.Context(), c.Param("scene"))
	if errors.Is(err, services.ErrSceneNotOpen) {
		respondError(c, err, "")
		return
	}
	if err != nil {
		apierrors.ServiceUnavailable(c, "Failed to save scene", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Load handles POST /api/v1/scenes/:scene/load. A stored scene replaces the
// open copy with the same id.
func (h *SceneHandler) Load(c *gin.Context) {
	info, err := h.service.Load(c.Request.Context(), c.Param("scene"))
	if err != nil {
		respondError(c, err, "Failed to load scene")
		return
	}
	c.JSON(http.StatusOK, info)
}

// Stored handles GET /api/v1/stored.
func (h *SceneHandler) Stored(c *gin.Context) {
	list, err := h.service.Stored(c.Request.Context())
	if err != nil {
		apierrors.ServiceUnavailable(c, "Scene store is unavailable", err)
		return
	}
	c.JSON(http.StatusOK, listOf(list))
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return false
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return false
	}
	return true
}

// respondError maps service and scene errors onto the error envelope.
func respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, services.ErrSceneNotOpen),
		errors.Is(err, repository.ErrSceneNotFound),
		errors.Is(err, scene.ErrNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, scene.ErrStructural):
		apierrors.Conflict(c, err.Error(), nil)
	case errors.Is(err, scene.ErrMalformedInput),
		errors.Is(err, scene.ErrDomainConstraint):
		apierrors.Unprocessable(c, err.Error(), nil)
	case errors.Is(err, drawing.ErrInvalidDrawing),
		errors.Is(err, services.ErrInvalidInput):
		apierrors.BadRequest(c, err.Error(), nil)
	default:
		apierrors.InternalServerError(c, message, err)
	}
}
