package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/plugstore/plugins"
	"github.com/BaSui01/plugstore/types"
)

// =============================================================================
// 🔌 Plugin Management Handler
// =============================================================================

// PluginStore is the registry surface the plugin and tool handlers need.
type PluginStore interface {
	Create(ctx context.Context, partial types.Plugin) (types.Plugin, error)
	Update(ctx context.Context, id string, fn func(*types.Plugin)) (types.Plugin, error)
	Delete(ctx context.Context, id string) error
	Get(id string) (types.Plugin, bool)
	GetAll() []types.Plugin
	GetAsTools(ids []string) types.ToolSet
}

// PluginHandler serves /api/plugins.
type PluginHandler struct {
	plugins PluginStore
	logger  *zap.Logger
}

// PluginRequest is the body of create and update requests. On update only
// the supplied fields change.
type PluginRequest struct {
	ID           *string             `json:"id,omitempty"`
	Title        *string             `json:"title,omitempty"`
	Version      *string             `json:"version,omitempty"`
	Content      *string             `json:"content,omitempty"`
	AuthType     *types.AuthType     `json:"authType,omitempty"`
	AuthLocation *types.AuthLocation `json:"authLocation,omitempty"`
	AuthHeader   *string             `json:"authHeader,omitempty"`
	AuthToken    *string             `json:"authToken,omitempty"`
	UsingProxy   *bool               `json:"usingProxy,omitempty"`
}

// apply copies the supplied fields onto p. The id never changes here.
func (req *PluginRequest) apply(p *types.Plugin) {
	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Version != nil {
		p.Version = *req.Version
	}
	if req.Content != nil {
		p.Content = *req.Content
	}
	if req.AuthType != nil {
		p.AuthType = *req.AuthType
	}
	if req.AuthLocation != nil {
		p.AuthLocation = *req.AuthLocation
	}
	if req.AuthHeader != nil {
		p.AuthHeader = *req.AuthHeader
	}
	if req.AuthToken != nil {
		p.AuthToken = *req.AuthToken
	}
	if req.UsingProxy != nil {
		p.UsingProxy = *req.UsingProxy
	}
}

// NewPluginHandler creates a plugin handler
func NewPluginHandler(store PluginStore, logger *zap.Logger) *PluginHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PluginHandler{
		plugins: store,
		logger:  logger.With(zap.String("component", "plugin_handler")),
	}
}

// HandleList lists every plugin, newest first
// @Summary List plugins
// @Tags plugin
// @Produce json
// @Success 200 {object} Response{data=[]types.Plugin} "Plugin list"
// @Router /api/plugins [get]
func (h *PluginHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.plugins.GetAll())
}

// HandleCreate creates a user plugin
// @Summary Create plugin
// @Tags plugin
// @Accept json
// @Produce json
// @Param request body PluginRequest true "Plugin fields"
// @Success 201 {object} Response{data=types.Plugin} "Created plugin"
// @Failure 400 {object} Response "Invalid request"
// @Router /api/plugins [post]
func (h *PluginHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req PluginRequest
	if !BindJSON(w, r, &req, h.logger) {
		return
	}

	var partial types.Plugin
	if req.ID != nil {
		partial.ID = *req.ID
	}
	req.apply(&partial)

	created, err := h.plugins.Create(r.Context(), partial)
	if err != nil {
		h.writePluginError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, Response{Success: true, Data: created, Timestamp: time.Now()})
}

// HandleGet returns one plugin
// @Summary Get plugin
// @Tags plugin
// @Produce json
// @Param id path string true "Plugin ID"
// @Success 200 {object} Response{data=types.Plugin} "Plugin"
// @Failure 404 {object} Response "Plugin not found"
// @Router /api/plugins/{id} [get]
func (h *PluginHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, ok := h.plugins.Get(id)
	if !ok {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrPluginNotFound, "plugin not found: "+id, h.logger)
		return
	}
	WriteSuccess(w, p)
}

// HandleUpdate merges the supplied fields into a plugin and re-translates it
// @Summary Update plugin
// @Tags plugin
// @Accept json
// @Produce json
// @Param id path string true "Plugin ID"
// @Param request body PluginRequest true "Fields to change"
// @Success 200 {object} Response{data=types.Plugin} "Updated plugin"
// @Failure 404 {object} Response "Plugin not found"
// @Router /api/plugins/{id} [patch]
func (h *PluginHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req PluginRequest
	if !BindJSON(w, r, &req, h.logger) {
		return
	}
	if req.ID != nil && *req.ID != r.PathValue("id") {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "plugin id cannot be changed", h.logger)
		return
	}

	updated, err := h.plugins.Update(r.Context(), r.PathValue("id"), req.apply)
	if err != nil {
		h.writePluginError(w, err)
		return
	}
	WriteSuccess(w, updated)
}

// HandleDelete removes a plugin
// @Summary Delete plugin
// @Tags plugin
// @Param id path string true "Plugin ID"
// @Success 204 "Deleted"
// @Failure 404 {object} Response "Plugin not found"
// @Router /api/plugins/{id} [delete]
func (h *PluginHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.plugins.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writePluginError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PluginHandler) writePluginError(w http.ResponseWriter, err error) {
	writeRegistryError(w, err, h.logger)
}

// writeRegistryError maps registry sentinels onto API error codes.
func writeRegistryError(w http.ResponseWriter, err error, logger *zap.Logger) {
	switch {
	case errors.Is(err, plugins.ErrPluginNotFound):
		WriteError(w, types.NewError(types.ErrPluginNotFound, err.Error()), logger)
	case errors.Is(err, plugins.ErrInvalidPlugin):
		WriteError(w, types.NewError(types.ErrInvalidRequest, err.Error()), logger)
	default:
		WriteAnyError(w, err, logger)
	}
}
