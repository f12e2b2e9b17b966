package handlers

import (
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/plugstore/types"
)

// =============================================================================
// 🛠️ Tool Handler
// =============================================================================

// ToolsHandler serves the merged function-calling view of selected plugins.
type ToolsHandler struct {
	plugins PluginStore
	logger  *zap.Logger
}

// ToolsRequest selects plugins by id.
type ToolsRequest struct {
	IDs []string `json:"ids"`
}

// ToolsResponse carries the descriptors and the names of their dispatchers.
type ToolsResponse struct {
	Tools     []types.FunctionTool `json:"tools"`
	Functions []string             `json:"functions"`
}

// InvokeRequest runs one dispatcher of the selected plugins.
type InvokeRequest struct {
	IDs       []string       `json:"ids"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// NewToolsHandler creates a tools handler
func NewToolsHandler(store PluginStore, logger *zap.Logger) *ToolsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolsHandler{
		plugins: store,
		logger:  logger.With(zap.String("component", "tools_handler")),
	}
}

// HandleTools returns the merged tool set of the requested plugins
// @Summary Get tools
// @Tags tools
// @Accept json
// @Produce json
// @Param request body ToolsRequest true "Plugin ids"
// @Success 200 {object} Response{data=ToolsResponse} "Tool set"
// @Router /api/tools [post]
func (h *ToolsHandler) HandleTools(w http.ResponseWriter, r *http.Request) {
	var req ToolsRequest
	if !BindJSON(w, r, &req, h.logger) {
		return
	}

	set := h.plugins.GetAsTools(req.IDs)
	names := make([]string, 0, len(set.Funcs))
	for name := range set.Funcs {
		names = append(names, name)
	}
	sort.Strings(names)

	WriteSuccess(w, ToolsResponse{Tools: set.Tools, Functions: names})
}

// HandleInvoke runs a dispatcher and returns the upstream response
// @Summary Invoke tool
// @Tags tools
// @Accept json
// @Produce json
// @Param request body InvokeRequest true "Invocation"
// @Success 200 {object} Response{data=types.ToolResponse} "Upstream response"
// @Failure 404 {object} Response "Tool not found"
// @Failure 502 {object} Response "Upstream error"
// @Router /api/tools/invoke [post]
func (h *ToolsHandler) HandleInvoke(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	if !BindJSON(w, r, &req, h.logger) {
		return
	}
	if req.Name == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "name is required", h.logger)
		return
	}

	fn, ok := h.plugins.GetAsTools(req.IDs).Funcs[req.Name]
	if !ok {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrToolNotFound, "tool not found: "+req.Name, h.logger)
		return
	}
	if req.Arguments == nil {
		req.Arguments = make(map[string]any)
	}

	resp, err := fn(r.Context(), req.Arguments)
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}
	WriteSuccess(w, resp)
}
