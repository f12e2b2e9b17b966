package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// RegistryProbe 就绪检查需要的注册表视图
type RegistryProbe interface {
	Len() int
	LastUpdateTime() int64
	Ping(ctx context.Context) error
}

// VersionInfo 构建信息
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// HealthStatus 健康状态响应
type HealthStatus struct {
	Status     string       `json:"status"` // "healthy", "unhealthy"
	Timestamp  time.Time    `json:"timestamp"`
	Plugins    int          `json:"plugins,omitempty"`
	LastUpdate int64        `json:"last_update,omitempty"`
	Store      *CheckResult `json:"store,omitempty"`
}

// CheckResult 存储后端检查结果
type CheckResult struct {
	Status  string `json:"status"` // "pass", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency"`
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	registry RegistryProbe
	timeout  time.Duration
	version  VersionInfo
	logger   *zap.Logger
}

// NewHealthHandler 创建健康检查处理器。registry 为 nil 时就绪检查只报告进程存活。
func NewHealthHandler(registry RegistryProbe, version VersionInfo, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		registry: registry,
		timeout:  5 * time.Second,
		version:  version,
		logger:   logger.With(zap.String("component", "health")),
	}
}

// HandleLive 处理 /health 与 /healthz（存活探针，不触碰存储）
// @Summary 存活检查
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务存活"
// @Router /health [get]
func (h *HealthHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{Status: "healthy", Timestamp: time.Now()})
}

// HandleReady 处理 /ready 与 /readyz：Ping 存储后端并报告已注册插件数量
// @Summary 就绪检查
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务已就绪"
// @Failure 503 {object} HealthStatus "存储不可用"
// @Router /ready [get]
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{Status: "healthy", Timestamp: time.Now()}
	if h.registry == nil {
		WriteJSON(w, http.StatusOK, status)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	err := h.registry.Ping(ctx)
	latency := time.Since(start)

	status.Plugins = h.registry.Len()
	status.LastUpdate = h.registry.LastUpdateTime()
	status.Store = &CheckResult{Status: "pass", Latency: latency.String()}

	if err != nil {
		h.logger.Warn("store ping failed", zap.Error(err), zap.Duration("latency", latency))
		status.Status = "unhealthy"
		status.Store.Status = "fail"
		status.Store.Message = err.Error()
		WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

// HandleVersion 处理 /version 请求
// @Summary 版本信息
// @Tags 健康
// @Produce json
// @Success 200 {object} VersionInfo "版本信息"
// @Router /version [get]
func (h *HealthHandler) HandleVersion(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.version)
}
