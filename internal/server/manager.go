package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🌐 HTTP 服务器管理器
// =============================================================================

// Config 单个监听服务器的参数
type Config struct {
	// 名称，用于日志区分（api / metrics）
	Name string
	// 监听地址，":0" 时由系统分配端口，可通过 Manager.Addr 读取
	Addr string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration

	// 证书与私钥均设置时以 HTTPS 启动
	TLSCertFile string
	TLSKeyFile  string
}

// DefaultConfig 返回默认服务器配置
func DefaultConfig() Config {
	return Config{
		Name:            "http",
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 30 * time.Second,
	}
}

func (c Config) tls() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

// Manager 管理一个 http.Server 的启动与优雅关闭。停止后不能再次启动。
type Manager struct {
	cfg    Config
	srv    *http.Server
	logger *zap.Logger

	mu    sync.Mutex
	state state
	ln    net.Listener
	// failed 接收 Serve 的非正常退出错误
	failed chan error
}

// NewManager 创建服务器管理器
func NewManager(handler http.Handler, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "http"
	}
	return &Manager{
		cfg: cfg,
		srv: &http.Server{
			Addr:           cfg.Addr,
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			IdleTimeout:    cfg.IdleTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
			ErrorLog:       zap.NewStdLog(logger.Named(cfg.Name)),
		},
		failed: make(chan error, 1),
		logger: logger.With(zap.String("component", "http_server"), zap.String("server", cfg.Name)),
	}
}

// Start 绑定端口后在后台开始服务，立即返回
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case stateRunning:
		return fmt.Errorf("server %s already started", m.cfg.Name)
	case stateStopped:
		return fmt.Errorf("server %s is closed", m.cfg.Name)
	}

	ln, err := net.Listen("tcp", m.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.cfg.Addr, err)
	}
	m.ln = ln
	m.state = stateRunning
	m.logger.Info("listening", zap.String("addr", ln.Addr().String()), zap.Bool("tls", m.cfg.tls()))

	go func() {
		var err error
		if m.cfg.tls() {
			err = m.srv.ServeTLS(ln, m.cfg.TLSCertFile, m.cfg.TLSKeyFile)
		} else {
			err = m.srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.failed <- err
		}
	}()
	return nil
}

// Shutdown 优雅关闭，等待进行中的请求（包括流式代理响应）完成，
// 最多等待 ShutdownTimeout。重复调用返回 nil。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state
	m.state = stateStopped
	if prev != stateRunning {
		return nil
	}

	if m.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := m.srv.Shutdown(ctx); err != nil {
		m.logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	m.logger.Info("stopped", zap.Duration("drain", time.Since(start)))
	return nil
}

// Run 启动服务器并阻塞，直到 ctx 结束或服务异常退出，随后优雅关闭。
// ctx 正常结束时返回 nil。
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(); err != nil {
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-m.failed:
		m.logger.Error("server exited unexpectedly", zap.Error(runErr))
	}

	// ctx 已结束，关闭时使用不会被取消的上下文
	if err := m.Shutdown(context.WithoutCancel(ctx)); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// RunAll 并发运行多个服务器，nil 项被跳过。任一服务器失败时其余随之关闭，
// 返回第一个错误。
func RunAll(ctx context.Context, managers ...*Manager) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range managers {
		if m == nil {
			continue
		}
		g.Go(func() error { return m.Run(gctx) })
	}
	return g.Wait()
}

// Addr 返回监听地址。启动后返回实际绑定的地址。
func (m *Manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln != nil {
		return m.ln.Addr().String()
	}
	return m.cfg.Addr
}

// IsRunning 是否正在服务
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == stateRunning
}
