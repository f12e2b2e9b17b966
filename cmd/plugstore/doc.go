// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 plugstore 服务端程序入口。

# 概述

cmd/plugstore 是插件仓库的可执行入口，基于 cobra 组织子命令，
提供 HTTP 管理 API、本地转发代理、种子清单导入、插件与工具查询、
健康检查和版本查询。程序支持 YAML 配置文件加载、环境变量覆盖、
结构化日志（zap）、Prometheus 指标采集以及 OpenTelemetry 追踪。

# 核心类型

  - App：装配存储、翻译服务、插件注册表与种子导入器
  - Middleware：HTTP 中间件函数签名 func(http.Handler) http.Handler
  - statusRecorder：日志、指标、追踪共用的状态码与字节数记录器

# 主要能力

  - 子命令：serve、seed、list、tools、health、version
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    RequestLogger、Metrics、CORS、RateLimiter、APIKeyAuth / JWTAuth
  - 认证：API Key 常量时间比较；JWT 支持 HS256 / RS256，sub 用于限流分桶
  - 本地代理：/api/proxy/ 对回环地址免认证，供代理模式的插件调用
  - 管理端口：/metrics（Prometheus）与 /loglevel（运行时调整日志级别）
  - 优雅关闭：信号取消上下文 → 关闭 HTTP 与 Metrics → 关闭存储
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
