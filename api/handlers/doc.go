// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 plugstore HTTP API 的请求处理器实现。

# 概述

handlers 包实现插件管理 API、工具集查询与调用、本地转发代理、
健康检查以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口，路径参数通过 r.PathValue 读取。

# 核心类型

  - PluginHandler：插件 CRUD（/api/plugins, /api/plugins/{id}）
  - ToolsHandler：合并工具集（/api/tools）与调度函数调用（/api/tools/invoke）
  - ProxyHandler：本地转发代理，按 X-Base-URL 转发 /api/proxy/ 下的请求
  - HealthHandler：存活与就绪检查（/health, /healthz, /ready），就绪时 Ping 存储并报告插件数量
  - Response：统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo：结构化错误信息，含 code、message、retryable、plugin、operation
  - RegistryProbe：就绪检查所需的注册表视图（Len、LastUpdateTime、Ping）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteAnyError / WriteJSON
  - 请求验证：BindJSON（Content-Type 校验、8 MB 限制、严格模式）
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx），上游错误统一为 502/504
  - PATCH 只修改请求中出现的字段，并强制重新翻译插件
*/
package handlers
