// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 plugstore 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 tools/openapi、plugins、
persistence、api 等上层模块提供统一的类型契约，以避免循环依赖。

# 核心类型

  - Plugin：插件记录（API 描述文本 + 认证配置 + 代理开关）
  - AuthType：认证方式：none / basic / bearer / custom
  - AuthLocation：凭证注入位置：header / query / body
  - FunctionTool：面向 LLM 的函数调用描述（type + function）
  - ToolSchema：函数定义（name + description + JSON Schema parameters）
  - ToolFunc：单个 API 操作的调用函数
  - ToolSet：多个插件合并后的描述列表与调用表
  - Error / ErrorCode：结构化错误体系，含 HTTP 状态码、Retryable、插件与操作标记
  - JSONSchema：JSON Schema 定义与构建器
*/
package types
