// Copyright 2025-2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package openapi 将插件携带的 OpenAPI / Swagger 描述翻译为 LLM 可用的
函数调用描述，以及可直接执行 HTTP 调用的调度函数表。

解析基于 kin-openapi：OpenAPI 3.x 直接加载，Swagger 2.0 先经
openapi2conv 转换；YAML 内容统一经 sigs.k8s.io/yaml 转为 JSON，
版本字段用 gjson 探测。

# 核心接口/类型

  - Document：解析后的 API 描述（标题、版本、首个 Server、有序 Operation 列表）
  - Generator：由插件记录生成 Entry（函数描述 + 调度函数）
  - Service：以插件 ID 为键的翻译缓存，仅在 replace 时重建
  - Entry：单个插件的翻译结果，解析失败时为零个 Operation
  - Credential：按认证方式格式化后的凭证及注入位置
  - Observer：翻译与调用结果的指标回调

# 主要能力

  - 参数 Schema：优先使用 application/json 请求体 Schema（内联 $ref），
    并把 query / path 参数合并为顶层属性，required 字段始终存在
  - 命名：优先 operationId，否则为 METHOD + 路径（"/" 替换为 "_"）
  - 调度：path / query / header / cookie 参数按声明位置放置，
    其余参数作为 JSON 请求体；凭证按 header / query / body 注入
  - 代理：UsingProxy 时请求发往本地代理，真实地址放在 X-Base-URL 头
  - 可观测性：每次调用创建 OTel Span 并向下游传播 Trace 上下文
*/
package openapi
