// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、插件翻译与调用、
种子导入、翻译缓存与持久化存储五大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 向量指标，按业务域分组管理。同时实现 openapi.Observer。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 插件指标：翻译次数（ok/failed）、每个插件的 Operation 数、
    调用次数与耗时（按 plugin/operation 分组）、已注册插件数（builtin/custom）。
  - 种子指标：清单条目处理结果计数（added/skipped/failed）。
  - 缓存指标：翻译缓存命中与未命中计数，按 cache_type 分组。
  - 存储指标：后端操作耗时与失败计数，按 backend/operation 分组。
*/
package metrics
