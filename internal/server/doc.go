// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP/HTTPS 服务器生命周期管理，支持非阻塞启动、
阻塞运行、多服务器协同运行与优雅关闭。

# 概述

本包通过 Manager 封装 net/http.Server，统一管理监听、服务、
关闭与错误传播流程。plugstore 同时运行管理 API 服务器和 Metrics
服务器，RunAll 基于 errgroup 让二者同生共死。

# 核心类型

  - Manager：HTTP 服务器管理器，持有 http.Server、net.Listener
    与异步错误通道，提供 Start/Run/Shutdown 等生命周期方法。
  - Config：服务器配置，包含名称、监听地址、读写超时、空闲超时、
    最大请求头大小、优雅关闭超时与可选的 TLS 证书。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务；配置证书时以 HTTPS 启动。
  - 阻塞运行：Run 在 ctx 结束或服务异常时优雅关闭。
  - 协同运行：RunAll 任一服务器失败时关闭其余服务器并返回首个错误。
  - 错误传播：Errors() 返回异步错误通道，供调用方监控服务异常。
  - 状态查询：IsRunning/Addr 提供运行状态与实际监听地址查询。
*/
package server
