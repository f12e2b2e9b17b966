// Copyright 2025-2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package plugins 管理用户配置的插件记录：增删改查、持久化、
首次启动时的内置插件种子，以及把一组插件合并为函数调用工具集。

# 核心接口/类型

  - Registry：以插件 ID 为键的注册表，每次变更都会整体持久化
  - Seeder：从清单 URL 并发拉取 Schema 并创建内置插件
  - Metrics：注册表与种子过程的指标回调

# 持久化格式

整个注册表以一个 JSON 文档保存在固定键（默认 chat-next-web-plugin）下：

	{"state":{"plugins":{"<id>":{...}},"lastUpdateTime":1700000000000},"version":1}

键不存在时加载默认状态，即 DefaultPlugins 返回的四个预置插件。

# 已知行为

  - Update 强制重新翻译；Delete 默认不清理翻译缓存
  - GetAsTools 按 ids 顺序拼接工具描述，调度函数同名时后者覆盖前者
  - 种子过程中单个条目失败只会丢弃该条目，不会向调用方返回错误
*/
package plugins
