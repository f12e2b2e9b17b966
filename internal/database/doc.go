// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供 SQL 存储后端使用的 GORM 连接打开与连接池管理，支持
postgres、mysql 与 sqlite（纯 Go 实现）三种驱动。

# 概述

Open 按 Config 选择 Dialector 并建立连接，随后交给 PoolManager 管理
连接生命周期。sqlite 被限制为单个永不过期的连接，文件所在目录会被自动创建。

# 核心类型

  - Config：驱动、DSN 与连接池参数，零值字段取 DefaultConfig。
  - PoolManager：持有 GORM 实例与底层 sql.DB，提供 DB()、Ping()、Stats()、
    Close() 与 Transaction()。

# 事务

Transaction 对死锁、序列化失败、sqlite 锁冲突等瞬时错误按指数退避重试，
其余错误立即返回。
*/
package database
