// Package config 提供 plugstore 的配置管理功能。
//
// 配置来源依次为内置默认值、YAML 文件和 PLUGSTORE_ 前缀的环境变量，
// 覆盖服务器、持久化后端（file/bolt/redis/sql/mongo）、插件翻译与调用、
// 种子导入、日志和遥测。
package config
