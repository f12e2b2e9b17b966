// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 plugstore 提供集中式的 TracerProvider 和 MeterProvider 配置。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务，
// 但仍安装 W3C 传播器，使插件调用能把上游 Trace 上下文转发出去。
package telemetry
