// Package db 内嵌数据库迁移脚本。
package db

import "embed"

// Migrations 包含按文件名顺序执行的建表脚本。
//
//go:embed migrations/*.up.sql
var Migrations embed.FS
