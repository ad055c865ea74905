package database

import (
	"fmt"
	"strings"
)

// Dialect 屏蔽 SQLite 与 PostgreSQL 在占位符和 upsert 语法上的差异。
type Dialect struct {
	driver string
}

// NewDialect 根据驱动名称构建方言。
func NewDialect(driver string) Dialect {
	return Dialect{driver: strings.ToLower(strings.TrimSpace(driver))}
}

// IsPostgres 判断是否为 PostgreSQL 系驱动。
func (d Dialect) IsPostgres() bool {
	switch d.driver {
	case "postgres", "pgx", "postgresql":
		return true
	default:
		return false
	}
}

// Placeholder 返回指定序号的占位符。
func (d Dialect) Placeholder(index int) string {
	if d.IsPostgres() {
		return fmt.Sprintf("$%d", index)
	}
	return "?"
}

// UpsertClause 生成 ON CONFLICT ... DO UPDATE 子句，两种数据库语法一致。
func (d Dialect) UpsertClause(conflictColumn string, columns ...string) string {
	sets := make([]string, 0, len(columns))
	for _, column := range columns {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", column, column))
	}
	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", conflictColumn, strings.Join(sets, ", "))
}

// PlaceholderBuilder 用于生成顺序占位符，避免手动维护计数。
type PlaceholderBuilder struct {
	dialect Dialect
	index   int
}

// NewPlaceholderBuilder 创建一个计数器实例。
func NewPlaceholderBuilder(d Dialect) *PlaceholderBuilder {
	return &PlaceholderBuilder{dialect: d}
}

// Next 返回下一个可用占位符。
func (b *PlaceholderBuilder) Next() string {
	b.index++
	return b.dialect.Placeholder(b.index)
}
