// Package database 提供数据库连接和管理
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/paiban/replacement/internal/config"
	"github.com/paiban/replacement/pkg/logger"

	_ "github.com/lib/pq"  // PostgreSQL 驱动
	_ "modernc.org/sqlite" // SQLite 驱动（嵌入式部署与测试）
)

// Dialect 数据库方言
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DB 数据库连接封装
type DB struct {
	*sql.DB
	dialect       Dialect
	slowThreshold time.Duration
	log           *zerolog.Logger
}

// New 创建新的数据库连接
func New(cfg *config.DatabaseConfig) (*DB, error) {
	dialect := Dialect(cfg.Driver)
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}

	db, err := sql.Open(string(dialect), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	// 配置连接池
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	wrapped := Wrap(db, dialect, cfg.SlowQueryThreshold)

	event := wrapped.log.Info().Str("driver", string(dialect))
	if dialect == DialectSQLite {
		event = event.Str("path", cfg.Path)
	} else {
		event = event.Str("host", cfg.Host).Int("port", cfg.Port).Str("database", cfg.Name)
	}
	event.Msg("数据库连接成功")

	return wrapped, nil
}

// Wrap 包装已打开的连接
func Wrap(db *sql.DB, dialect Dialect, slowThreshold time.Duration) *DB {
	if slowThreshold <= 0 {
		slowThreshold = 100 * time.Millisecond
	}
	return &DB{
		DB:            db,
		dialect:       dialect,
		slowThreshold: slowThreshold,
		log:           logger.Component("database"),
	}
}

// Dialect 返回数据库方言
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	if db.DB != nil {
		db.log.Info().Msg("关闭数据库连接")
		return db.DB.Close()
	}
	return nil
}

// Health 健康检查
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Stats 返回数据库统计信息
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// ExecContext 执行SQL语句
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	db.logSlow(query, time.Since(start))
	return result, err
}

// QueryContext 执行查询
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	db.logSlow(query, time.Since(start))
	return rows, err
}

// QueryRowContext 执行单行查询
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := db.DB.QueryRowContext(ctx, query, args...)
	db.logSlow(query, time.Since(start))
	return row
}

func (db *DB) logSlow(query string, duration time.Duration) {
	if duration > db.slowThreshold {
		db.log.Warn().
			Str("query", truncateQuery(query)).
			Dur("duration", duration).
			Msg("慢SQL查询")
	}
}

// truncateQuery 截断长查询
func truncateQuery(query string) string {
	if len(query) > 200 {
		return query[:200] + "..."
	}
	return query
}
