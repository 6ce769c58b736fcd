package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"photoshared-backend/internal/repository/changefeed"
	"photoshared-backend/internal/util"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// DSN 拼接连接字符串
func DSN(user, password, host, port, name string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		user, password, host, port, name)
}

// Open 连接数据库并配置连接池
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	util.Logger.Info("数据库连接成功")
	return db, nil
}

// 主键、点赞/关注键和图片目录用户名区分大小写，所有表使用二进制排序规则
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		uid VARCHAR(64) PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		display_name VARCHAR(255) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		photo_url TEXT NOT NULL,
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		UNIQUE KEY uniq_accounts_email (email)
	) DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		bio TEXT NOT NULL,
		photo_url TEXT NOT NULL,
		updated_at DATETIME(3) NOT NULL
	) DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
	`CREATE TABLE IF NOT EXISTS posts (
		seq BIGINT AUTO_INCREMENT PRIMARY KEY,
		id VARCHAR(64) NOT NULL,
		user_id VARCHAR(64) NOT NULL,
		photo_url TEXT NOT NULL,
		storage_path VARCHAR(512) NOT NULL,
		description TEXT NOT NULL,
		created_at DATETIME(3) NOT NULL,
		UNIQUE KEY uniq_posts_id (id),
		KEY idx_posts_user (user_id, created_at)
	) DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
	`CREATE TABLE IF NOT EXISTS likes (
		seq BIGINT AUTO_INCREMENT PRIMARY KEY,
		id VARCHAR(255) NOT NULL,
		user_id VARCHAR(64) NOT NULL,
		photo_id VARCHAR(128) NOT NULL,
		source VARCHAR(32) NOT NULL,
		photo_url TEXT NOT NULL,
		thumb TEXT NOT NULL,
		description TEXT NOT NULL,
		author_username VARCHAR(128) NOT NULL,
		author_name VARCHAR(255) NOT NULL,
		author_profile_image TEXT NOT NULL,
		likes_count INT NOT NULL DEFAULT 0,
		created_at DATETIME(3) NOT NULL,
		UNIQUE KEY uniq_likes_id (id),
		KEY idx_likes_user (user_id, created_at)
	) DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
	`CREATE TABLE IF NOT EXISTS follows (
		seq BIGINT AUTO_INCREMENT PRIMARY KEY,
		id VARCHAR(255) NOT NULL,
		follower_id VARCHAR(64) NOT NULL,
		following_id VARCHAR(128) NOT NULL,
		created_at DATETIME(3) NOT NULL,
		UNIQUE KEY uniq_follows_id (id),
		KEY idx_follows_pair (follower_id, following_id)
	) DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
}

// Migrate 创建所需的表
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			util.Logger.Error("创建数据表失败", zap.Error(err))
			return err
		}
	}
	util.Logger.Info("数据表检查完成")
	return nil
}

func notify(hub *changefeed.Hub, kind, uid string) {
	if hub != nil {
		hub.Notify(changefeed.Topic(kind, uid))
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
