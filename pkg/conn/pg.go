// Package conn opens the PostgreSQL connection backing reference data.
package conn

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultHost            = "localhost"
	defaultPort            = 5432
	defaultSSLMode         = "disable"
	defaultMaxOpenConns    = 8
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = time.Hour
)

// Option defines connection options for the reference database.
type Option struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Client wraps a PostgreSQL connection pool.
type Client struct {
	db *gorm.DB
}

// New opens a pooled PostgreSQL connection. The gorm logger is silenced;
// query failures surface through returned errors, not log noise.
func New(opt Option) (*Client, error) {
	opt = opt.withDefaults()
	if opt.Database == "" {
		return nil, fmt.Errorf("conn: database name is empty")
	}

	db, err := gorm.Open(postgres.Open(opt.dsn()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("conn: open %s: %w", opt.Database, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(opt.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opt.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opt.ConnMaxLifetime)

	return &Client{db: db}, nil
}

// DB returns the underlying gorm.DB instance.
func (c *Client) DB() *gorm.DB {
	if c == nil {
		return nil
	}
	return c.db
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (opt Option) withDefaults() Option {
	if opt.Host == "" {
		opt.Host = defaultHost
	}
	if opt.Port == 0 {
		opt.Port = defaultPort
	}
	if opt.SSLMode == "" {
		opt.SSLMode = defaultSSLMode
	}
	if opt.MaxOpenConns == 0 {
		opt.MaxOpenConns = defaultMaxOpenConns
	}
	if opt.MaxIdleConns == 0 {
		opt.MaxIdleConns = defaultMaxIdleConns
	}
	if opt.ConnMaxLifetime == 0 {
		opt.ConnMaxLifetime = defaultConnMaxLifetime
	}
	return opt
}

func (opt Option) dsn() string {
	parts := []string{
		fmt.Sprintf("host=%s", opt.Host),
		fmt.Sprintf("port=%d", opt.Port),
		fmt.Sprintf("dbname=%s", opt.Database),
		fmt.Sprintf("sslmode=%s", opt.SSLMode),
	}
	if opt.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", opt.User))
	}
	if opt.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", opt.Password))
	}
	return strings.Join(parts, " ")
}
