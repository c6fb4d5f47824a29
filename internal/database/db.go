// Package database opens the SQL connection pool for the configured
// driver.  Postgres goes through pgx's database/sql adapter; MySQL through
// go-sql-driver.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ailabben/dashboard-api/internal/config"
)

// DriverName maps the DB_DRIVER setting to a registered database/sql driver.
func DriverName(setting string) (string, error) {
	switch setting {
	case "postgres", "postgresql", "pgx":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	}
	return "", fmt.Errorf("unsupported DB_DRIVER %q", setting)
}

// DSN builds the connection string for cfg unless DB_URL supplies one.
func DSN(cfg config.Config) (string, error) {
	if cfg.DBURL != "" {
		return cfg.DBURL, nil
	}
	driver, err := DriverName(cfg.DBDriver)
	if err != nil {
		return "", err
	}
	if driver == "mysql" {
		mc := mysql.NewConfig()
		mc.User = cfg.DBUser
		mc.Passwd = cfg.DBPass
		mc.Net = "tcp"
		mc.Addr = cfg.DBHost + ":" + cfg.DBPort
		mc.DBName = cfg.DBName
		// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN(), nil
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     cfg.DBHost + ":" + cfg.DBPort,
		Path:     "/" + cfg.DBName,
		RawQuery: url.Values{"sslmode": {cfg.DBSSLMode}}.Encode(),
	}
	if cfg.DBPass != "" {
		u.User = url.UserPassword(cfg.DBUser, cfg.DBPass)
	} else {
		u.User = url.User(cfg.DBUser)
	}
	return u.String(), nil
}

// Open connects to the configured database and verifies the connection.
// It returns the database/sql driver name alongside the pool so callers
// can pick the matching placeholder dialect.
func Open(cfg config.Config) (*sql.DB, string, error) {
	driver, err := DriverName(cfg.DBDriver)
	if err != nil {
		return nil, "", err
	}
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", err
	}
	return db, driver, nil
}
