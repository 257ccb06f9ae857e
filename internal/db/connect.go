// Package db manages connections and migrations for the local and
// remote Dayflow stores.
package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arielsw/dayflow/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RemoteDSN builds a MySQL DSN for the remote authoritative store.
func RemoteDSN(rc config.RemoteConfig) string {
	cred := rc.User
	if rc.Password != "" {
		cred += ":" + rc.Password
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true", cred, rc.Host, rc.Port, rc.Database)
}

// ConnectLocal opens the local SQLite store, creating parent directories
// as needed.
func ConnectLocal(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("db: create local dir %s: %w", dir, err)
		}
	}
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open local store %s: %w", path, err)
	}
	return gdb, nil
}

// ConnectRemote opens a GORM connection to the remote store.
func ConnectRemote(rc config.RemoteConfig) (*gorm.DB, error) {
	gdb, err := gorm.Open(mysql.Open(RemoteDSN(rc)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", rc.Host, rc.Port, rc.Database, err)
	}
	return gdb, nil
}

// ConnectRemoteAdmin connects to the remote server without selecting a
// database, used for CREATE/DROP DATABASE operations.
func ConnectRemoteAdmin(rc config.RemoteConfig) (*gorm.DB, error) {
	admin := rc
	admin.Database = ""
	gdb, err := gorm.Open(mysql.Open(RemoteDSN(admin)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: admin connect to %s:%d: %w", rc.Host, rc.Port, err)
	}
	return gdb, nil
}

// CreateDatabase creates the named database if it doesn't already exist.
func CreateDatabase(adminDB *gorm.DB, name string) error {
	sql := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: create database %s: %w", name, err)
	}
	return nil
}

// DropDatabase drops the named database if it exists.
func DropDatabase(adminDB *gorm.DB, name string) error {
	sql := fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", name)
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: drop database %s: %w", name, err)
	}
	return nil
}
