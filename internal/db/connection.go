package db

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

var memorySeq atomic.Uint64

// MemoryDSN returns a process-private in-memory sqlite DSN. The database
// vanishes when its last connection closes.
func MemoryDSN(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "sumobridge"
	}
	return fmt.Sprintf("file:%s_%d_%d?mode=memory&cache=shared", name, time.Now().UnixNano(), memorySeq.Add(1))
}

// OpenMemory opens an in-memory journal database and syncs its schema.
func OpenMemory(name string) (*gorm.DB, error) {
	return Open(MemoryDSN(name))
}

func Open(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	gdb, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        dsn,
	}, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// One connection keeps the in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	if err := gdb.Exec(`PRAGMA busy_timeout=5000;`).Error; err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := SyncSchema(gdb); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return gdb, nil
}

func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
