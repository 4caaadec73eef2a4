package database

import (
	"time"

	"example.com/arogyayaan/replenishment/config"
	"example.com/arogyayaan/replenishment/internal/metrics"
	"example.com/arogyayaan/replenishment/internal/models"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Databases holds the write and read-only connections
type Databases struct {
	Write    *gorm.DB
	ReadOnly *gorm.DB
}

// Connect opens the write and read-only databases and configures their pools
func Connect(cfg config.DatabaseConfig, m *metrics.Metrics) (*Databases, error) {
	if cfg.DSN == "" {
		return nil, errors.Wrap(config.ErrConfiguration, "database.dsn is required")
	}

	db, err := openDB(cfg.DSN, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to write database")
	}

	readOnlyDB := db
	if cfg.ReadOnlyDSN != "" && cfg.ReadOnlyDSN != cfg.DSN {
		readOnlyDB, err = openDB(cfg.ReadOnlyDSN, cfg)
		if err != nil {
			closeDB(db)
			return nil, errors.Wrap(err, "failed to connect to read-only database")
		}
	}

	if m != nil {
		RegisterMetricsHooks(db, m)
		if readOnlyDB != db {
			RegisterMetricsHooks(readOnlyDB, m)
		}
	}

	return &Databases{Write: db, ReadOnly: readOnlyDB}, nil
}

// openDB is swapped in tests
var openDB = open

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func open(dsn string, cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // pgbouncer in transaction mode rejects prepared statements
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get DB instance")
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// Ping checks both connections
func (d *Databases) Ping() error {
	for _, db := range []*gorm.DB{d.Write, d.ReadOnly} {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.Ping(); err != nil {
			return errors.Wrap(err, "database ping failed")
		}
	}
	return nil
}

// Close closes both connections
func (d *Databases) Close() error {
	sqlDB, err := d.Write.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return err
	}
	if d.ReadOnly == d.Write {
		return nil
	}
	readSQLDB, err := d.ReadOnly.DB()
	if err != nil {
		return err
	}
	return readSQLDB.Close()
}

// AutoMigrate runs migrations against the write database only
func AutoMigrate(d *Databases) error {
	return models.SetupModels(d.Write)
}

// RegisterMetricsHooks registers GORM callbacks that time every database operation
func RegisterMetricsHooks(db *gorm.DB, m *metrics.Metrics) {
	db.Callback().Create().Before("gorm:create").Register("duration:create", startTimer)
	db.Callback().Query().Before("gorm:query").Register("duration:query", startTimer)
	db.Callback().Update().Before("gorm:update").Register("duration:update", startTimer)
	db.Callback().Delete().Before("gorm:delete").Register("duration:delete", startTimer)
	db.Callback().Raw().Before("gorm:raw").Register("duration:raw", startTimer)
	db.Callback().Row().Before("gorm:row").Register("duration:row", startTimer)

	db.Callback().Create().After("gorm:create").Register("metrics:create", observe(m, "insert"))
	db.Callback().Query().After("gorm:query").Register("metrics:query", observe(m, "select"))
	db.Callback().Update().After("gorm:update").Register("metrics:update", observe(m, "update"))
	db.Callback().Delete().After("gorm:delete").Register("metrics:delete", observe(m, "delete"))
	db.Callback().Raw().After("gorm:raw").Register("metrics:raw", observe(m, "raw"))
	db.Callback().Row().After("gorm:row").Register("metrics:row", observe(m, "row"))
}

func startTimer(db *gorm.DB) {
	db.InstanceSet("start_time", time.Now())
}

func observe(m *metrics.Metrics, operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ok := db.Error == nil || errors.Is(db.Error, gorm.ErrRecordNotFound)
		m.RecordDatabaseQuery(operation, ok, elapsed(db))
	}
}

func elapsed(db *gorm.DB) time.Duration {
	if start, ok := db.InstanceGet("start_time"); ok {
		return time.Since(start.(time.Time))
	}
	return 0
}
