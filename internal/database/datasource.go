package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tourbooking/internal/config"
	"tourbooking/internal/pkg/logger"
)

// Open selects the data source once at startup. "sql" connects to DATABASE_URL
// and waits for it with backoff; "memory" is a private in-memory SQLite database
// holding the default fixtures, for demos and local UI work.
func Open(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	log = logger.OrDiscard(log)

	switch cfg.DataSource {
	case config.DataSourceMemory:
		log.Warn("using in-memory data source with fixture data")
		return OpenMemory(DefaultFixtures())
	case config.DataSourceSQL:
		return openSQL(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}
}

// OpenMemory returns a migrated in-memory database seeded with f.
func OpenMemory(f Fixtures) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:tourbooking_%s?mode=memory&cache=private", uuid.NewString())
	db, err := Connect(dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate memory database: %w", err)
	}
	if err := Seed(db, f); err != nil {
		return nil, err
	}
	return db, nil
}

func openSQL(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	policy := RetryPolicy{MaxRetries: cfg.DBMaxRetries, BaseDelay: cfg.DBRetryBaseDelay, MaxDelay: 5 * time.Second}
	gw := NewGateway(db, policy, cfg.DBQueryTimeout, log)
	err = gw.Read(ctx, func(tx *gorm.DB) error {
		conn, err := tx.DB()
		if err != nil {
			return err
		}
		return conn.PingContext(tx.Statement.Context)
	})
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info("database connection established")
	return db, nil
}
