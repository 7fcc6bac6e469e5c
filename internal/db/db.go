package db

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lojf/quizdesk/internal/models"
)

var conn *gorm.DB

// Init opens the submission ledger and makes it the process-wide connection.
func Init(dsn string, log zerolog.Logger) error {
	c, err := Open(dsn)
	if err != nil {
		return err
	}
	conn = c
	log.Info().Str("dsn", dsn).Msg("ledger database ready (sqlite)")
	return nil
}

func Conn() *gorm.DB {
	return conn
}

// Open connects to sqlite and migrates the ledger tables.
func Open(dsn string) (*gorm.DB, error) {
	c, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single writer; cap the pool accordingly.
	sqlDB, err := c.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := c.AutoMigrate(
		&models.AnswerReceipt{},
		&models.QuizAttempt{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	// Composite index GORM doesn't derive from struct tags.
	if err := c.Exec("CREATE INDEX IF NOT EXISTS idx_attempt_attendee_session ON quiz_attempts(attendee_id, session_id)").Error; err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return c, nil
}
