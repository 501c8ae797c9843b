package results

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/testrun"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// resultColumn stores a TestResult as a JSON column.
type resultColumn struct {
	*testrun.TestResult
}

func (c resultColumn) Value() (driver.Value, error) {
	if c.TestResult == nil {
		return nil, nil
	}
	return json.Marshal(c.TestResult)
}

func (c *resultColumn) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		c.TestResult = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to scan result: unsupported type %T", value)
	}
	if len(data) == 0 || string(data) == "null" {
		c.TestResult = nil
		return nil
	}
	var r testrun.TestResult
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	c.TestResult = &r
	return nil
}

// Run is the persisted form of a Record.
type Run struct {
	SessionID   string       `gorm:"column:session_id;type:varchar(64);primaryKey"`
	Status      Status       `gorm:"type:varchar(20);not null;default:'pending'"`
	Result      resultColumn `gorm:"type:json"`
	CreatedAt   time.Time    `gorm:"autoCreateTime:false"`
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time `gorm:"index:idx_test_runs_updated_at"`
}

func (Run) TableName() string {
	return "test_runs"
}

func toRun(r *Record) *Run {
	return &Run{
		SessionID:   r.SessionID,
		Status:      r.Status,
		Result:      resultColumn{r.Result},
		CreatedAt:   r.CreatedAt,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}

func (m *Run) record() *Record {
	return &Record{
		SessionID:   m.SessionID,
		Status:      m.Status,
		Result:      m.Result.TestResult,
		CreatedAt:   m.CreatedAt,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}
}

// SQLStore implements Store with GORM. Rows are kept until purged.
type SQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

func NewSQLStore(db *gorm.DB, log logger.Logger) *SQLStore {
	return &SQLStore{
		db:     db,
		logger: log,
	}
}

// Put inserts or replaces the row for sessionID.
func (s *SQLStore) Put(ctx context.Context, sessionID string, r *Record) error {
	if err := prepare(sessionID, r); err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(toRun(r)).Error
	if err != nil {
		s.logger.Error(ctx, "failed to store run record", map[string]interface{}{
			"error":      err.Error(),
			"session_id": sessionID,
			"status":     string(r.Status),
		})
		return err
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	var m Run
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get run record", map[string]interface{}{
			"error":      err.Error(),
			"session_id": sessionID,
		})
		return nil, err
	}
	return m.record(), nil
}

// Purge deletes rows not updated within maxAge and returns how many were
// removed.
func (s *SQLStore) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res := s.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&Run{})
	if res.Error != nil {
		s.logger.Error(ctx, "failed to purge run records", map[string]interface{}{
			"error":  res.Error.Error(),
			"cutoff": cutoff,
		})
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.logger.Info(ctx, "purged run records", map[string]interface{}{
			"count":  res.RowsAffected,
			"cutoff": cutoff,
		})
	}
	return res.RowsAffected, nil
}

// StartPurger runs Purge every interval until ctx is cancelled.
func (s *SQLStore) StartPurger(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_, _ = s.Purge(ctx, maxAge)
			case <-ctx.Done():
				return
			}
		}
	}()
}
