package launchlog

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbmodel "sumobridge/cli/internal/db"
)

const (
	StatusLaunched = "launched"
	StatusFailed   = "failed"
)

type Entry struct {
	ID          string    `json:"id"`
	ProjectName string    `json:"projectName"`
	ScriptPath  string    `json:"scriptPath,omitempty"`
	Status      string    `json:"status"`
	ErrorKind   string    `json:"errorKind,omitempty"`
	Message     string    `json:"message,omitempty"`
	ContentSize int       `json:"contentSize"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store keeps launch outcomes for the lifetime of the bridge process.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore uses the given DB. Caller owns the db.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &Store{db: db, now: time.Now}, nil
}

// Record stores e, filling ID and CreatedAt when empty, and returns the stored entry.
func (s *Store) Record(e Entry) (Entry, error) {
	if s == nil || s.db == nil {
		return Entry{}, errors.New("launch store is not initialized")
	}
	if strings.TrimSpace(e.ID) == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	row := dbmodel.Launch{
		LaunchID:    e.ID,
		ProjectName: e.ProjectName,
		ScriptPath:  e.ScriptPath,
		Status:      e.Status,
		ErrorKind:   e.ErrorKind,
		Message:     e.Message,
		ContentSize: e.ContentSize,
		CreatedAt:   e.CreatedAt.UnixMilli(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		return Entry{}, err
	}
	return e, nil
}

// List returns up to limit entries, newest first.
func (s *Store) List(limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("launch store is not initialized")
	}
	if limit <= 0 {
		limit = 20
	}
	rows := make([]dbmodel.Launch, 0, limit)
	if err := s.db.Order("created_at DESC").Order("rowid DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, Entry{
			ID:          row.LaunchID,
			ProjectName: row.ProjectName,
			ScriptPath:  row.ScriptPath,
			Status:      row.Status,
			ErrorKind:   row.ErrorKind,
			Message:     row.Message,
			ContentSize: row.ContentSize,
			CreatedAt:   time.UnixMilli(row.CreatedAt).UTC(),
		})
	}
	return out, nil
}
