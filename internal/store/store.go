package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"errortracker/internal/category"
	"errortracker/internal/config"
)

// DisabledID is returned by LogError when the report's category is
// disabled: the report was accepted but filtered, not stored.
const DisabledID int64 = -1

const (
	detailOccurrenceLimit = 50
	defaultListLimit      = 100
)

// Store is the deduplicating error store. All operations go straight
// to the underlying SQLite database; single-statement commits are the
// only concurrency guarantee, plus a partial unique index that keeps
// "one unresolved group per fingerprint" strict even under concurrent
// first occurrences.
type Store struct {
	db           *gorm.DB
	categories   *category.Registry
	logToConsole bool
}

// Report is one raw error report submitted for logging. Category,
// ErrorType and ErrorMessage drive deduplication; everything else is
// optional occurrence context (zero value = absent).
type Report struct {
	Category     string
	ErrorType    string
	ErrorMessage string

	Source     string
	Context    string
	StackTrace string

	PageURL        string
	ScreenshotPath string
	ConsoleLogs    []ConsoleLogEntry
	NetworkErrors  []map[string]any

	RequestURL    string
	RequestParams map[string]any
	HTTPStatus    int
	ResponseBody  string

	Domain string
	JobID  int64

	RunID    string
	Suite    string
	TestID   string
	TestName string

	ExtraData map[string]any
}

// Open creates the database file (and its parent directory) at the
// configured path and returns a migrated store.
func Open(cfg *config.Config) (*Store, error) {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	reg := category.NewRegistry(cfg.CustomCategories, cfg.CategoryFlags, cfg.Enabled)
	return New(db, reg, cfg.LogToConsole)
}

// New wraps an existing GORM connection, migrating the schema. Used
// directly by tests with an in-memory database.
func New(db *gorm.DB, reg *category.Registry, logToConsole bool) (*Store, error) {
	if err := db.AutoMigrate(&ErrorGroup{}, &ErrorOccurrence{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	// Partial unique index: at most one unresolved group per
	// fingerprint, closing the concurrent first-occurrence race.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_errors_fingerprint_unresolved ON errors(fingerprint) WHERE resolved = 0",
	).Error; err != nil {
		return nil, fmt.Errorf("create unique index: %w", err)
	}
	initMetrics()
	return &Store{db: db, categories: reg, logToConsole: logToConsole}, nil
}

// Categories exposes the registry for callers that adjust flags or
// render labels.
func (s *Store) Categories() *category.Registry { return s.categories }

// LogError deduplicates and stores one report. Matching reports (same
// fingerprint, unresolved) increment the existing group; otherwise a
// new group is created. Returns the group id, or DisabledID when the
// category is disabled.
func (s *Store) LogError(rep Report) (int64, error) {
	if !s.categories.Enabled(rep.Category) {
		return DisabledID, nil
	}
	s.categories.Label(rep.Category) // auto-register unknown categories

	if s.logToConsole {
		log.Printf("[%s] %s: %s", strings.ToUpper(rep.Category), rep.ErrorType, truncate(rep.ErrorMessage, 100))
	}

	now := nowStamp()
	fp := Fingerprint(rep.Category, rep.ErrorType, rep.ErrorMessage)

	var groupID uint
	var deduplicated bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		id, existing, err := upsertGroup(tx, fp, rep, now)
		if err != nil {
			return err
		}
		groupID = id
		deduplicated = existing

		occ := buildOccurrence(id, rep, now)
		return tx.Create(occ).Error
	})
	if err != nil {
		return 0, fmt.Errorf("log error: %w", err)
	}
	if deduplicated {
		countDedupHit(rep.Category)
	}
	return int64(groupID), nil
}

// upsertGroup finds the unresolved group for fp and bumps its counters,
// or creates a new one. The bool reports whether an existing group
// matched. A unique-index violation on create means a concurrent writer
// won the first-occurrence race; fall back to the winner's row.
func upsertGroup(tx *gorm.DB, fp string, rep Report, now string) (uint, bool, error) {
	var g ErrorGroup
	if err := tx.Where("fingerprint = ? AND resolved = ?", fp, false).Limit(1).Find(&g).Error; err != nil {
		return 0, false, err
	}
	if g.ID != 0 {
		return g.ID, true, bumpGroup(tx, g.ID, now)
	}

	g = ErrorGroup{
		Fingerprint:     fp,
		Category:        rep.Category,
		ErrorType:       rep.ErrorType,
		ErrorMessage:    rep.ErrorMessage,
		FirstOccurred:   now,
		LastOccurred:    now,
		OccurrenceCount: 1,
	}
	err := tx.Create(&g).Error
	if err == nil {
		return g.ID, false, nil
	}
	if !isUniqueViolation(err) {
		return 0, false, err
	}

	g = ErrorGroup{}
	if lookupErr := tx.Where("fingerprint = ? AND resolved = ?", fp, false).Limit(1).Find(&g).Error; lookupErr != nil {
		return 0, false, lookupErr
	}
	if g.ID == 0 {
		return 0, false, err
	}
	return g.ID, true, bumpGroup(tx, g.ID, now)
}

func bumpGroup(tx *gorm.DB, id uint, now string) error {
	return tx.Model(&ErrorGroup{}).Where("id = ?", id).Updates(map[string]interface{}{
		"occurrence_count": gorm.Expr("occurrence_count + 1"),
		"last_occurred":    now,
	}).Error
}

func buildOccurrence(groupID uint, rep Report, now string) *ErrorOccurrence {
	occ := &ErrorOccurrence{
		ErrorID:   groupID,
		Timestamp: now,
		Category:  rep.Category,

		Source:     optStr(rep.Source),
		Context:    optStr(rep.Context),
		StackTrace: optStr(rep.StackTrace),

		PageURL:        optStr(rep.PageURL),
		ScreenshotPath: optStr(rep.ScreenshotPath),

		RequestURL:   optStr(rep.RequestURL),
		ResponseBody: optStr(rep.ResponseBody),

		Domain: optStr(rep.Domain),

		RunID:    optStr(rep.RunID),
		Suite:    optStr(rep.Suite),
		TestID:   optStr(rep.TestID),
		TestName: optStr(rep.TestName),
	}
	if rep.HTTPStatus != 0 {
		occ.HTTPStatus = &rep.HTTPStatus
	}
	if rep.JobID != 0 {
		occ.JobID = &rep.JobID
	}
	occ.ConsoleLogs = marshalBlob(rep.ConsoleLogs, len(rep.ConsoleLogs) > 0)
	occ.NetworkErrors = marshalBlob(rep.NetworkErrors, len(rep.NetworkErrors) > 0)
	occ.RequestParams = marshalBlob(rep.RequestParams, len(rep.RequestParams) > 0)
	occ.ExtraData = marshalBlob(rep.ExtraData, len(rep.ExtraData) > 0)
	return occ
}

// ListErrors returns groups ordered by last_occurred descending.
// category "" means no filter; resolved groups are excluded unless
// includeResolved is set. limit <= 0 falls back to the default page.
func (s *Store) ListErrors(categoryKey string, includeResolved bool, limit, offset int) ([]ErrorGroup, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := s.db.Model(&ErrorGroup{})
	if categoryKey != "" {
		q = q.Where("category = ?", categoryKey)
	}
	if !includeResolved {
		q = q.Where("resolved = ?", false)
	}
	var groups []ErrorGroup
	if err := q.Order("last_occurred DESC").Limit(limit).Offset(offset).Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list errors: %w", err)
	}
	return groups, nil
}

// GetErrorDetail returns the group with its 50 most recent occurrences
// and resolved category label, or nil when the id does not exist.
func (s *Store) GetErrorDetail(id int64) (*ErrorDetail, error) {
	var g ErrorGroup
	if err := s.db.Limit(1).Find(&g, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("load error group: %w", err)
	}
	if g.ID == 0 {
		return nil, nil
	}

	var occs []ErrorOccurrence
	if err := s.db.Where("error_id = ?", g.ID).
		Order("timestamp DESC").Limit(detailOccurrenceLimit).
		Find(&occs).Error; err != nil {
		return nil, fmt.Errorf("load occurrences: %w", err)
	}

	return &ErrorDetail{
		ErrorGroup:    g,
		Occurrences:   occs,
		CategoryLabel: s.categories.Label(g.Category),
	}, nil
}

// GetOccurrence returns a single occurrence, or nil when not found.
func (s *Store) GetOccurrence(id int64) (*ErrorOccurrence, error) {
	var occ ErrorOccurrence
	if err := s.db.Limit(1).Find(&occ, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("load occurrence: %w", err)
	}
	if occ.ID == 0 {
		return nil, nil
	}
	return &occ, nil
}

// MarkResolved marks the group resolved with optional notes. Returns
// false when the id does not exist. A resolved group no longer matches
// dedup lookups, so a recurrence opens a fresh group.
func (s *Store) MarkResolved(id int64, notes string) (bool, error) {
	res := s.db.Model(&ErrorGroup{}).Where("id = ?", id).Updates(map[string]interface{}{
		"resolved":         true,
		"resolution_notes": optStr(notes),
	})
	if res.Error != nil {
		return false, fmt.Errorf("mark resolved: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AddNote appends a timestamped note to the group's notes without
// changing its resolved state.
func (s *Store) AddNote(id int64, note string) (bool, error) {
	var g ErrorGroup
	if err := s.db.Limit(1).Find(&g, "id = ?", id).Error; err != nil {
		return false, fmt.Errorf("load error group: %w", err)
	}
	if g.ID == 0 {
		return false, nil
	}

	entry := "[" + nowStamp() + "] " + note
	if g.ResolutionNotes != nil && *g.ResolutionNotes != "" {
		entry = *g.ResolutionNotes + "\n" + entry
	}
	if err := s.db.Model(&ErrorGroup{}).Where("id = ?", g.ID).
		Update("resolution_notes", entry).Error; err != nil {
		return false, fmt.Errorf("add note: %w", err)
	}
	return true, nil
}

// DeleteError removes a group and all its occurrences. Returns false
// when the id does not exist.
func (s *Store) DeleteError(id int64) (bool, error) {
	deleted := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("error_id = ?", id).Delete(&ErrorOccurrence{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&ErrorGroup{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete error: %w", err)
	}
	return deleted, nil
}

// ClearResolved deletes every resolved group and its occurrences in one
// transaction, returning the number of groups removed.
func (s *Store) ClearResolved() (int64, error) {
	var cleared int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&ErrorGroup{}).Where("resolved = ?", true).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("error_id IN ?", ids).Delete(&ErrorOccurrence{}).Error; err != nil {
			return err
		}
		res := tx.Where("resolved = ?", true).Delete(&ErrorGroup{})
		if res.Error != nil {
			return res.Error
		}
		cleared = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clear resolved: %w", err)
	}
	return cleared, nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func marshalBlob(v any, present bool) datatypes.JSON {
	if !present {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

// truncate bounds s to n characters without splitting a rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
