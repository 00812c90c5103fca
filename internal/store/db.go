package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&ScenarioSet{}, &Scenario{}, &ReasoningRun{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_runs_set_created ON reasoning_runs(set_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_runs_status_created ON reasoning_runs(status, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_scenarios_set ON scenarios(set_id)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateScenarioSet stores a named set together with its scenarios in one
// transaction.
func (d *Database) CreateScenarioSet(name, owner string, scenarios []Scenario) (*ScenarioSet, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("scenario set name is required")
	}
	if len(scenarios) == 0 {
		return nil, errors.New("scenario set needs at least one scenario")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	set := &ScenarioSet{Name: strings.TrimSpace(name), Owner: strings.TrimSpace(owner), ScenarioCount: len(scenarios)}
	err := d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(set).Error; err != nil {
			return err
		}
		for i := range scenarios {
			scenarios[i].SetID = set.ID
		}
		return tx.CreateInBatches(scenarios, 250).Error
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// GetScenarioSet retrieves a set by ID.
func (d *Database) GetScenarioSet(setID uint) (*ScenarioSet, error) {
	var set ScenarioSet
	if err := d.gorm.First(&set, setID).Error; err != nil {
		return nil, err
	}
	return &set, nil
}

// ScenariosForSet returns the scenarios of a set in insertion order.
func (d *Database) ScenariosForSet(setID uint) ([]Scenario, error) {
	var rows []Scenario
	if err := d.gorm.Where("set_id = ?", setID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListScenarioSets returns a paged list of sets, newest first.
func (d *Database) ListScenarioSets(offset, limit int) ([]ScenarioSet, int64, error) {
	var total int64
	if err := d.gorm.Model(&ScenarioSet{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query := d.gorm.Model(&ScenarioSet{}).Order("created_at DESC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	var sets []ScenarioSet
	if err := query.Find(&sets).Error; err != nil {
		return nil, 0, err
	}
	return sets, total, nil
}

// SaveRun persists a completed or failed reasoning run.
func (d *Database) SaveRun(run *ReasoningRun) error {
	if run == nil {
		return errors.New("run is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(run).Error
}

// GetRun fetches a run by its public run ID.
func (d *Database) GetRun(runID string) (*ReasoningRun, error) {
	var run ReasoningRun
	if err := d.gorm.Where("run_id = ?", runID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// RunQuery encapsulates filters and pagination for listing reasoning runs.
type RunQuery struct {
	SetID      uint
	Mode       string
	Status     string
	WithIssues bool
	Sort       string
	Offset     int
	Limit      int
}

// ListRuns returns paginated run records applying optional filters.
func (d *Database) ListRuns(opts RunQuery) ([]ReasoningRun, int64, error) {
	var total int64
	base := d.gorm.Model(&ReasoningRun{})
	if opts.SetID > 0 {
		base = base.Where("set_id = ?", opts.SetID)
	}
	if mode := strings.TrimSpace(opts.Mode); mode != "" {
		base = base.Where("decision_mode = ?", strings.ToLower(mode))
	}
	if status := strings.TrimSpace(opts.Status); status != "" {
		base = base.Where("status = ?", strings.ToLower(status))
	}
	if opts.WithIssues {
		base = base.Where("issue_count > 0")
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := orderForSort(opts.Sort)
	query := base.Order(order).Offset(opts.Offset)
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var rows []ReasoningRun
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func orderForSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "created_asc":
		return "reasoning_runs.created_at ASC"
	case "confidence_desc":
		return "reasoning_runs.confidence DESC, reasoning_runs.id DESC"
	case "confidence_asc":
		return "reasoning_runs.confidence ASC, reasoning_runs.id DESC"
	case "issues_desc":
		return "reasoning_runs.issue_count DESC, reasoning_runs.id DESC"
	case "attempts_desc":
		return "reasoning_runs.attempts DESC, reasoning_runs.id DESC"
	default:
		return "reasoning_runs.id DESC"
	}
}
