package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"workforce-decision/backend/internal/plan"
	"workforce-decision/backend/internal/store"
)

// seedFile is the on-disk format for a scenario set.
type seedFile struct {
	Name      string         `json:"name"`
	Owner     string         `json:"owner"`
	Scenarios []seedScenario `json:"scenarios"`
}

type seedScenario struct {
	ScenarioID    string   `json:"scenario_id"`
	Name          string   `json:"name"`
	FTERequired   float64  `json:"fte_required"`
	CostAnnual    float64  `json:"cost_annual"`
	ExpectedSLA   float64  `json:"expected_sla"`
	BreachRisk    float64  `json:"breach_risk"`
	OccupancyPeak *float64 `json:"occupancy_peak,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

func main() {
	var (
		dbPath = flag.String("db", filepath.FromSlash("data/workforce-decision.db"), "Path to SQLite database")
		owner  = flag.String("owner", "", "Override owner recorded on the imported sets")
	)
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		logrus.Fatal("usage: seed [-db path] [-owner name] <scenario-set.json> [...]")
	}

	db, err := store.Open(*dbPath, true)
	if err != nil {
		logrus.Fatalf("open database: %v", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	for _, path := range paths {
		set, count, err := importSet(db, path, *owner)
		if err != nil {
			logrus.Fatalf("import %s: %v", path, err)
		}
		logrus.WithFields(logrus.Fields{
			"file":      path,
			"set":       set.ID,
			"name":      set.Name,
			"scenarios": count,
		}).Info("scenario set imported")
	}
}

func importSet(db *store.Database, path, ownerOverride string) (*store.ScenarioSet, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	decoder := json.NewDecoder(f)
	decoder.DisallowUnknownFields()

	var seed seedFile
	if err := decoder.Decode(&seed); err != nil {
		return nil, 0, fmt.Errorf("decode seed file: %w", err)
	}

	name := strings.TrimSpace(seed.Name)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	owner := strings.TrimSpace(seed.Owner)
	if ownerOverride != "" {
		owner = ownerOverride
	}

	scenarios := make([]plan.Scenario, 0, len(seed.Scenarios))
	for i, sc := range seed.Scenarios {
		validated, err := plan.NewScenario(plan.Scenario{
			ScenarioID:    sc.ScenarioID,
			Name:          sc.Name,
			FTERequired:   sc.FTERequired,
			CostAnnual:    sc.CostAnnual,
			ExpectedSLA:   sc.ExpectedSLA,
			BreachRisk:    sc.BreachRisk,
			OccupancyPeak: sc.OccupancyPeak,
			Notes:         sc.Notes,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("scenarios[%d]: %w", i, err)
		}
		scenarios = append(scenarios, validated)
	}
	if err := plan.ValidateScenarios(scenarios); err != nil {
		return nil, 0, err
	}

	rows := make([]store.Scenario, 0, len(scenarios))
	for _, sc := range scenarios {
		rows = append(rows, store.Scenario{
			ScenarioID:    sc.ScenarioID,
			Name:          sc.Name,
			FTERequired:   sc.FTERequired,
			CostAnnual:    sc.CostAnnual,
			ExpectedSLA:   sc.ExpectedSLA,
			BreachRisk:    sc.BreachRisk,
			OccupancyPeak: sc.OccupancyPeak,
			Notes:         sc.Notes,
		})
	}

	set, err := db.CreateScenarioSet(name, owner, rows)
	if err != nil {
		return nil, 0, err
	}
	return set, len(rows), nil
}
