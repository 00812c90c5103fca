package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"workforce-decision/backend/internal/ai"
	"workforce-decision/backend/internal/store"
)

// Config defines server dependencies.
type Config struct {
	DBPath         string
	SilentDB       bool
	AllowedOrigins []string
	AIConfig       ai.Config
	GeminiConfig   ai.GeminiConfig
	DisableAI      bool
	MaxAttempts    int
}

// Server wires HTTP handlers with persistence and the reasoning engine.
type Server struct {
	db             *store.Database
	completer      ai.Completer
	runNotifier    *RunNotifier
	allowedOrigins []string
	maxAttempts    int
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	var completer ai.Completer
	if cfg.DisableAI {
		logrus.Info("reasoning provider disabled via configuration")
	} else {
		var primary, fallback ai.Completer
		if client, err := ai.NewOpenAIClient(cfg.AIConfig); err == nil {
			primary = client
		} else if !errors.Is(err, ai.ErrDisabled) {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		if client, err := ai.NewGeminiClient(cfg.GeminiConfig); err == nil {
			fallback = client
		} else if !errors.Is(err, ai.ErrDisabled) {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		if primary == nil && fallback == nil {
			return nil, errors.New("reasoning disabled: configure OpenAI or Gemini credentials")
		}
		completer = ai.WithFallback(primary, fallback)
		logrus.WithFields(logrus.Fields{
			"openai": primary != nil,
			"gemini": fallback != nil,
		}).Info("reasoning providers configured")
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = ai.DefaultMaxAttempts
	}

	return &Server{
		db:             db,
		completer:      completer,
		runNotifier:    NewRunNotifier(),
		allowedOrigins: cfg.AllowedOrigins,
		maxAttempts:    maxAttempts,
	}, nil
}

// Close releases the underlying database handle.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.POST("/scenario-sets", s.handleCreateScenarioSet)
		api.GET("/scenario-sets", s.handleListScenarioSets)
		api.GET("/scenario-sets/:id", s.handleGetScenarioSet)
		api.POST("/reason", s.handleReason)
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/stream", s.handleRunStream)
		api.GET("/runs/:runID", s.handleGetRun)
		api.GET("/export.csv", s.handleExportCSV)
		api.GET("/export.json", s.handleExportJSON)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	payload := gin.H{
		"reasoning_enabled": s.completer != nil && s.completer.Enabled(),
		"max_attempts":      s.maxAttempts,
	}
	if last := s.runNotifier.LastStatus(); last != nil {
		payload["last_run"] = last
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) handleCreateScenarioSet(c *gin.Context) {
	var req CreateScenarioSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	scenarios, err := scenariosFromInputs(req.Scenarios)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
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

	set, err := s.db.CreateScenarioSet(req.Name, req.Owner, rows)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, SetFromModel(*set))
}

func (s *Server) handleListScenarioSets(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 25
	}
	offset := page * pageSize

	rows, total, err := s.db.ListScenarioSets(offset, pageSize)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]ScenarioSetDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, SetFromModel(row))
	}
	c.JSON(http.StatusOK, ScenarioSetsResponse{Items: dtos, Total: total})
}

func (s *Server) handleGetScenarioSet(c *gin.Context) {
	setID, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	set, err := s.db.GetScenarioSet(setID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("scenario set %d not found", setID))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}

	scenarios, err := s.db.ScenariosForSet(set.ID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dto := SetFromModel(*set)
	dto.Scenarios = make([]ScenarioDTO, 0, len(scenarios))
	for _, sc := range scenarios {
		dto.Scenarios = append(dto.Scenarios, ScenarioFromModel(sc))
	}
	c.JSON(http.StatusOK, dto)
}

func (s *Server) handleListRuns(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 50
	}
	offset := page * pageSize

	setID := uint(0)
	if value := strings.TrimSpace(c.Query("set_id")); value != "" {
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil || parsed == 0 {
			s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid set_id: %s", value))
			return
		}
		setID = uint(parsed)
	}

	rows, total, err := s.db.ListRuns(store.RunQuery{
		SetID:      setID,
		Mode:       c.Query("mode"),
		Status:     c.Query("status"),
		WithIssues: c.Query("withIssues") == "true",
		Sort:       c.Query("sort"),
		Offset:     offset,
		Limit:      pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]RunDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromRunModel(row))
	}
	c.JSON(http.StatusOK, RunsResponse{Items: dtos, Total: total})
}

func (s *Server) handleGetRun(c *gin.Context) {
	runID := strings.TrimSpace(c.Param("runID"))
	if runID == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("run id required"))
		return
	}

	run, err := s.db.GetRun(runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("run %s not found", runID))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.JSON(http.StatusOK, FromRunModel(*run))
}

func (s *Server) handleRunStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.runNotifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("run websocket connected")
	defer s.runNotifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("run websocket closed")
			} else {
				logrus.WithError(err).Warn("run websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) handleExportCSV(c *gin.Context) {
	rows, _, err := s.db.ListRuns(store.RunQuery{Limit: -1, Sort: "created_asc"})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=reasoning-runs-export.csv")
	c.Header("Content-Type", "text/csv")

	writer := csv.NewWriter(c.Writer)
	headers := []string{"run_id", "set_id", "decision_mode", "objective", "audience", "status", "attempts", "recommended_scenario", "confidence", "issue_count", "exec_summary", "created_at"}
	if err := writer.Write(headers); err != nil {
		return
	}
	for _, row := range rows {
		line := []string{
			row.RunID,
			strconv.FormatUint(uint64(row.SetID), 10),
			row.DecisionMode,
			row.Objective,
			row.Audience,
			row.Status,
			strconv.Itoa(row.Attempts),
			row.RecommendedScenario,
			fmt.Sprintf("%.2f", row.Confidence),
			strconv.Itoa(row.IssueCount),
			row.ExecSummary,
			row.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(line); err != nil {
			return
		}
	}
	writer.Flush()
}

func (s *Server) handleExportJSON(c *gin.Context) {
	rows, _, err := s.db.ListRuns(store.RunQuery{Limit: -1, Sort: "created_asc"})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]RunDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromRunModel(row))
	}
	c.Header("Content-Disposition", "attachment; filename=reasoning-runs-export.json")
	c.JSON(http.StatusOK, dtos)
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseUintParam(value string) (uint, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, errors.New("identifier is required")
	}
	parsed, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid identifier: %w", err)
	}
	if parsed == 0 {
		return 0, errors.New("identifier must be greater than zero")
	}
	return uint(parsed), nil
}
