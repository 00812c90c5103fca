package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"workforce-decision/backend/internal/ai"
	"workforce-decision/backend/internal/plan"
	"workforce-decision/backend/internal/store"
	"workforce-decision/backend/internal/util"
)

func (s *Server) handleReason(c *gin.Context) {
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	scenarios, err := s.resolveScenarios(req)
	if err != nil {
		var notFound *setNotFoundError
		if errors.As(err, &notFound) {
			s.renderError(c, http.StatusNotFound, err)
		} else {
			s.renderError(c, http.StatusBadRequest, err)
		}
		return
	}

	dctx := req.Context.ToPlan()
	if err := dctx.Validate(); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = s.maxAttempts
	}

	runID := uuid.NewString()
	timer := util.StartTimer()

	logrus.WithFields(logrus.Fields{
		"run":       runID,
		"mode":      dctx.DecisionMode,
		"objective": dctx.Objective,
		"scenarios": len(scenarios),
	}).Info("reasoning run started")

	engine := ai.NewEngine(s.completer, maxAttempts).WithNotify(func(ev ai.Event) {
		s.runNotifier.Broadcast(RunEvent{
			Type:    "state",
			RunID:   runID,
			SetID:   req.SetID,
			Attempt: ev.Attempt,
			State:   ev.State,
			Issues:  issueDTOsFromAI(ev.Issues),
			Message: ev.Message,
		})
	})

	result, err := engine.Run(c.Request.Context(), dctx, scenarios, req.Question)
	elapsed := timer.ElapsedMs()
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrInvalidInput):
			s.renderError(c, http.StatusBadRequest, err)
		case errors.Is(err, ai.ErrDisabled):
			s.renderError(c, http.StatusServiceUnavailable, err)
		default:
			s.persistFailedRun(runID, req, dctx, err, elapsed)
			s.runNotifier.Broadcast(RunEvent{Type: "failed", RunID: runID, SetID: req.SetID, Message: err.Error()})
			s.renderError(c, http.StatusBadGateway, err)
		}
		return
	}

	run := s.buildRunRecord(runID, req, dctx, result, elapsed)
	if err := s.db.SaveRun(run); err != nil {
		logrus.WithError(err).WithField("run", runID).Error("persist reasoning run")
	}

	issues := issueDTOsFromAI(result.Issues)
	s.runNotifier.Broadcast(RunEvent{Type: "done", RunID: runID, SetID: req.SetID, Attempt: result.Attempts, Issues: issues})

	logrus.WithFields(logrus.Fields{
		"run":      runID,
		"attempts": result.Attempts,
		"issues":   len(issues),
		"ms":       elapsed,
	}).Info("reasoning run completed")

	c.JSON(http.StatusOK, ReasonResponse{
		RunID:            runID,
		Status:           run.Status,
		Attempts:         result.Attempts,
		Response:         result.Response,
		Issues:           issues,
		ProcessingTimeMs: elapsed,
	})
}

type setNotFoundError struct {
	setID uint
}

func (e *setNotFoundError) Error() string {
	return fmt.Sprintf("scenario set %d not found", e.setID)
}

// resolveScenarios loads scenarios from a stored set or converts inline
// inputs. Exactly one source must be supplied.
func (s *Server) resolveScenarios(req ReasonRequest) ([]plan.Scenario, error) {
	if req.SetID > 0 && len(req.Scenarios) > 0 {
		return nil, errors.New("provide either set_id or inline scenarios, not both")
	}
	if req.SetID > 0 {
		if _, err := s.db.GetScenarioSet(req.SetID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &setNotFoundError{setID: req.SetID}
			}
			return nil, err
		}
		rows, err := s.db.ScenariosForSet(req.SetID)
		if err != nil {
			return nil, err
		}
		scenarios := make([]plan.Scenario, 0, len(rows))
		for _, row := range rows {
			scenarios = append(scenarios, plan.Scenario{
				ScenarioID:    row.ScenarioID,
				Name:          row.Name,
				FTERequired:   row.FTERequired,
				CostAnnual:    row.CostAnnual,
				ExpectedSLA:   row.ExpectedSLA,
				BreachRisk:    row.BreachRisk,
				OccupancyPeak: row.OccupancyPeak,
				Notes:         row.Notes,
			})
		}
		return scenarios, nil
	}
	if len(req.Scenarios) == 0 {
		return nil, errors.New("set_id or scenarios is required")
	}
	return scenariosFromInputs(req.Scenarios)
}

func scenariosFromInputs(inputs []ScenarioInput) ([]plan.Scenario, error) {
	scenarios := make([]plan.Scenario, 0, len(inputs))
	for i, in := range inputs {
		sc, err := in.ToPlan()
		if err != nil {
			return nil, fmt.Errorf("scenarios[%d]: %w", i, err)
		}
		scenarios = append(scenarios, sc)
	}
	if err := plan.ValidateScenarios(scenarios); err != nil {
		return nil, err
	}
	return scenarios, nil
}

func (s *Server) buildRunRecord(runID string, req ReasonRequest, dctx plan.DecisionContext, result *ai.Result, elapsed int64) *store.ReasoningRun {
	run := &store.ReasoningRun{
		RunID:            runID,
		SetID:            req.SetID,
		Objective:        dctx.Objective,
		DecisionMode:     dctx.DecisionMode,
		Audience:         dctx.Audience,
		Question:         strings.TrimSpace(req.Question),
		Status:           "completed",
		Attempts:         result.Attempts,
		ProcessingTimeMs: elapsed,
	}
	if len(result.Issues) > 0 {
		run.Status = "completed_with_issues"
	}
	if result.Response != nil {
		if payload, err := json.Marshal(result.Response); err == nil {
			run.ResponseJSON = string(payload)
		}
		run.ExecSummary = result.Response.ExecSummary
		if result.Response.Recommendation != nil {
			run.RecommendedScenario = result.Response.Recommendation.ScenarioID
			run.Confidence = result.Response.Recommendation.Confidence
		}
	}
	run.SetIssues(storeIssuesFromAI(result.Issues))
	return run
}

func (s *Server) persistFailedRun(runID string, req ReasonRequest, dctx plan.DecisionContext, runErr error, elapsed int64) {
	run := &store.ReasoningRun{
		RunID:            runID,
		SetID:            req.SetID,
		Objective:        dctx.Objective,
		DecisionMode:     dctx.DecisionMode,
		Audience:         dctx.Audience,
		Question:         strings.TrimSpace(req.Question),
		Status:           "failed",
		ErrorMessage:     runErr.Error(),
		ProcessingTimeMs: elapsed,
	}
	var respErr *ai.ResponseError
	if errors.As(runErr, &respErr) {
		run.Attempts = respErr.Attempt
		run.SetIssues(storeIssuesFromAI(respErr.Issues))
	} else {
		run.SetIssues(nil)
	}
	if err := s.db.SaveRun(run); err != nil {
		logrus.WithError(err).WithField("run", runID).Error("persist failed run")
	}
}

func issueDTOsFromAI(issues []ai.ValidationIssue) []IssueDTO {
	out := make([]IssueDTO, 0, len(issues))
	for _, issue := range issues {
		out = append(out, IssueDTO{Type: issue.Type, Message: issue.Message})
	}
	return out
}

func storeIssuesFromAI(issues []ai.ValidationIssue) []store.RunIssue {
	out := make([]store.RunIssue, 0, len(issues))
	for _, issue := range issues {
		out = append(out, store.RunIssue{Type: issue.Type, Message: issue.Message})
	}
	return out
}
