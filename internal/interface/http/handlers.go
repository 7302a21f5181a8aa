package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alem-hub/progression-engine/internal/application/progression"
	"github.com/alem-hub/progression-engine/internal/domain/progress"
	"github.com/alem-hub/progression-engine/internal/domain/shared"
	"github.com/alem-hub/progression-engine/internal/infrastructure/persistence/document"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / RESPONSE TYPES
// ══════════════════════════════════════════════════════════════════════════════

type trackEventRequest struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type awardPointsRequest struct {
	Points *int   `json:"points"`
	Reason string `json:"reason"`
}

// ProgressResponse is the current snapshot plus level display data.
type ProgressResponse struct {
	document.Snapshot
	Title         string                 `json:"title"`
	LevelProgress progress.LevelProgress `json:"levelProgress"`
}

// OutcomeResponse reports the result of one mutation.
type OutcomeResponse struct {
	Applied              bool              `json:"applied"`
	Rejected             string            `json:"rejected,omitempty"`
	Version              int64             `json:"version"`
	TotalPoints          int               `json:"totalPoints"`
	Level                int               `json:"level"`
	LeveledUp            bool              `json:"leveledUp"`
	PointsGained         int               `json:"pointsGained"`
	BadgesUnlocked       []document.Badge  `json:"badgesUnlocked"`
	AchievementsUnlocked []AchievementView `json:"achievementsUnlocked"`
}

// AchievementView is the public shape of an achievement definition.
type AchievementView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Metric      string `json:"metric"`
	Target      int    `json:"target"`
	BadgeID     string `json:"badgeId"`
	BonusPoints int    `json:"bonusPoints,omitempty"`
}

// LevelView describes the level reached with a number of points.
type LevelView struct {
	Points int    `json:"points"`
	Level  int    `json:"level"`
	Title  string `json:"title"`
	progress.LevelProgress
}

// CatalogView lists everything a user can earn.
type CatalogView struct {
	Levels       []LevelStep       `json:"levels"`
	Badges       []BadgeView       `json:"badges"`
	Achievements []AchievementView `json:"achievements"`
}

// LevelStep is one row of the level table.
type LevelStep struct {
	Level     int    `json:"level"`
	Threshold int    `json:"threshold"`
	Title     string `json:"title"`
}

// BadgeView is one catalog badge.
type BadgeView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Category    string `json:"category,omitempty"`
	Rarity      string `json:"rarity,omitempty"`
	Points      int    `json:"points"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & METRICS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Health.Check(r.Context())

	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.deps.Engine.Metrics())
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request, _ shared.UserID) {
	snap, _, err := s.deps.Engine.Snapshot(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	levels := s.deps.Engine.Catalog().Levels()
	writeJSON(w, r, http.StatusOK, ProgressResponse{
		Snapshot:      document.FromDomain(snap),
		Title:         levels.Title(snap.Level),
		LevelProgress: levels.ProgressToNextLevel(snap.TotalPoints),
	})
}

func (s *Server) handleTrackEvent(w http.ResponseWriter, r *http.Request, _ shared.UserID) {
	var req trackEventRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Type == "" {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", "type is required")
		return
	}

	out, err := s.deps.Engine.TrackEvent(r.Context(), req.Type, req.Data)
	s.writeOutcome(w, r, out, err)
}

func (s *Server) handleAwardPoints(w http.ResponseWriter, r *http.Request, _ shared.UserID) {
	var req awardPointsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Points == nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", "points is required")
		return
	}

	out, err := s.deps.Engine.AwardPoints(r.Context(), *req.Points, req.Reason)
	s.writeOutcome(w, r, out, err)
}

func (s *Server) handleUnlockBadge(w http.ResponseWriter, r *http.Request, _ shared.UserID) {
	out, err := s.deps.Engine.UnlockBadge(r.Context(), r.PathValue("id"))
	s.writeOutcome(w, r, out, err)
}

func (s *Server) handleUpdateStreak(w http.ResponseWriter, r *http.Request, _ shared.UserID) {
	out, err := s.deps.Engine.UpdateStreak(r.Context(), r.PathValue("kind"))
	s.writeOutcome(w, r, out, err)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, userID shared.UserID) {
	s.deps.Engine.Logout(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// PUBLIC
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	points, err := strconv.Atoi(r.PathValue("points"))
	if err != nil || points < 0 {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", "points must be a non-negative integer")
		return
	}

	levels := s.deps.Engine.Catalog().Levels()
	level := levels.LevelOf(points)
	writeJSON(w, r, http.StatusOK, LevelView{
		Points:        points,
		Level:         level,
		Title:         levels.Title(level),
		LevelProgress: levels.ProgressToNextLevel(points),
	})
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, catalogView(s.deps.Engine.Catalog()))
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, out progression.Outcome, err error) {
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, outcomeView(out))
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, progression.ErrEngineClosed):
		writeJSONError(w, r, http.StatusServiceUnavailable, "unavailable", "service is shutting down")
	case shared.IsValidation(err):
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		s.logger.Error("progression operation failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", getRequestID(r.Context()),
		)
		writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "operation failed")
	}
}

func outcomeView(out progression.Outcome) OutcomeResponse {
	v := OutcomeResponse{
		Applied:              out.Applied,
		Version:              out.Version,
		TotalPoints:          out.TotalPoints,
		Level:                out.Level,
		LeveledUp:            out.LeveledUp,
		PointsGained:         out.PointsGained,
		BadgesUnlocked:       make([]document.Badge, 0, len(out.BadgesUnlocked)),
		AchievementsUnlocked: make([]AchievementView, 0, len(out.AchievementsUnlocked)),
	}
	if out.Rejected != nil {
		v.Rejected = out.Rejected.Error()
	}
	for _, b := range out.BadgesUnlocked {
		v.BadgesUnlocked = append(v.BadgesUnlocked, document.Badge{
			ID:          string(b.ID),
			Name:        b.Name,
			Description: b.Description,
			Icon:        b.Icon,
			Category:    b.Category,
			Rarity:      string(b.Rarity),
			Points:      b.Points,
			IsUnlocked:  b.IsUnlocked,
			UnlockedAt:  b.UnlockedAt.UTC(),
		})
	}
	for _, a := range out.AchievementsUnlocked {
		v.AchievementsUnlocked = append(v.AchievementsUnlocked, achievementView(a))
	}
	return v
}

func achievementView(a progress.AchievementDefinition) AchievementView {
	return AchievementView{
		ID:          string(a.ID),
		Name:        a.Name,
		Description: a.Description,
		Metric:      string(a.Metric),
		Target:      a.Target,
		BadgeID:     string(a.Reward.BadgeID),
		BonusPoints: a.Reward.BonusPoints,
	}
}

func catalogView(c *progress.Catalog) CatalogView {
	levels := c.Levels()
	v := CatalogView{}
	for i, threshold := range levels.Thresholds() {
		level := i + 1
		v.Levels = append(v.Levels, LevelStep{Level: level, Threshold: threshold, Title: levels.Title(level)})
	}
	for _, b := range c.Badges() {
		v.Badges = append(v.Badges, BadgeView{
			ID:          string(b.ID),
			Name:        b.Name,
			Description: b.Description,
			Icon:        b.Icon,
			Category:    b.Category,
			Rarity:      string(b.Rarity),
			Points:      b.Points,
		})
	}
	for _, a := range c.Achievements() {
		v.Achievements = append(v.Achievements, achievementView(a))
	}
	return v
}
