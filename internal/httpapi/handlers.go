package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/godilite/ata-server/internal/metrics"
	"github.com/godilite/ata-server/internal/repository/models"
	"github.com/godilite/ata-server/internal/rubric"
	"github.com/godilite/ata-server/internal/service"
)

const (
	defaultCacheDuration  = 10 * time.Minute
	defaultRequestTimeout = 15 * time.Second
)

const (
	cacheKeyAuditorIntel = "ata:analytics:auditors"
	cacheKeyRiskFlags    = "ata:analytics:risk"
	cacheKeyHealthIndex  = "ata:analytics:health"
	cacheKeyDashboard    = "ata:dashboard"
)

var analyticsCacheKeys = []string{
	cacheKeyAuditorIntel,
	cacheKeyRiskFlags,
	cacheKeyHealthIndex,
	cacheKeyDashboard,
}

// Handlers carries the HTTP surface of the audit service.
type Handlers struct {
	evaluations EvaluationService
	analytics   AnalyticsService
	cache       Cacher
	catalog     rubric.Catalog
	logger      *zap.Logger
	validate    *validator.Validate
	sfGroup     singleflight.Group
	cacheTTL    time.Duration
}

// NewHandlers initializes the HTTP handlers.
func NewHandlers(evaluations EvaluationService, analytics AnalyticsService, cache Cacher, catalog rubric.Catalog, logger *zap.Logger, ttl time.Duration) *Handlers {
	if evaluations == nil {
		panic("nil EvaluationService provided to NewHandlers")
	}
	if analytics == nil {
		panic("nil AnalyticsService provided to NewHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	return &Handlers{
		evaluations: evaluations,
		analytics:   analytics,
		cache:       cache,
		catalog:     catalog,
		logger:      logger.Named("http-handler"),
		validate:    validator.New(),
		cacheTTL:    ttl,
	}
}

// Routes mounts every endpoint under the given router.
func (h *Handlers) Routes(r chi.Router) {
	r.Route("/evaluations", func(r chi.Router) {
		r.Post("/", h.CreateEvaluation)
		r.Get("/", h.ListEvaluations)
		r.Route("/{evaluationID}", func(r chi.Router) {
			r.Get("/", h.GetEvaluation)
			r.Put("/", h.ReplaceEvaluation)
			r.Delete("/", h.DeleteEvaluation)
			r.Get("/coaching", h.GetCoachingSummary)
		})
	})
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/auditors", h.GetAuditorIntelligence)
		r.Get("/risk", h.GetRiskFlags)
		r.Get("/health", h.GetHealthIndexes)
	})
	r.Get("/dashboard", h.GetDashboard)
	r.Get("/rubric", h.GetRubric)
}

type detailPayload struct {
	Group       string `json:"group" validate:"required,oneof=HEADER ACCURACY_SUB EVAL_QUALITY"`
	Parameter   string `json:"parameter" validate:"required"`
	Points      int    `json:"points" validate:"min=0"`
	Description string `json:"description"`
	Result      string `json:"result" validate:"omitempty,oneof=Pass Fail"`
	Comment     string `json:"comment"`
}

type evaluationPayload struct {
	EvaluationDate  string          `json:"evaluation_date" validate:"required,datetime=2006-01-02"`
	AuditDate       string          `json:"audit_date" validate:"omitempty,datetime=2006-01-02"`
	Reaudit         string          `json:"reaudit" validate:"omitempty,oneof=Yes No"`
	QAName          string          `json:"qa_name" validate:"required"`
	Auditor         string          `json:"auditor" validate:"required"`
	CallID          string          `json:"call_id"`
	CallDuration    string          `json:"call_duration"`
	CallDisposition string          `json:"call_disposition"`
	Details         []detailPayload `json:"details" validate:"required,min=1,dive"`
}

func (p evaluationPayload) toInput() service.EvaluationInput {
	in := service.EvaluationInput{
		EvaluationDate:  p.EvaluationDate,
		AuditDate:       p.AuditDate,
		Reaudit:         p.Reaudit,
		QAName:          p.QAName,
		Auditor:         p.Auditor,
		CallID:          p.CallID,
		CallDuration:    p.CallDuration,
		CallDisposition: p.CallDisposition,
	}
	if in.Reaudit == "" {
		in.Reaudit = "No"
	}
	for _, d := range p.Details {
		in.Details = append(in.Details, service.DetailInput{
			Group:       d.Group,
			Parameter:   d.Parameter,
			Points:      d.Points,
			Description: d.Description,
			Result:      d.Result,
			Comment:     d.Comment,
		})
	}
	return in
}

type summaryResponse struct {
	EvaluationID    string  `json:"evaluation_id"`
	EvaluationDate  string  `json:"evaluation_date"`
	AuditDate       string  `json:"audit_date"`
	Reaudit         string  `json:"reaudit"`
	QAName          string  `json:"qa_name"`
	Auditor         string  `json:"auditor"`
	CallID          string  `json:"call_id"`
	CallDuration    string  `json:"call_duration"`
	CallDisposition string  `json:"call_disposition"`
	OverallScore    float64 `json:"overall_score"`
	PassedPoints    float64 `json:"passed_points"`
	FailedPoints    float64 `json:"failed_points"`
	TotalPoints     float64 `json:"total_points"`
	LastUpdated     string  `json:"last_updated"`
}

type detailResponse struct {
	Group       string `json:"group"`
	Parameter   string `json:"parameter"`
	Points      int    `json:"points"`
	Description string `json:"description"`
	Result      string `json:"result"`
	Comment     string `json:"comment"`
}

type evaluationResponse struct {
	Summary summaryResponse  `json:"summary"`
	Details []detailResponse `json:"details"`
}

func toSummaryResponse(s models.SummaryRow) summaryResponse {
	return summaryResponse{
		EvaluationID:    s.EvaluationID,
		EvaluationDate:  s.EvaluationDate,
		AuditDate:       s.AuditDate,
		Reaudit:         s.Reaudit,
		QAName:          s.QAName,
		Auditor:         s.Auditor,
		CallID:          s.CallID,
		CallDuration:    s.CallDuration,
		CallDisposition: s.CallDisposition,
		OverallScore:    s.OverallScore,
		PassedPoints:    s.PassedPoints,
		FailedPoints:    s.FailedPoints,
		TotalPoints:     s.TotalPoints,
		LastUpdated:     s.LastUpdated,
	}
}

func toEvaluationResponse(ev models.Evaluation) evaluationResponse {
	resp := evaluationResponse{
		Summary: toSummaryResponse(ev.Summary),
		Details: make([]detailResponse, 0, len(ev.Details)),
	}
	for _, d := range ev.Details {
		resp.Details = append(resp.Details, detailResponse{
			Group:       d.Group,
			Parameter:   d.Parameter,
			Points:      d.Points,
			Description: d.Description,
			Result:      d.Result,
			Comment:     d.Comment,
		})
	}
	return resp
}

func (h *Handlers) decodeEvaluation(r *http.Request) (evaluationPayload, error) {
	var payload evaluationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return payload, err
	}
	if err := h.validate.Struct(payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func (h *Handlers) handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch r.Context().Err() {
	case context.Canceled:
		h.logger.Warn("request canceled", zap.String("op", op))
		writeError(w, http.StatusRequestTimeout, "request canceled")
		return
	case context.DeadlineExceeded:
		h.logger.Warn("request timeout", zap.String("op", op))
		writeError(w, http.StatusGatewayTimeout, "request timed out")
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidEvaluation):
		h.logger.Info("invalid evaluation", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		h.logger.Info("evaluation not found", zap.String("op", op))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrStorageFailure):
		h.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "audit log store error")
	default:
		h.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// invalidateAnalyticsCache drops the cached analytics views after a mutation
// so the next dashboard read recomputes from the rewritten sheets.
func (h *Handlers) invalidateAnalyticsCache(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Del(ctx, analyticsCacheKeys...); err != nil {
		h.logger.Warn("analytics cache invalidation failed", zap.Error(err))
	}
}

// CreateEvaluation handles POST /evaluations.
func (h *Handlers) CreateEvaluation(w http.ResponseWriter, r *http.Request) {
	payload, err := h.decodeEvaluation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultRequestTimeout)
	defer cancel()

	ev, err := h.evaluations.Create(ctx, payload.toInput())
	if err != nil {
		metrics.RecordEvaluationWrite("create", "error")
		h.handleError(w, r, "CreateEvaluation", err)
		return
	}

	metrics.RecordEvaluationWrite("create", "ok")
	h.invalidateAnalyticsCache(ctx)
	writeJSON(w, http.StatusCreated, toEvaluationResponse(ev))
}

// ReplaceEvaluation handles PUT /evaluations/{evaluationID}.
func (h *Handlers) ReplaceEvaluation(w http.ResponseWriter, r *http.Request) {
	evaluationID := strings.TrimSpace(chi.URLParam(r, "evaluationID"))

	payload, err := h.decodeEvaluation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultRequestTimeout)
	defer cancel()

	ev, err := h.evaluations.Update(ctx, evaluationID, payload.toInput())
	if err != nil {
		metrics.RecordEvaluationWrite("replace", "error")
		h.handleError(w, r, "ReplaceEvaluation", err)
		return
	}

	metrics.RecordEvaluationWrite("replace", "ok")
	h.invalidateAnalyticsCache(ctx)
	writeJSON(w, http.StatusOK, toEvaluationResponse(ev))
}

// DeleteEvaluation handles DELETE /evaluations/{evaluationID}.
func (h *Handlers) DeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	evaluationID := strings.TrimSpace(chi.URLParam(r, "evaluationID"))

	ctx, cancel := context.WithTimeout(r.Context(), defaultRequestTimeout)
	defer cancel()

	if err := h.evaluations.Delete(ctx, evaluationID); err != nil {
		metrics.RecordEvaluationWrite("delete", "error")
		h.handleError(w, r, "DeleteEvaluation", err)
		return
	}

	metrics.RecordEvaluationWrite("delete", "ok")
	h.invalidateAnalyticsCache(ctx)
	writeJSON(w, http.StatusOK, map[string]string{"deleted": evaluationID})
}

// GetEvaluation handles GET /evaluations/{evaluationID}.
func (h *Handlers) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	evaluationID := strings.TrimSpace(chi.URLParam(r, "evaluationID"))

	ctx, cancel := context.WithTimeout(r.Context(), defaultRequestTimeout)
	defer cancel()

	ev, err := h.evaluations.Get(ctx, evaluationID)
	if err != nil {
		h.handleError(w, r, "GetEvaluation", err)
		return
	}
	writeJSON(w, http.StatusOK, toEvaluationResponse(ev))
}

// ListEvaluations handles GET /evaluations.
func (h *Handlers) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultRequestTimeout)
	defer cancel()

	summaries, err := h.evaluations.ListSummaries(ctx)
	if err != nil {
		h.handleError(w, r, "ListEvaluations", err)
		return
	}

	out := make([]summaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toSummaryResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCoachingSummary handles GET /evaluations/{evaluationID}/coaching.
func (h *Handlers) GetCoachingSummary(w http.ResponseWriter, r *http.Request) {
	evaluationID := strings.TrimSpace(chi.URLParam(r, "evaluationID"))

	ctx, cancel := context.WithTimeout(r.Context(), defaultRequestTimeout)
	defer cancel()

	text, err := h.analytics.CoachingSummary(ctx, evaluationID)
	if err != nil {
		h.handleError(w, r, "GetCoachingSummary", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

// GetAuditorIntelligence handles GET /analytics/auditors.
func (h *Handlers) GetAuditorIntelligence(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultRequestTimeout)
	defer cancel()

	result, err := FindAndCache(ctx, h.cache, &h.sfGroup, cacheKeyAuditorIntel, h.cacheTTL, h.logger,
		func(fetchCtx context.Context) ([]service.AuditorMetrics, error) {
			return h.analytics.AuditorIntelligence(fetchCtx)
		})
	if err != nil {
		h.handleError(w, r, "GetAuditorIntelligence", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetRiskFlags handles GET /analytics/risk.
func (h *Handlers) GetRiskFlags(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultRequestTimeout)
	defer cancel()

	result, err := FindAndCache(ctx, h.cache, &h.sfGroup, cacheKeyRiskFlags, h.cacheTTL, h.logger,
		func(fetchCtx context.Context) ([]service.RiskFlag, error) {
			return h.analytics.RiskFlags(fetchCtx)
		})
	if err != nil {
		h.handleError(w, r, "GetRiskFlags", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetHealthIndexes handles GET /analytics/health.
func (h *Handlers) GetHealthIndexes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultRequestTimeout)
	defer cancel()

	result, err := FindAndCache(ctx, h.cache, &h.sfGroup, cacheKeyHealthIndex, h.cacheTTL, h.logger,
		func(fetchCtx context.Context) ([]service.AuditorHealth, error) {
			return h.analytics.HealthIndexes(fetchCtx)
		})
	if err != nil {
		h.handleError(w, r, "GetHealthIndexes", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetDashboard handles GET /dashboard.
func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultRequestTimeout)
	defer cancel()

	result, err := FindAndCache(ctx, h.cache, &h.sfGroup, cacheKeyDashboard, h.cacheTTL, h.logger,
		func(fetchCtx context.Context) (service.Dashboard, error) {
			return h.analytics.Dashboard(fetchCtx)
		})
	if err != nil {
		h.handleError(w, r, "GetDashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetRubric handles GET /rubric.
func (h *Handlers) GetRubric(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog)
}
