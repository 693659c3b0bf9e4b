package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"holder-risk-engine/internal/domain/entity"
	"holder-risk-engine/internal/domain/repository"
	"holder-risk-engine/internal/domain/service"
	"holder-risk-engine/internal/infrastructure/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxRequestBytes bounds the analysis request body
const maxRequestBytes = 1 << 16

// HolderRiskHandler handles holder-risk HTTP requests
type HolderRiskHandler struct {
	service        service.HolderRiskService
	validate       *validator.Validate
	requestTimeout time.Duration
	logger         *logger.Logger
}

// NewHolderRiskHandler creates a new holder risk handler.
// A zero requestTimeout leaves the request context untouched.
func NewHolderRiskHandler(svc service.HolderRiskService, requestTimeout time.Duration, logger *logger.Logger) *HolderRiskHandler {
	return &HolderRiskHandler{
		service:        svc,
		validate:       validator.New(),
		requestTimeout: requestTimeout,
		logger:         logger.WithComponent("holder-risk-handler"),
	}
}

// AnalyzeRequest represents the request body for a holder-risk analysis
type AnalyzeRequest struct {
	TokenAddress string `json:"token_address" validate:"required,alphanum,min=32,max=44"`
}

type tokenParam struct {
	TokenAddress string `validate:"required,alphanum,min=32,max=44"`
}

// Analyze handles POST /api/v1/holder-risk
func (h *HolderRiskHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req.TokenAddress = strings.TrimSpace(req.TokenAddress)
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation error: "+formatValidationError(err))
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	report, err := h.service.AnalyzeToken(ctx, req.TokenAddress)
	if err != nil {
		h.logger.Error("Holder risk analysis failed",
			zap.String("token_address", req.TokenAddress),
			zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "Failed to retrieve holder data")
		return
	}

	h.respondJSON(w, http.StatusOK, report)
}

// GetLatest handles GET /api/v1/holder-risk/{tokenAddress}
func (h *HolderRiskHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	param := tokenParam{TokenAddress: chi.URLParam(r, "tokenAddress")}
	if err := h.validate.Struct(param); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid token address: "+formatValidationError(err))
		return
	}

	report, err := h.service.GetLatestReport(r.Context(), param.TokenAddress)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			h.respondError(w, http.StatusNotFound, "No report found for token")
			return
		}
		h.logger.Error("Failed to load latest report",
			zap.String("token_address", param.TokenAddress),
			zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to load report")
		return
	}

	h.respondJSON(w, http.StatusOK, report)
}

func (h *HolderRiskHandler) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.requestTimeout)
}

// Helper methods

func (h *HolderRiskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *HolderRiskHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"status":  entity.ReportStatusError,
		"message": message,
		"code":    status,
	})
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, "token_address is required")
		case "alphanum":
			messages = append(messages, "token_address must be alphanumeric")
		case "min", "max":
			messages = append(messages, "token_address must be between 32 and 44 characters")
		default:
			messages = append(messages, fmt.Sprintf("token_address failed %s validation", e.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}
