package handlers

import (
	"context"
	"net/http"
	"strconv"

	"example.com/arogyayaan/replenishment/internal/models"
	"example.com/arogyayaan/replenishment/internal/repositories"
	"example.com/arogyayaan/replenishment/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// TransferAPI is the set of operations exposed to the orchestration layer
type TransferAPI interface {
	FindDonors(ctx context.Context, req services.FindDonorsRequest) ([]models.DonorCandidate, error)
	PlanLogistics(ctx context.Context, req services.PlanRequest) (models.LogisticsPlan, error)
	CreateSolutionCard(ctx context.Context, req services.SaveCardRequest) (*models.SolutionCard, error)
	ScanForRisk(ctx context.Context, forecastDays int) ([]models.StockAlert, error)
	SearchSolutionCards(ctx context.Context, facilityID string, limit int) ([]models.SolutionCard, error)
}

// TransferHandler handles the transfer tool-call endpoints
type TransferHandler struct {
	service TransferAPI
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(service TransferAPI) *TransferHandler {
	return &TransferHandler{service: service}
}

// CardCreatedResponse is returned after a solution card is saved
type CardCreatedResponse struct {
	CardID           string `json:"card_id"`
	Status           string `json:"status"`
	IdempotencyToken string `json:"idempotency_token"`
}

// HandleFindDonors ranks donors for a deficit
func (h *TransferHandler) HandleFindDonors(c *gin.Context) {
	var req services.FindDonorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	donors, err := h.service.FindDonors(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"donors": donors})
}

// HandlePlanLogistics returns a routing plan for one donor
func (h *TransferHandler) HandlePlanLogistics(c *gin.Context) {
	var req services.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	plan, err := h.service.PlanLogistics(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// HandleCreateSolutionCard records an accepted transfer
func (h *TransferHandler) HandleCreateSolutionCard(c *gin.Context) {
	var req services.SaveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	card, err := h.service.CreateSolutionCard(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CardCreatedResponse{
		CardID:           card.ID.String(),
		Status:           card.Status,
		IdempotencyToken: card.IdempotencyToken.String(),
	})
}

// HandleListAlerts returns forecast deficits
func (h *TransferHandler) HandleListAlerts(c *gin.Context) {
	days, err := intQuery(c, "days", services.DefaultForecastDays)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	alerts, err := h.service.ScanForRisk(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forecast_days": days, "alerts": alerts})
}

// HandleSearchSolutionCards lists recent cards involving a facility
func (h *TransferHandler) HandleSearchSolutionCards(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	cards, err := h.service.SearchSolutionCards(c.Request.Context(), c.Query("facility_id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

// RegisterRoutes registers the handler's routes
func (h *TransferHandler) RegisterRoutes(router gin.IRouter) {
	tools := router.Group("/tools")
	tools.POST("/find-donors", h.HandleFindDonors)
	tools.POST("/logistics-plan", h.HandlePlanLogistics)
	tools.POST("/solution-cards", h.HandleCreateSolutionCard)

	router.GET("/alerts", h.HandleListAlerts)
	router.GET("/solution-cards", h.HandleSearchSolutionCards)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Errorf("%s must be an integer", key)
	}
	return v, nil
}

func respondBadRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// respondError maps service errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repositories.ErrPersistence):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "solution card could not be saved"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
