package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"account-provisioner-go/internal/ledger"
	"account-provisioner-go/internal/model"
	"account-provisioner-go/internal/poller"
	"account-provisioner-go/internal/scheduler"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	db        *gorm.DB
	ledger    ledger.Ledger
	scheduler *scheduler.Scheduler
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *gorm.DB, lg ledger.Ledger, sched *scheduler.Scheduler) *Handlers {
	return &Handlers{
		db:        db,
		ledger:    lg,
		scheduler: sched,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	// Health check
	router.GET("/healthz", h.HealthCheck)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := router.Group("/api/v1")
	{
		// Trigger one poll cycle
		api.POST("/run", h.Run)

		// Processing records
		api.GET("/records", h.GetRecords)
		api.GET("/records/:message_id", h.GetRecord)

		// Scheduler control
		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := model.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		Metrics:   make(map[string]string),
	}

	// Check database connection
	if err := h.db.Raw("SELECT 1").Error; err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	}

	// Check scheduler status
	if h.scheduler.IsRunning() {
		response.Metrics["scheduler"] = "running"
		response.Metrics["next_run"] = h.scheduler.GetNextRun().Format(time.RFC3339)
		response.Metrics["last_run"] = h.scheduler.GetLastRun().Format(time.RFC3339)
	} else {
		response.Metrics["scheduler"] = "stopped"
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

// Run triggers one full poll cycle and returns its summary. An
// infrastructure failure surfaces as a failed run so the external trigger
// can retry later.
func (h *Handlers) Run(c *gin.Context) {
	summary, err := h.scheduler.RunOnce()
	if err != nil {
		var infraErr *poller.InfraError
		if errors.As(err, &infraErr) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "infra_error",
				"message": infraErr.Error(),
				"summary": summary,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "run_error",
			Message: "Poll cycle failed",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Poll cycle completed successfully",
		"summary": summary,
	})
}

// GetRecords returns processing records with pagination
func (h *Handlers) GetRecords(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	offset := (page - 1) * limit

	records, total, err := h.ledger.List(c.Request.Context(), offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch records",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	responses := make([]model.ProcessingRecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, toRecordResponse(record))
	}

	c.JSON(http.StatusOK, gin.H{
		"records": responses,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetRecord returns the processing record for one message
func (h *Handlers) GetRecord(c *gin.Context) {
	messageID := c.Param("message_id")

	record, err := h.ledger.Get(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Error:   "not_found",
				Message: "Record not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch record",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, toRecordResponse(*record))
}

// StartScheduler starts the periodic poll scheduler
func (h *Handlers) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "scheduler_error",
			Message: "Failed to start scheduler",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scheduler started successfully",
		"status":  "running",
	})
}

// StopScheduler stops the periodic poll scheduler
func (h *Handlers) StopScheduler(c *gin.Context) {
	if err := h.scheduler.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "scheduler_error",
			Message: "Failed to stop scheduler",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scheduler stopped successfully",
		"status":  "stopped",
	})
}

// GetSchedulerStatus returns the current scheduler status
func (h *Handlers) GetSchedulerStatus(c *gin.Context) {
	status := "stopped"
	if h.scheduler.IsRunning() {
		status = "running"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"next_run": h.scheduler.GetNextRun(),
		"last_run": h.scheduler.GetLastRun(),
	})
}

func toRecordResponse(record model.ProcessingRecord) model.ProcessingRecordResponse {
	return model.ProcessingRecordResponse{
		ID:            record.ID,
		MessageID:     record.MessageID,
		Sender:        record.Sender,
		Username:      record.Username,
		State:         record.State,
		Detail:        record.Detail,
		NotifyPending: record.NotifyPending,
		ReceivedAt:    record.ReceivedAt,
		FinalizedAt:   record.FinalizedAt,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}
