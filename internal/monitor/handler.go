package monitor

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"github.com/CidQueiroz/Caca-Preco/internal/canonical"
	"github.com/CidQueiroz/Caca-Preco/internal/pipeline"
)

const sellerKey = "sellerID"

// SellerAuth resolves the already-authorized seller identity. Real
// authentication lives in the upstream auth service; it forwards the seller
// ID in a header and this middleware only makes it available to handlers.
func SellerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Seller-ID")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid seller identity"})
			return
		}
		c.Set(sellerKey, id)
		c.Next()
	}
}

func sellerID(c *gin.Context) int64 {
	return c.GetInt64(sellerKey)
}

type Handler struct {
	repo     *Repository
	pipeline *pipeline.Service
}

func NewHandler(repo *Repository, svc *pipeline.Service) *Handler {
	return &Handler{repo: repo, pipeline: svc}
}

// Register mounts the monitoring routes on an authorized router group.
func (h *Handler) Register(api *gin.RouterGroup) {
	api.POST("/monitor", h.SubmitURL)
	api.GET("/monitor/tasks/:id", h.TaskStatus)
	api.GET("/monitored", h.ListMonitored)
	api.GET("/monitored/:id", h.GetMonitored)
	api.GET("/monitored/:id/history", h.GetHistory)
	api.DELETE("/monitored/:id", h.DeleteMonitored)
}

type submitRequest struct {
	URL string `json:"url" binding:"required"`
}

// SubmitURL accepts a competitor URL for monitoring and returns the task ID
// immediately; the pipeline runs in the background and the frontend polls
// the task endpoint for completion.
func (h *Handler) SubmitURL(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	inv, err := h.pipeline.Submit(sellerID(c), req.URL)
	if err != nil {
		switch {
		case errors.Is(err, canonical.ErrInvalidURL):
			c.JSON(http.StatusBadRequest, gin.H{"error": "the submitted URL is not valid"})
		case errors.Is(err, pipeline.ErrQueueFull):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many monitoring tasks in progress, try again shortly"})
		default:
			log.WithError(err).Error("SubmitURL: submission failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start monitoring"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "monitoring started, poll the task for completion",
		"task_id": inv.ID,
	})
}

// TaskStatus reports the state of a pipeline invocation.
func (h *Handler) TaskStatus(c *gin.Context) {
	inv, ok := h.pipeline.Status(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if inv.SellerID != sellerID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *Handler) ListMonitored(c *gin.Context) {
	list, err := h.repo.ListBySeller(c.Request.Context(), sellerID(c))
	if err != nil {
		log.WithError(err).Error("ListMonitored: query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch monitored products"})
		return
	}
	if list == nil {
		list = []MonitoredProduct{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetMonitored(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), sellerID(c), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		log.WithError(err).Error("GetMonitored: query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch product"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) GetHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	hist, err := h.repo.GetHistory(c.Request.Context(), sellerID(c), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		log.WithError(err).Error("GetHistory: query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}
	if hist == nil {
		hist = []PriceHistoryEntry{}
	}
	c.JSON(http.StatusOK, hist)
}

func (h *Handler) DeleteMonitored(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.repo.Delete(c.Request.Context(), sellerID(c), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		log.WithError(err).Error("DeleteMonitored: delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete product"})
		return
	}
	c.Status(http.StatusNoContent)
}
