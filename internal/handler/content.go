package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/contentpilot/backend/internal/repository"
	"github.com/contentpilot/backend/internal/service"
)

type ContentHandler struct {
	planner    *service.PlannerService
	content    *service.ContentService
	regenerate *service.RegenerateService
}

func NewContentHandler(planner *service.PlannerService, content *service.ContentService, regenerate *service.RegenerateService) *ContentHandler {
	return &ContentHandler{
		planner:    planner,
		content:    content,
		regenerate: regenerate,
	}
}

type createRequestBody struct {
	ProjectID uint `json:"project_id" binding:"required"`
	service.CampaignParams
}

// CreateRequest plans a new content run and queues generation.
func (h *ContentHandler) CreateRequest(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.UploadCycle < 1 || body.UploadCycle > 4 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "upload_cycle must be between 1 and 4"})
		return
	}

	request, err := h.planner.PlanAndGenerate(c.Request.Context(), currentUser(c), body.ProjectID, body.CampaignParams)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// ListRequests returns the requests of a project.
func (h *ContentHandler) ListRequests(c *gin.Context) {
	projectID, ok := queryID(c, "project_id")
	if !ok {
		return
	}
	requests, err := h.content.ListRequests(currentUser(c), projectID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// GetRequest returns one request with its items and progress counters.
func (h *ContentHandler) GetRequest(c *gin.Context) {
	requestID, ok := paramID(c)
	if !ok {
		return
	}
	detail, err := h.content.GetRequestDetail(currentUser(c), requestID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// LatestRequest returns the most recent request of a project.
func (h *ContentHandler) LatestRequest(c *gin.Context) {
	projectID, ok := queryID(c, "project_id")
	if !ok {
		return
	}
	request, err := h.content.LatestRequest(currentUser(c), projectID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

type updateCaptionBody struct {
	Caption string `json:"caption" binding:"required"`
}

// UpdateCaption applies a manual caption edit to an item.
func (h *ContentHandler) UpdateCaption(c *gin.Context) {
	itemID, ok := paramID(c)
	if !ok {
		return
	}
	var body updateCaptionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.content.UpdateCaption(currentUser(c), itemID, body.Caption)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type regenerateBody struct {
	Kind     string `json:"kind" binding:"required"`
	Feedback string `json:"feedback"`
}

// Regenerate redoes the caption, the image or the whole item.
func (h *ContentHandler) Regenerate(c *gin.Context) {
	itemID, ok := paramID(c)
	if !ok {
		return
	}
	var body regenerateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.regenerate.Regenerate(c.Request.Context(), currentUser(c), itemID, body.Kind, body.Feedback)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// ImageURL hands out a presigned download link for the item's image.
func (h *ContentHandler) ImageURL(c *gin.Context) {
	itemID, ok := paramID(c)
	if !ok {
		return
	}
	url, err := h.content.ImageDownloadURL(c.Request.Context(), currentUser(c), itemID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *ContentHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "daily limit exceeded"})
	case errors.Is(err, service.ErrPlanningFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func queryID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}
