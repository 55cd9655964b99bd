package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/contentpilot/backend/internal/model"
	"github.com/contentpilot/backend/internal/repository"
	"github.com/contentpilot/backend/internal/service"
)

type ProjectHandler struct {
	service *service.ProjectService
}

func NewProjectHandler(service *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

type createProjectBody struct {
	Name        string   `json:"name" binding:"required"`
	Category    string   `json:"category"`
	URL         string   `json:"url"`
	ImageList   []string `json:"image_list"`
	ReasonList  string   `json:"reason_list"`
	Description string   `json:"description"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var body createProjectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project := &model.Project{
		UserID:      currentUser(c),
		Name:        body.Name,
		Category:    body.Category,
		URL:         body.URL,
		ImageList:   strings.Join(body.ImageList, ","),
		ReasonList:  body.ReasonList,
		Description: body.Description,
	}
	if err := h.service.Create(project); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	projectID, ok := paramID(c)
	if !ok {
		return
	}
	project, err := h.service.Get(currentUser(c), projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) GetMine(c *gin.Context) {
	project, err := h.service.GetByUser(currentUser(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}
