package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cineprompt/cineprompt/internal/assist"
	"github.com/cineprompt/cineprompt/internal/project"
	"github.com/cineprompt/cineprompt/internal/speech"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errMissingProjectService = errors.New("project service dependency required")

// Dependencies wires the services behind the HTTP surface. Speech and Assist
// are optional; their endpoints report a configuration error when absent.
type Dependencies struct {
	Projects *project.Service
	Speech   *speech.Service
	Assist   *assist.Service
	AudioDir string
	Logger   *zap.Logger
}

// NewHTTPHandler builds the gin router for the CinePrompt API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Projects == nil {
		return nil, errMissingProjectService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		projects: deps.Projects,
		speech:   deps.Speech,
		assist:   deps.Assist,
		logger:   logger,
	}

	router.GET("/", handler.handleWelcome)

	api := router.Group("/api")
	api.GET("/projects", handler.handleListProjects)
	api.GET("/projects/:id", handler.handleGetProject)
	api.POST("/projects", handler.handleCreateProject)
	api.PUT("/projects/:id", handler.handleUpdateProject)
	api.DELETE("/projects/:id", handler.handleDeleteProject)
	api.POST("/projects/:id/script/import", handler.handleImportScript)
	api.GET("/projects/:id/export", handler.handleExportScript)
	api.POST("/narakeet/tts", handler.handleSynthesize)
	api.POST("/generate", handler.handleGenerate)

	if deps.AudioDir != "" {
		router.Static("/audio", deps.AudioDir)
	}

	return router, nil
}

type httpHandler struct {
	projects *project.Service
	speech   *speech.Service
	assist   *assist.Service
	logger   *zap.Logger
}

func (h *httpHandler) handleWelcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to CinePrompt API"})
}

func (h *httpHandler) handleListProjects(c *gin.Context) {
	projects, err := h.projects.ListProjects(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list projects", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch projects", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *httpHandler) handleGetProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	loaded, err := h.projects.GetProject(c.Request.Context(), id)
	if errors.Is(err, project.ErrProjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch project", zap.Int64("project_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch project", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleCreateProject(c *gin.Context) {
	var request project.CreateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	created, err := h.projects.CreateProject(c.Request.Context(), request)
	if errors.Is(err, project.ErrMissingName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Project name is required"})
		return
	}
	if err != nil {
		h.logger.Error("failed to create project", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

type updateResponsePayload struct {
	*project.Project
	Created []project.CreatedRef `json:"created"`
}

func (h *httpHandler) handleUpdateProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var request project.UpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.projects.UpdateProject(c.Request.Context(), id, request)
	if errors.Is(err, project.ErrProjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to update project", zap.Int64("project_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, updateResponsePayload{
		Project: result.Project,
		Created: result.Created,
	})
}

func (h *httpHandler) handleDeleteProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	err := h.projects.DeleteProject(c.Request.Context(), id)
	if errors.Is(err, project.ErrProjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to delete project", zap.Int64("project_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project", "details": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type importRequestPayload struct {
	Content string `json:"content"`
}

func (h *httpHandler) handleImportScript(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var request importRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.projects.ImportScript(c.Request.Context(), id, request.Content)
	if errors.Is(err, project.ErrProjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to import script", zap.Int64("project_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import script", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, updateResponsePayload{
		Project: result.Project,
		Created: result.Created,
	})
}

func (h *httpHandler) handleExportScript(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	composed, err := h.projects.ExportScript(c.Request.Context(), id)
	if errors.Is(err, project.ErrProjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to export script", zap.Int64("project_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export script", "details": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(composed))
}

type ttsRequestPayload struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
}

func (h *httpHandler) handleSynthesize(c *gin.Context) {
	var request ttsRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text and voiceId are required"})
		return
	}
	if h.speech == nil {
		h.logger.Error("tts requested but speech service is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
		return
	}

	audioURL, err := h.speech.Synthesize(c.Request.Context(), request.Text, request.VoiceID)
	if errors.Is(err, speech.ErrEmptyText) || errors.Is(err, speech.ErrEmptyVoice) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text and voiceId are required"})
		return
	}
	if errors.Is(err, speech.ErrTextTooLong) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text must be under 1000 characters"})
		return
	}
	var providerErr *speech.ProviderError
	if errors.As(err, &providerErr) {
		c.JSON(providerErr.StatusCode, gin.H{"error": "Failed to generate audio", "details": providerErr.Message})
		return
	}
	if err != nil {
		h.logger.Error("failed to generate audio", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate audio", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"audioUrl": audioURL})
}

type generateRequestPayload struct {
	Prompt string `json:"prompt"`
}

func (h *httpHandler) handleGenerate(c *gin.Context) {
	var request generateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}
	if h.assist == nil {
		h.logger.Error("generate requested but assist service is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
		return
	}

	result, err := h.assist.Generate(c.Request.Context(), request.Prompt)
	if errors.Is(err, assist.ErrEmptyPrompt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}
	if err != nil {
		h.logger.Error("failed to generate text", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// projectID parses the :id path parameter; unparseable ids behave like absent
// projects.
func projectID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return 0, false
	}
	return id, true
}
