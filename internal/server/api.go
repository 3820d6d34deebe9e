package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Houeta/ems-roster/internal/lib/logger/sl"
	"github.com/Houeta/ems-roster/internal/models"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// Roster is the set of operations the API serves.
type Roster interface {
	List(ctx context.Context) ([]models.Employee, error)
	Get(ctx context.Context, id int64) (models.Employee, error)
	Create(ctx context.Context, input models.EmployeeInput) (models.Employee, error)
	Update(ctx context.Context, id int64, patch models.EmployeePatch) (models.Employee, error)
	Delete(ctx context.Context, id int64) error
}

// Handler serves the roster API and the roster page.
type Handler struct {
	roster Roster
	log    *slog.Logger
}

func NewHandler(roster Roster, log *slog.Logger) *Handler {
	return &Handler{roster: roster, log: log}
}

// NewRouter builds the gin engine with every route of the API. requestTimeout bounds
// each request's context; zero disables the bound.
func NewRouter(log *slog.Logger, roster Roster, requestTimeout time.Duration) *gin.Engine {
	handler := NewHandler(roster, log)

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(log), Timeout(requestTimeout))
	router.SetHTMLTemplate(rosterPage)

	router.GET("/", handler.Page)

	api := router.Group("/api/employees")
	api.GET("", handler.List)
	api.POST("", handler.Create)
	api.GET("/:id", handler.Get)
	api.PUT("/:id", handler.Update)
	api.DELETE("/:id", handler.Delete)

	return router
}

func (h *Handler) List(c *gin.Context) {
	records, err := h.roster.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	record, err := h.roster.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) Create(c *gin.Context) {
	var input models.EmployeeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.writeBadBody(c, err)
		return
	}

	record, err := h.roster.Create(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var patch models.EmployeePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.writeBadBody(c, err)
		return
	}

	record, err := h.roster.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.roster.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Code:    CodeInvalidInput,
			Message: "Employee id must be a positive integer",
			Field:   "id",
		})
		return 0, false
	}

	return id, true
}

func (h *Handler) writeBadBody(c *gin.Context, err error) {
	h.log.WarnContext(c.Request.Context(), "Rejected request body",
		"path", c.FullPath(), "request_id", c.GetString(requestIDKey), sl.Err(err))
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:    CodeInvalidInput,
		Message: "Request body must be a JSON employee object",
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, body := toHTTP(err)

	log := h.log.With(
		slog.String("method", c.Request.Method),
		slog.String("path", c.FullPath()),
		slog.String("request_id", c.GetString(requestIDKey)),
		slog.Int("status", status),
		slog.String("code", body.Code),
	)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(c.Request.Context(), "Roster request failed", sl.Err(err))
	} else {
		log.InfoContext(c.Request.Context(), "Roster request rejected", sl.Err(err))
	}

	c.AbortWithStatusJSON(status, body)
}

// RequestID reuses the caller's X-Request-ID or mints a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.New().String()
		}

		c.Set(requestIDKey, rid)
		c.Header(RequestIDHeader, rid)
		c.Next()
	}
}

// RequestLogger writes one debug line per request.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.DebugContext(c.Request.Context(), "HTTP request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

// Timeout attaches a deadline to the request context.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
