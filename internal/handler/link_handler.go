package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Monthlyaway/shortlink-redirect/internal/apperr"
	"github.com/Monthlyaway/shortlink-redirect/internal/middleware"
	"github.com/Monthlyaway/shortlink-redirect/internal/model"
	"github.com/Monthlyaway/shortlink-redirect/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LinkService is the application surface the handlers call
type LinkService interface {
	Create(ctx context.Context, in service.CreateInput) (*service.CreateResult, error)
	Resolve(ctx context.Context, shortCode string) (string, error)
	Update(ctx context.Context, shortCode, owner string, in service.UpdateInput) (*model.Stats, error)
	Delete(ctx context.Context, shortCode, owner string) error
	StatsByCode(ctx context.Context, shortCode, owner string) (*model.Stats, error)
	StatsByURL(ctx context.Context, originalURL, owner string) ([]model.Stats, error)
	Search(ctx context.Context, originalURL, owner string) ([]model.SearchResult, error)
	Ping(ctx context.Context) error
}

// LinkHandler handles HTTP requests for short links
type LinkHandler struct {
	service LinkService
	logger  *logrus.Entry
}

func NewLinkHandler(svc LinkService, log *logrus.Logger) *LinkHandler {
	return &LinkHandler{
		service: svc,
		logger:  log.WithField("module", "handler/link"),
	}
}

// ShortenRequest is the body of POST /links/shorten
type ShortenRequest struct {
	OriginalURL string     `json:"original_url" binding:"required"`
	CustomAlias string     `json:"custom_alias,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ShortenResponse describes a created link
type ShortenResponse struct {
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"`
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// UpdateRequest is the body of PUT /links/{short_code}. Omitting expires_at removes the expiry.
type UpdateRequest struct {
	OriginalURL string     `json:"original_url" binding:"required"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Response represents a generic API response
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Shorten handles POST /links/shorten
func (h *LinkHandler) Shorten(c *gin.Context) {
	var req ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	res, err := h.service.Create(c.Request.Context(), service.CreateInput{
		OriginalURL: req.OriginalURL,
		CustomAlias: req.CustomAlias,
		ExpiresAt:   req.ExpiresAt,
		Owner:       middleware.UserID(c),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Code: http.StatusOK,
		Data: ShortenResponse{
			ShortCode:   res.Link.ShortCode,
			ShortURL:    res.ShortURL,
			OriginalURL: res.Link.OriginalURL,
			CreatedAt:   res.Link.CreatedAt,
			ExpiresAt:   res.Link.ExpiresAt,
		},
	})
}

// Redirect handles GET /{short_code}
func (h *LinkHandler) Redirect(c *gin.Context) {
	originalURL, err := h.service.Resolve(c.Request.Context(), c.Param("short_code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, originalURL)
}

// Update handles PUT /links/{short_code}
func (h *LinkHandler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	stats, err := h.service.Update(c.Request.Context(), c.Param("short_code"), middleware.UserID(c), service.UpdateInput{
		OriginalURL: req.OriginalURL,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Data: stats})
}

// Delete handles DELETE /links/{short_code}
func (h *LinkHandler) Delete(c *gin.Context) {
	shortCode := c.Param("short_code")
	if err := h.service.Delete(c.Request.Context(), shortCode, middleware.UserID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "link deleted",
		Data:    gin.H{"short_code": shortCode},
	})
}

// Stats handles GET /links/{key}/stats. The key is a short code, or an
// escaped original URL when it contains a scheme or path separator.
func (h *LinkHandler) Stats(c *gin.Context) {
	key := c.Param("key")
	owner := middleware.UserID(c)

	if strings.ContainsAny(key, "/:") {
		stats, err := h.service.StatsByURL(c.Request.Context(), key, owner)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, Response{Code: http.StatusOK, Data: stats})
		return
	}

	stats, err := h.service.StatsByCode(c.Request.Context(), key, owner)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Data: stats})
}

// Search handles GET /links/search?original_url=
func (h *LinkHandler) Search(c *gin.Context) {
	originalURL := c.Query("original_url")
	if strings.TrimSpace(originalURL) == "" {
		badRequest(c, "original_url query parameter is required")
		return
	}

	results, err := h.service.Search(c.Request.Context(), originalURL, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Data: results})
}

// HealthCheck handles GET /health
func (h *LinkHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.service.Ping(ctx); err != nil {
		h.logger.WithError(err).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, Response{
			Code:    http.StatusServiceUnavailable,
			Message: "unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "OK",
	})
}

// fail writes the error response for err
func (h *LinkHandler) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	message := http.StatusText(status)
	if appErr, ok := apperr.As(err); ok {
		message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, Response{Code: status, Message: message})
}

// StatusFor maps an application error to its HTTP status
func StatusFor(err error) int {
	appErr, ok := apperr.As(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch appErr.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		switch {
		case appErr.Is(apperr.ErrCodeSpaceExhausted):
			return http.StatusInternalServerError
		case appErr.Is(apperr.ErrDuplicateCode):
			return http.StatusConflict
		default:
			return http.StatusBadRequest
		}
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    http.StatusBadRequest,
		Message: message,
	})
}
