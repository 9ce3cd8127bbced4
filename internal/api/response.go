package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/gin-gonic/gin"
)

// Pre-marshaled fallback responses to avoid runtime JSON encoding failures
var (
	fallbackErrorResponse []byte
)

func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback error response at startup: %v", err))
	}
}

// writeJSONResponse marshals before writing headers so an encoding failure
// still produces a well-formed 500.
func writeJSONResponse(c *gin.Context, statusCode int, response any) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}
	c.Data(statusCode, "application/json", jsonData)
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		verr        *models.ValidationError
		notFound    *models.NotFoundError
		timeout     *models.ExternalServiceTimeout
		unsupported *models.UnsupportedCapability
	)
	switch {
	case errors.As(err, &verr),
		errors.Is(err, models.ErrNoImage),
		errors.Is(err, models.ErrLogoutDeclined):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &unsupported):
		return http.StatusNotImplemented
	case errors.Is(err, models.ErrPageClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the user-facing message for err.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("Server.writeError: request failed", "path", c.FullPath(), "error", err)
	} else {
		slog.Warn("Server.writeError: request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	writeJSONResponse(c, status, models.Error(models.NoticeFor(err).Message))
}

// bindJSON decodes the request body, answering 400 on failure.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		slog.Warn("Server.bindJSON: failed to decode JSON", "path", c.FullPath(), "error", err)
		writeJSONResponse(c, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return false
	}
	return true
}
