package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"commentator/internal/services"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusForKind maps the error taxonomy onto HTTP status codes.
func statusForKind(kind string) int {
	switch kind {
	case services.KindValidation, services.KindConfiguration:
		return http.StatusBadRequest
	case services.KindBackend:
		return http.StatusBadGateway
	case services.KindTimeout:
		return http.StatusGatewayTimeout
	case services.KindArtifact, services.KindBusy:
		return http.StatusConflict
	case services.KindCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	kind := services.Kind(err)
	c.AbortWithStatusJSON(statusForKind(kind), ErrorResponse{Error: err.Error(), Kind: kind})
}
