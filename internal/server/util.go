package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loykin/recbridge/internal/aggregate"
	"github.com/loykin/recbridge/internal/backend"
	"github.com/loykin/recbridge/internal/registry"
)

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	bp = strings.TrimRight(bp, "/")
	return bp
}

func writeJSON(c *gin.Context, code int, v any) {
	c.Header("Content-Type", "application/json")
	c.Status(code)
	_ = json.NewEncoder(c.Writer).Encode(v)
}

// parseRoomID parses the :roomId path parameter.
func parseRoomID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("roomId"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "roomId must be a positive integer"})
		return 0, false
	}
	return id, true
}

// parseFilter builds the fan-out filter from vendor/instance query params.
func parseFilter(c *gin.Context) (aggregate.Filter, bool) {
	vendor, err := backend.ParseVendor(c.Query("vendor"))
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return aggregate.Filter{}, false
	}
	return aggregate.Filter{Vendor: vendor, Instance: c.Query("instance")}, true
}

// writeOpError maps aggregation and registry errors onto HTTP statuses.
func writeOpError(c *gin.Context, err error) {
	var notFound *aggregate.RoomNotFoundError
	var allFailed *aggregate.AllAttemptsFailedError
	switch {
	case errors.As(err, &notFound):
		writeJSON(c, http.StatusNotFound, errorResp{Error: err.Error()})
	case errors.As(err, &allFailed):
		writeJSON(c, http.StatusBadGateway, errorResp{Error: err.Error()})
	case errors.Is(err, registry.ErrDuplicateInstance):
		writeJSON(c, http.StatusConflict, errorResp{Error: err.Error()})
	case errors.Is(err, registry.ErrInvalidInstance):
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
	case errors.Is(err, registry.ErrInstanceNotFound):
		writeJSON(c, http.StatusNotFound, errorResp{Error: err.Error()})
	case errors.Is(err, registry.ErrPersistenceFailure):
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
	default:
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
	}
}
