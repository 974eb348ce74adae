package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	clientdomain "github.com/smallbiznis/paystub/internal/client/domain"
	"github.com/smallbiznis/paystub/internal/ownercontext"
	paystubdomain "github.com/smallbiznis/paystub/internal/paystub/domain"
	"github.com/smallbiznis/paystub/pkg/db"
	"go.uber.org/zap"
)

// DownloadPaystub streams one stored paystub as a PDF attachment. Errors use
// the flat {"error": "..."} shape existing download links expect.
func (s *Server) DownloadPaystub(c *gin.Context) {
	clientID := strings.TrimSpace(c.Query("clientId"))
	paystubID := strings.TrimSpace(c.Query("paystubId"))
	if clientID == "" || paystubID == "" {
		abortFlat(c, http.StatusBadRequest, ErrInvalidRequest, "clientId and paystubId are required")
		return
	}

	if owner, ok := ownercontext.UserIDFromContext(c.Request.Context()); ok {
		res, err := s.limits.AllowDownload(c.Request.Context(), owner.String())
		if err != nil {
			s.log.Warn("download rate limit check failed", zap.Error(err))
		}
		if res != nil && !res.Allowed {
			setRateLimitHeaders(c, res)
			abortFlat(c, http.StatusTooManyRequests, ErrTooManyRequests, "too many downloads, retry later")
			return
		}
	}

	doc, err := s.exporter.Paystub(c.Request.Context(), clientID, paystubID)
	if err != nil {
		status, message := downloadFailure(err)
		abortFlat(c, status, err, message)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

func downloadFailure(err error) (int, string) {
	switch {
	case errors.Is(err, clientdomain.ErrInvalidID),
		errors.Is(err, paystubdomain.ErrInvalidID),
		errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, paystubdomain.ErrNotFound):
		// An id that cannot be parsed names no paystub either.
		return http.StatusNotFound, "paystub not found"
	case db.IsUnavailableErr(err):
		return http.StatusServiceUnavailable, "storage unavailable, retry later"
	default:
		return http.StatusInternalServerError, "failed to generate paystub"
	}
}

func abortFlat(c *gin.Context, status int, err error, message string) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
