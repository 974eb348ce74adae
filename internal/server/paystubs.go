package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/paystub/internal/history"
	"go.uber.org/zap"
)

func (s *Server) ListPaystubs(c *gin.Context) {
	items, err := s.paystubSvc.List(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": history.SummarizeAll(items)})
}

func (s *Server) GetPaystub(c *gin.Context) {
	client, stub, err := s.paystubSvc.Get(c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("paystubId")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	detail, err := history.ReconstructPaystub(stub)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"client": newClientView(client),
		"detail": detail,
	}})
}

func (s *Server) DeletePaystub(c *gin.Context) {
	if !requireConfirm(c) {
		return
	}

	clientID := strings.TrimSpace(c.Param("id"))
	paystubID := strings.TrimSpace(c.Param("paystubId"))
	if err := s.paystubSvc.Delete(c.Request.Context(), clientID, paystubID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("paystub deleted",
		zap.String("client_id", clientID),
		zap.String("paystub_id", paystubID),
	)
	c.Status(http.StatusNoContent)
}
