package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/paystub/internal/client/domain"
	"go.uber.org/zap"
)

type createClientRequest struct {
	Name        string           `json:"name"`
	Company     string           `json:"company"`
	Region      string           `json:"region"`
	HourlyRate  decimal.Decimal  `json:"hourlyRate"`
	YTDRegular  *decimal.Decimal `json:"ytdRegular"`
	YTDOvertime *decimal.Decimal `json:"ytdOvertime"`
}

type clientView struct {
	clientdomain.Client
	GrossPayYTD decimal.Decimal `json:"gross_pay_ytd"`
}

func newClientView(c clientdomain.Client) clientView {
	return clientView{Client: c, GrossPayYTD: c.GrossPayYTD()}
}

func newClientViews(items []clientdomain.Client) []clientView {
	out := make([]clientView, 0, len(items))
	for _, item := range items {
		out = append(out, newClientView(item))
	}
	return out
}

func (s *Server) CreateClient(c *gin.Context) {
	var req createClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.clientSvc.Create(c.Request.Context(), clientdomain.CreateClientRequest{
		Name:        strings.TrimSpace(req.Name),
		Company:     strings.TrimSpace(req.Company),
		Region:      strings.TrimSpace(req.Region),
		HourlyRate:  req.HourlyRate,
		YTDRegular:  decimalOrZero(req.YTDRegular),
		YTDOvertime: decimalOrZero(req.YTDOvertime),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newClientView(resp)})
}

func (s *Server) ListClients(c *gin.Context) {
	resp, err := s.clientSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newClientViews(resp)})
}

func (s *Server) GetClientByID(c *gin.Context) {
	resp, err := s.clientSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newClientView(resp)})
}

func (s *Server) DeleteClient(c *gin.Context) {
	if !requireConfirm(c) {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := s.clientSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("client deleted", zap.String("client_id", id))
	c.Status(http.StatusNoContent)
}

// RecomputeClientYTD realigns client totals with the latest remaining
// paystub after deletions.
func (s *Server) RecomputeClientYTD(c *gin.Context) {
	if !requireConfirm(c) {
		return
	}

	resp, err := s.paystubSvc.RecomputeClientYTD(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newClientView(resp)})
}

func decimalOrZero(value *decimal.Decimal) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return *value
}
