package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	simulationdomain "github.com/smallbiznis/paystub/internal/simulation/domain"
)

type startSimulationRequest struct {
	ClientID string `json:"clientId"`
}

type calculateRequest struct {
	HourlyRate    *decimal.Decimal `json:"hourlyRate"`
	RegularHours  decimal.Decimal  `json:"regularHours"`
	OvertimeHours decimal.Decimal  `json:"overtimeHours"`
	Region        string           `json:"region"`
	// Omitted means every line of the region; [] means none.
	Taxes *[]string `json:"taxes"`
}

type commitRequest struct {
	Date         string `json:"date"`
	PayFrequency string `json:"payFrequency"`
}

func (s *Server) StartSimulation(c *gin.Context) {
	var req startSimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		AbortWithError(c, newValidationError("clientId", "required", "clientId is required"))
		return
	}

	resp, err := s.simulationSvc.Start(c.Request.Context(), clientID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetSimulation(c *gin.Context) {
	resp, err := s.simulationSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CalculateSimulation(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	calc := simulationdomain.CalculateRequest{
		HourlyRate:    req.HourlyRate,
		RegularHours:  req.RegularHours,
		OvertimeHours: req.OvertimeHours,
		Region:        strings.TrimSpace(req.Region),
	}
	if req.Taxes != nil {
		calc.Taxes = append([]string{}, (*req.Taxes)...)
	}

	resp, err := s.simulationSvc.Calculate(c.Request.Context(), c.Param("id"), calc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CommitSimulation(c *gin.Context) {
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	date, err := parseOptionalDate(req.Date)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}

	resp, err := s.simulationSvc.Commit(c.Request.Context(), c.Param("id"), simulationdomain.CommitRequest{
		Date:         date,
		PayFrequency: strings.TrimSpace(req.PayFrequency),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"session": resp.Session,
		"client":  newClientView(resp.Advance.Client),
		"paystub": resp.Advance.Paystub,
	}})
}

func (s *Server) DiscardSimulation(c *gin.Context) {
	if err := s.simulationSvc.Discard(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
