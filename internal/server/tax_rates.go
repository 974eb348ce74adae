package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListTaxRates(c *gin.Context) {
	resp, err := s.taxSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTaxRates(c *gin.Context) {
	resp, err := s.taxSvc.Lookup(c.Request.Context(), c.Param("region"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
