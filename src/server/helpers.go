package server

import (
	"net/http"

	"stock-screener/src/helpers"
	"stock-screener/src/ticker"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------

// writeError maps validation failures to 400 and everything else to 500.
func (s *APIServer) writeError(c *gin.Context, err error) {
	if helpers.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.Logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// -----------------------------------------------------------------------------

// normalizeSymbols canonicalizes subscription symbols, dropping invalid ones.
func normalizeSymbols(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, err := ticker.Normalize(r); err == nil && !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
