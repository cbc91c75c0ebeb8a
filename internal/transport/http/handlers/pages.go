package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/account-portal/internal/transport/http/session"
)

// PageHandler serves static informational pages.
type PageHandler struct{}

// NewPageHandler creates the static page handler.
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Index renders the landing page. Signed-in users go straight to their
// profile.
func (h *PageHandler) Index(c *gin.Context) {
	if _, ok := session.CurrentAccountID(c); ok {
		c.Redirect(http.StatusFound, "/profile/")
		return
	}

	render(c, http.StatusOK, "index.tmpl", gin.H{
		"Title": "Welcome",
	})
}
