package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quiz-tournament/internal/pkg"
	"quiz-tournament/internal/service"
)

// DashboardHandler serves the public score tables.
type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(service service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

func (h *DashboardHandler) Leaderboard(c *gin.Context) {
	id, ok := pkg.ParseUUIDParam(c, "tournamentID")
	if !ok {
		return
	}
	view, err := h.service.Leaderboard(c.Request.Context(), id)
	if err != nil {
		pkg.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *DashboardHandler) BlockBoard(c *gin.Context) {
	id, ok := pkg.ParseUUIDParam(c, "blockID")
	if !ok {
		return
	}
	view, err := h.service.BlockBoard(c.Request.Context(), id)
	if err != nil {
		pkg.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *DashboardHandler) Overall(c *gin.Context) {
	id, ok := pkg.ParseUUIDParam(c, "tournamentID")
	if !ok {
		return
	}
	view, err := h.service.Overall(c.Request.Context(), id)
	if err != nil {
		pkg.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
