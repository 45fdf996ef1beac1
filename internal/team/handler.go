package team

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"quiz-tournament/internal/pkg"
	"quiz-tournament/internal/service"
)

const tokenTTL = 12 * time.Hour

type TeamHandler struct {
	service   service.TeamService
	jwtSecret string
}

func NewTeamHandler(service service.TeamService, jwtSecret string) *TeamHandler {
	return &TeamHandler{service: service, jwtSecret: jwtSecret}
}

func (h *TeamHandler) LoginTeam(c *gin.Context) {
	var request struct {
		Name         string `json:"name" binding:"required"`
		Password     string `json:"password" binding:"required"`
		TournamentID string `json:"tournament_id"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var tid *uuid.UUID
	if request.TournamentID != "" {
		id, err := uuid.Parse(request.TournamentID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tournament_id"})
			return
		}
		tid = &id
	}

	team, err := h.service.Authenticate(c.Request.Context(), request.Name, request.Password, tid)
	if err != nil {
		pkg.RespondError(c, err)
		return
	}

	token, err := pkg.IssueToken(h.jwtSecret, pkg.RoleTeam, team.ID.String(), tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":         token,
		"team_id":       team.ID,
		"tournament_id": team.TournamentID,
	})
}

func (h *TeamHandler) ListTournaments(c *gin.Context) {
	tournaments, err := h.service.ListTournaments(c.Request.Context())
	if err != nil {
		pkg.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tournaments": tournaments})
}

func (h *TeamHandler) GetTournament(c *gin.Context) {
	id, ok := pkg.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	view, err := h.service.Tournament(c.Request.Context(), pkg.TeamID(c), id)
	if err != nil {
		pkg.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *TeamHandler) GetBlock(c *gin.Context) {
	id, ok := pkg.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	view, err := h.service.Block(c.Request.Context(), pkg.TeamID(c), id)
	if err != nil {
		pkg.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *TeamHandler) GetTask(c *gin.Context) {
	id, ok := pkg.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	view, err := h.service.Task(c.Request.Context(), pkg.TeamID(c), id)
	if err != nil {
		pkg.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *TeamHandler) SubmitAnswer(c *gin.Context) {
	id, ok := pkg.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var request submitRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	sub, err := request.submission()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	res, err := h.service.SubmitAnswer(c.Request.Context(), pkg.TeamID(c), id, sub)
	if err != nil {
		pkg.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TeamHandler) StartBlock(c *gin.Context) {
	var request struct {
		BlockID string `json:"block_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "block_id required"})
		return
	}
	blockID, err := uuid.Parse(request.BlockID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid block_id"})
		return
	}

	res, err := h.service.StartBlock(c.Request.Context(), pkg.TeamID(c), blockID)
	if err != nil {
		pkg.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
