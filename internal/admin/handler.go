package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"quiz-tournament/internal/models"
	"quiz-tournament/internal/pkg"
	"quiz-tournament/internal/service"
)

const tokenTTL = 8 * time.Hour

type AdminHandler struct {
	service   service.AdminService
	files     *pkg.FileStore
	jwtSecret string
}

func NewAdminHandler(service service.AdminService, files *pkg.FileStore, jwtSecret string) *AdminHandler {
	return &AdminHandler{
		service:   service,
		files:     files,
		jwtSecret: jwtSecret,
	}
}

func (h *AdminHandler) AdminLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.service.CheckCredentials(req.Username, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := pkg.IssueToken(h.jwtSecret, pkg.RoleAdmin, "admin", tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

type teamView struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	TournamentID   uuid.UUID  `json:"tournament_id"`
	Member1        string     `json:"member1"`
	Member2        *string    `json:"member2"`
	Member3        *string    `json:"member3"`
	StartedAt      *time.Time `json:"started_at"`
	TelegramLinked bool       `json:"telegram_linked"`
	CreatedAt      time.Time  `json:"created_at"`
}

func newTeamView(t models.Team) teamView {
	return teamView{
		ID:             t.ID,
		Name:           t.Name,
		TournamentID:   t.TournamentID,
		Member1:        t.Member1,
		Member2:        t.Member2,
		Member3:        t.Member3,
		StartedAt:      t.StartedAt,
		TelegramLinked: t.TelegramChatID != nil,
		CreatedAt:      t.CreatedAt,
	}
}

func (h *AdminHandler) CreateTeam(c *gin.Context) {
	var input struct {
		Name         string `json:"name" binding:"required"`
		Password     string `json:"password"`
		TournamentID string `json:"tournament_id" binding:"required"`
		Member1      string `json:"member1"`
		Member2      string `json:"member2"`
		Member3      string `json:"member3"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tid, err := uuid.Parse(input.TournamentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tournament_id"})
		return
	}

	created, err := h.service.CreateTeam(c.Request.Context(), service.NewTeam{
		Name:         input.Name,
		Password:     input.Password,
		TournamentID: tid,
		Member1:      input.Member1,
		Member2:      input.Member2,
		Member3:      input.Member3,
	})
	if err != nil {
		pkg.RespondError(c, err)
		return
	}

	resp := gin.H{"team": newTeamView(*created.Team)}
	if created.Password != "" {
		resp["password"] = created.Password
	}
	c.JSON(http.StatusCreated, resp)
}

// tournamentQuery reads the optional ?tournament_id filter.
func tournamentQuery(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("tournament_id")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tournament_id"})
		return nil, false
	}
	return &id, true
}

func (h *AdminHandler) ListTeams(c *gin.Context) {
	tid, ok := tournamentQuery(c)
	if !ok {
		return
	}
	teams, err := h.service.ListTeams(c.Request.Context(), tid)
	if err != nil {
		pkg.RespondError(c, err)
		return
	}
	out := make([]teamView, 0, len(teams))
	for _, t := range teams {
		out = append(out, newTeamView(t))
	}
	c.JSON(http.StatusOK, gin.H{"teams": out})
}

func (h *AdminHandler) ResetTeam(c *gin.Context) {
	id, ok := pkg.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.ResetTeam(c.Request.Context(), id); err != nil {
		pkg.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (h *AdminHandler) DeleteAnswers(c *gin.Context) {
	tid, ok := tournamentQuery(c)
	if !ok {
		return
	}
	n, err := h.service.DeleteAnswers(c.Request.Context(), tid)
	if err != nil {
		pkg.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "deleted": n})
}

func (h *AdminHandler) DeleteTeams(c *gin.Context) {
	n, err := h.service.DeleteTeams(c.Request.Context())
	if err != nil {
		pkg.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "deleted": n})
}

func (h *AdminHandler) UploadTaskImage(c *gin.Context) {
	h.uploadImage(c, "tasks", h.service.SetTaskImage)
}

func (h *AdminHandler) UploadBlockImage(c *gin.Context) {
	h.uploadImage(c, "blocks", h.service.SetBlockImage)
}

func (h *AdminHandler) uploadImage(c *gin.Context, kind string, attach func(ctx context.Context, id uuid.UUID, url string) error) {
	id, ok := pkg.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}

	url, err := h.files.SaveImage(file, kind, id)
	if err != nil {
		if errors.Is(err, pkg.ErrUnsupportedImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Str("owner_id", id.String()).Msg("image upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	if err := attach(c.Request.Context(), id, url); err != nil {
		if rmErr := h.files.RemoveImage(url); rmErr != nil {
			log.Warn().Err(rmErr).Str("owner_id", id.String()).Msg("orphaned image not removed")
		}
		pkg.RespondError(c, err)
		return
	}
	if err := h.files.PruneImages(kind, id, url); err != nil {
		log.Warn().Err(err).Str("owner_id", id.String()).Msg("old images not removed")
	}
	c.JSON(http.StatusOK, gin.H{"image_url": url})
}
