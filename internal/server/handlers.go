package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/neontype/internal/auth"
	"github.com/verte-zerg/neontype/internal/model"
	"github.com/verte-zerg/neontype/internal/scores"
)

const (
	msgGenerateFailed   = "Failed to generate text"
	msgNameRequired     = "User name is required."
	msgInvalidScore     = "Invalid score data."
	msgAlreadyPlayed    = "You have already played today's contest."
	msgContestNotReady  = "Today's contest is not yet available."
	msgInternal         = "Internal server error"
	msgInvalidToken     = "Invalid sign-in token."
	msgInvalidRequest   = "Invalid request body."
	msgIdentityRequired = "A %s query parameter is required."
)

type generateRequest struct {
	TimeLimit int    `json:"timeLimit"`
	Mode      string `json:"mode"`
}

type submitRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	WPM       *int   `json:"wpm"`
	Accuracy  *int   `json:"accuracy"`
	Mode      string `json:"mode"`
	TimeLimit int    `json:"timeLimit"`
}

type signInRequest struct {
	Token string `json:"token"`
}

type registerRequest struct {
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	YearOfBirth yearOfBirth `json:"yearOfBirth"`
}

// yearOfBirth accepts a JSON number or a numeric string, since form inputs
// post the year as text.
type yearOfBirth int

func (y *yearOfBirth) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*y = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("year of birth %q is not a number", s)
		}
		*y = yearOfBirth(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*y = yearOfBirth(n)
	return nil
}

func (app *App) internalError(c *gin.Context, msg string, err error) {
	app.log(c).Error(msg, "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
}

func (app *App) generateTextHandler(c *gin.Context) {
	var req generateRequest
	// An empty body asks for the defaults.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRequest})
			return
		}
	}
	minutes := req.TimeLimit
	if minutes <= 0 {
		minutes = 1
	}
	text, err := app.texts.PracticeText(c.Request.Context(), minutes)
	if err != nil {
		app.log(c).Error("failed to generate text", "minutes", minutes, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgGenerateFailed})
		return
	}
	app.log(c).Debug("generated text", "minutes", minutes, "mode", req.Mode, "source", text.Source)
	c.JSON(http.StatusOK, gin.H{"text": text.Body})
}

// identityParam reads the configured identity query parameter.
func (app *App) identityParam(c *gin.Context) (string, bool) {
	key := app.scores.IdentityKey()
	value := model.UserKey(key, c.Query("name"), c.Query("email"))
	return value, value != ""
}

func (app *App) contestStatusHandler(c *gin.Context) {
	key, ok := app.identityParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(msgIdentityRequired, app.scores.IdentityKey())})
		return
	}
	played, err := app.scores.Status(c.Request.Context(), key)
	if err != nil {
		app.internalError(c, "failed to check contest status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasPlayed": played})
}

func (app *App) contestTextHandler(c *gin.Context) {
	contest, err := app.contests.Today(c.Request.Context())
	if errors.Is(err, scores.ErrContestNotReady) {
		c.JSON(http.StatusNotFound, gin.H{"error": msgContestNotReady})
		return
	}
	if err != nil {
		app.internalError(c, "failed to load daily contest", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": contest.Text})
}

func (app *App) submitScoreHandler(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidScore})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNameRequired})
		return
	}
	mode, ok := model.ParseMode(req.Mode)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidScore})
		return
	}

	accepted, err := app.scores.Submit(c.Request.Context(), model.Submission{
		Name:      req.Name,
		Email:     req.Email,
		WPM:       req.WPM,
		Accuracy:  req.Accuracy,
		Mode:      mode,
		TimeLimit: req.TimeLimit,
	})
	switch {
	case errors.Is(err, scores.ErrInvalidScore):
		app.log(c).Info("rejected score", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidScore})
	case errors.Is(err, scores.ErrAlreadyPlayed):
		c.JSON(http.StatusConflict, gin.H{"error": msgAlreadyPlayed})
	case err != nil:
		app.internalError(c, "failed to submit score", err)
	case accepted.Saved:
		c.JSON(http.StatusCreated, accepted)
	default:
		c.JSON(http.StatusOK, accepted)
	}
}

func (app *App) leaderboardHandler(c *gin.Context) {
	key, _ := app.identityParam(c)
	board, err := app.scores.Leaderboard(c.Request.Context(), key)
	if err != nil {
		app.internalError(c, "failed to build leaderboard", err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (app *App) signInHandler(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRequest})
		return
	}
	res, err := app.auth.SignIn(c.Request.Context(), req.Token)
	if errors.Is(err, auth.ErrInvalidToken) {
		app.log(c).Info("sign-in rejected", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgInvalidToken})
		return
	}
	if err != nil {
		app.internalError(c, "failed to sign in", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (app *App) registerHandler(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRequest})
		return
	}
	user, err := app.auth.Register(c.Request.Context(), req.Email, req.Name, int(req.YearOfBirth))
	if errors.Is(err, auth.ErrInvalidRegistration) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		app.internalError(c, "failed to register user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (app *App) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"env":    app.settings.Env,
		"uptime": time.Since(app.startTime).Round(time.Second).String(),
		"store":  app.store.Backend(),
		"model":  app.texts.ModelID(),
	})
}
