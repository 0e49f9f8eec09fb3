package handlers

import (
	"net/http"

	"transferbook/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// GET /api/search?q=
func (h SessionHandler) Search(c *gin.Context) {
	results, err := h.Sessions.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type queryRequest struct {
	Query string `json:"query"`
}

// POST /api/sessions/:id/search/:field records a keystroke. Results arrive
// after the debounce on the websocket, or through GET on the same path.
func (h SessionHandler) QueryField(c *gin.Context) {
	var req queryRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	sess := session(c)
	field := c.Param("field")
	if err := sess.Query(field, req.Query); err != nil {
		RespondDomainError(c, err)
		return
	}
	st, _ := sess.SearchState(field)
	c.JSON(http.StatusAccepted, gin.H{"search": st})
}

// GET /api/sessions/:id/search/:field
func (h SessionHandler) FieldState(c *gin.Context) {
	sess := session(c)
	field := c.Param("field")
	st, err := sess.SearchState(field)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	e, _ := sess.Engine(field)
	c.JSON(http.StatusOK, gin.H{
		"search":          st,
		"currentLocation": e.CurrentLocationSuggestion(),
	})
}

// DELETE /api/sessions/:id/search/:field
func (h SessionHandler) ClearField(c *gin.Context) {
	sess := session(c)
	if err := sess.ClearSuggestions(c.Param("field")); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type selectRequest struct {
	Result   models.SearchResult `json:"result"`
	Position *models.Position    `json:"position"`
	// Reason is the client's geolocation failure code when it has no fix.
	Reason string `json:"reason"`
}

// POST /api/sessions/:id/search/:field/select
func (h SessionHandler) SelectSuggestion(c *gin.Context) {
	var req selectRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	sess := session(c)
	loc, err := sess.SelectSuggestion(c.Request.Context(), c.Param("field"), req.Result, req.Position, req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": loc, "state": sess.Wizard.Snapshot()})
}
