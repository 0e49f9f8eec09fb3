package handlers

import (
	"net/http"
	"strconv"
	"time"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"
	"transferbook/internal/http/middleware"
	"transferbook/internal/services"
	"transferbook/internal/wizard"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const sessionKey = "session"

// SessionHandler exposes the booking wizard of one session over HTTP.
type SessionHandler struct {
	Sessions *services.SessionService
	Auth     middleware.SessionAuth
	Log      *zap.Logger
	Now      func() time.Time
	Upgrader *websocket.Upgrader
}

func (h SessionHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h SessionHandler) log() *zap.Logger {
	if h.Log != nil {
		return h.Log
	}
	return zap.NewNop()
}

// LoadSession resolves :id into the live session for the handlers below.
func (h SessionHandler) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := h.Sessions.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			RespondDomainError(c, err)
			c.Abort()
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func session(c *gin.Context) *services.Session {
	return c.MustGet(sessionKey).(*services.Session)
}

// isUpstream reports failures of a remote collaborator that the wizard
// already recorded in its request state.
func isUpstream(err error) bool {
	return !(domain.IsValidation(err) || domain.IsConflict(err) || domain.IsNotFound(err))
}

func respondState(c *gin.Context, status int, snap wizard.Snapshot) {
	c.JSON(status, gin.H{"state": snap})
}

// POST /api/sessions
func (h SessionHandler) Create(c *gin.Context) {
	sess, err := h.Sessions.Create(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	token, err := h.Auth.Issue(sess.ID, h.now())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	h.log().Info("session issued", zap.String("session_id", sess.ID), zap.String("request_id", middleware.GetRequestID(c)))
	c.JSON(http.StatusCreated, gin.H{
		"id":    sess.ID,
		"token": token,
		"state": sess.Wizard.Snapshot(),
	})
}

// GET /api/sessions/:id
func (h SessionHandler) Get(c *gin.Context) {
	respondState(c, http.StatusOK, session(c).Wizard.Snapshot())
}

// DELETE /api/sessions/:id
func (h SessionHandler) Delete(c *gin.Context) {
	if err := h.Sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type locationRequest struct {
	Location *models.Location `json:"location"`
}

// PUT /api/sessions/:id/pickup; a null location clears the field.
func (h SessionHandler) SetPickup(c *gin.Context) {
	var req locationRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	sess := session(c)
	sess.Wizard.SetPickupLocation(req.Location)
	respondState(c, http.StatusOK, sess.Wizard.Snapshot())
}

// PUT /api/sessions/:id/dropoff
func (h SessionHandler) SetDropoff(c *gin.Context) {
	var req locationRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	sess := session(c)
	sess.Wizard.SetDropoffLocation(req.Location)
	respondState(c, http.StatusOK, sess.Wizard.Snapshot())
}

// POST /api/sessions/:id/stops
func (h SessionHandler) AddStop(c *gin.Context) {
	var req locationRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.Location == nil {
		respondError(c, http.StatusBadRequest, "validation_error", "location is required", gin.H{"field": "location"})
		return
	}
	sess := session(c)
	sess.Wizard.AddStop(*req.Location)
	respondState(c, http.StatusCreated, sess.Wizard.Snapshot())
}

func stopIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		respondError(c, http.StatusBadRequest, "invalid_stop_index", "stop index is not valid", nil)
		return 0, false
	}
	return idx, true
}

// PUT /api/sessions/:id/stops/:index
func (h SessionHandler) UpdateStop(c *gin.Context) {
	idx, ok := stopIndex(c)
	if !ok {
		return
	}
	var req locationRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.Location == nil {
		respondError(c, http.StatusBadRequest, "validation_error", "location is required", gin.H{"field": "location"})
		return
	}
	sess := session(c)
	if !sess.Wizard.UpdateStop(idx, *req.Location) {
		respondError(c, http.StatusNotFound, "not_found", "stop not found", nil)
		return
	}
	respondState(c, http.StatusOK, sess.Wizard.Snapshot())
}

// DELETE /api/sessions/:id/stops/:index. Unknown indexes leave the trip
// untouched and still answer with the current state.
func (h SessionHandler) RemoveStop(c *gin.Context) {
	idx, ok := stopIndex(c)
	if !ok {
		return
	}
	sess := session(c)
	sess.Wizard.RemoveStop(idx)
	respondState(c, http.StatusOK, sess.Wizard.Snapshot())
}

type scheduleRequest struct {
	Date *string `json:"date"`
	Time *string `json:"time"`
}

// PUT /api/sessions/:id/schedule
func (h SessionHandler) SetSchedule(c *gin.Context) {
	var req scheduleRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	sess := session(c)
	switch {
	case req.Date != nil && req.Time != nil:
		sess.Wizard.SetSchedule(*req.Date, *req.Time)
	case req.Date != nil:
		sess.Wizard.SetDate(*req.Date)
	case req.Time != nil:
		sess.Wizard.SetTime(*req.Time)
	}
	respondState(c, http.StatusOK, sess.Wizard.Snapshot())
}

type passengersRequest struct {
	Passengers     *int `json:"passengers"`
	CheckedLuggage *int `json:"checkedLuggage"`
	HandLuggage    *int `json:"handLuggage"`
}

// PUT /api/sessions/:id/passengers. Values outside the configured limits
// are clamped, not rejected.
func (h SessionHandler) SetPassengers(c *gin.Context) {
	var req passengersRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	sess := session(c)
	sess.Wizard.SetCounts(wizard.Counts{
		Passengers:     req.Passengers,
		CheckedLuggage: req.CheckedLuggage,
		HandLuggage:    req.HandLuggage,
	})
	respondState(c, http.StatusOK, sess.Wizard.Snapshot())
}

type vehicleRequest struct {
	VehicleID string `json:"vehicleId"`
}

// PUT /api/sessions/:id/vehicle
func (h SessionHandler) SelectVehicle(c *gin.Context) {
	var req vehicleRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	sess := session(c)
	if err := sess.Wizard.SelectVehicle(req.VehicleID); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondState(c, http.StatusOK, sess.Wizard.Snapshot())
}

type validateRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

// POST /api/sessions/:id/validate
func (h SessionHandler) ValidateField(c *gin.Context) {
	var req validateRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	sess := session(c)
	msg := sess.Wizard.ValidateField(req.Field, req.Value)
	c.JSON(http.StatusOK, gin.H{
		"field": req.Field,
		"error": msg,
		"state": sess.Wizard.Snapshot(),
	})
}

// DELETE /api/sessions/:id/errors/:field
func (h SessionHandler) ClearFieldError(c *gin.Context) {
	sess := session(c)
	sess.Wizard.ClearFieldError(c.Param("field"))
	respondState(c, http.StatusOK, sess.Wizard.Snapshot())
}

// POST /api/sessions/:id/next
func (h SessionHandler) Next(c *gin.Context) {
	sess := session(c)
	if _, err := sess.Wizard.Next(c.Request.Context()); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondState(c, http.StatusOK, sess.Wizard.Snapshot())
}

type gotoRequest struct {
	Step models.WizardStep `json:"step" binding:"required"`
}

// POST /api/sessions/:id/goto
func (h SessionHandler) GoTo(c *gin.Context) {
	var req gotoRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	sess := session(c)
	if err := sess.Wizard.GoTo(req.Step); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondState(c, http.StatusOK, sess.Wizard.Snapshot())
}

// POST /api/sessions/:id/dismiss-success
func (h SessionHandler) DismissSuccess(c *gin.Context) {
	sess := session(c)
	sess.Wizard.DismissBookingSuccess()
	respondState(c, http.StatusOK, sess.Wizard.Snapshot())
}

// POST /api/sessions/:id/fare. A failed estimate is part of the returned
// state; only a missing route is an error.
func (h SessionHandler) EstimateFare(c *gin.Context) {
	sess := session(c)
	err := sess.Wizard.GetFareEstimate(c.Request.Context())
	if err != nil && !isUpstream(err) {
		RespondDomainError(c, err)
		return
	}
	respondState(c, http.StatusOK, sess.Wizard.Snapshot())
}

type bookingRequest struct {
	Details      models.PersonalDetails `json:"details"`
	AgreeToTerms bool                   `json:"agreeToTerms"`
}

// POST /api/sessions/:id/booking
func (h SessionHandler) CreateBooking(c *gin.Context) {
	var req bookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	sess := session(c)
	receipt, err := h.Sessions.CreateBooking(c.Request.Context(), sess, req.Details, req.AgreeToTerms)
	if err != nil && !isUpstream(err) {
		RespondDomainError(c, err)
		return
	}
	snap := sess.Wizard.Snapshot()
	switch {
	case receipt != nil:
		c.JSON(http.StatusCreated, gin.H{"booking": receipt, "state": snap})
	case err != nil:
		// the message is kept in state.requests.bookingError
		c.JSON(http.StatusBadGateway, gin.H{"state": snap, "error": snap.Requests.BookingError})
	default:
		// terms not accepted or a submission already pending
		c.JSON(http.StatusAccepted, gin.H{"state": snap})
	}
}

// POST /api/sessions/:id/reset
func (h SessionHandler) Reset(c *gin.Context) {
	sess := session(c)
	sess.Wizard.ResetBookingState()
	respondState(c, http.StatusOK, sess.Wizard.Snapshot())
}

// GET /api/sessions/:id/receipt
func (h SessionHandler) Receipt(c *gin.Context) {
	r, err := h.Sessions.Receipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": r})
}
