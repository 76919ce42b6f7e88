package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/courtlink/playerfinder/internal/auth"
	"github.com/courtlink/playerfinder/internal/finder"
	"github.com/courtlink/playerfinder/internal/middleware"
	"github.com/courtlink/playerfinder/internal/tracker"
	appErrors "github.com/courtlink/playerfinder/pkg/errors"
	"github.com/courtlink/playerfinder/pkg/response"
)

// TrackerHandler exposes the invitation store over HTTP. Read endpoints
// serve bare row arrays, matching the shape the mobile clients already
// parse; mutations answer with the standard envelope.
type TrackerHandler struct {
	store *tracker.Store
}

// NewTrackerHandler builds a TrackerHandler around the given store.
func NewTrackerHandler(store *tracker.Store) *TrackerHandler {
	return &TrackerHandler{store: store}
}

type createRequestPayload struct {
	PlayTime      finder.PlayTime        `json:"playTime" validate:"required"`
	PlayEndTime   finder.PlayTime        `json:"playEndTime" validate:"required"`
	PlaceToPlay   int                    `json:"placeToPlay"`
	PlayersNeeded int                    `json:"playersNeeded" validate:"min=0"`
	OrganizerName string                 `json:"organizerName"`
	Invitees      []tracker.InviteeInput `json:"invitees" validate:"required,min=1,dive"`
}

type createRequestResponse struct {
	RequestID   string                     `json:"requestId"`
	Invitations []tracker.IssuedInvitation `json:"invitations"`
}

type mutateRequestPayload struct {
	RequestID   string `json:"requestId" validate:"required"`
	UserID      string `json:"userId"`
	OrganizerID string `json:"organizerId"`
	Comment     string `json:"comment"`
}

// CreateRequest opens a new player-finder request. The organizer identity
// comes from the authenticated token, never from the payload.
func (h *TrackerHandler) CreateRequest(c *gin.Context) {
	var payload createRequestPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	claims := authClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	requestID, issued, err := h.store.CreateRequest(c.Request.Context(), tracker.CreateRequestInput{
		OrganizerID:    claims.UserID,
		OrganizerName:  payload.OrganizerName,
		OrganizerEmail: claims.Email,
		PlayTime:       payload.PlayTime,
		PlayEndTime:    payload.PlayEndTime,
		PlaceToPlay:    payload.PlaceToPlay,
		PlayersNeeded:  payload.PlayersNeeded,
		Invitees:       payload.Invitees,
	})
	if err != nil {
		response.Error(c, mapTrackerErr(err))
		return
	}

	response.Success(c, http.StatusCreated, createRequestResponse{
		RequestID:   requestID,
		Invitations: issued,
	})
}

// GetRequest serves every invitee row of one request as a bare array.
func (h *TrackerHandler) GetRequest(c *gin.Context) {
	requestID := strings.TrimSpace(c.Query("requestId"))
	if requestID == "" {
		response.Error(c, appErrors.NewBadRequest("requestId is required"))
		return
	}

	h.serveRows(c, func() ([]finder.InviteeResponse, error) {
		return h.store.RowsByRequest(c.Request.Context(), requestID)
	})
}

// Incoming serves every row addressed to a user as a bare array.
func (h *TrackerHandler) Incoming(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		response.Error(c, appErrors.NewBadRequest("userId is required"))
		return
	}

	h.serveRows(c, func() ([]finder.InviteeResponse, error) {
		return h.store.RowsByInvitee(c.Request.Context(), userID)
	})
}

// Sent serves the rows of requests organised by a user. The query parameter
// is called inviteeEmail for historical reasons but carries the organizer's
// email address.
func (h *TrackerHandler) Sent(c *gin.Context) {
	email := strings.TrimSpace(c.Query("inviteeEmail"))
	if email == "" {
		response.Error(c, appErrors.NewBadRequest("inviteeEmail is required"))
		return
	}

	h.serveRows(c, func() ([]finder.InviteeResponse, error) {
		return h.store.RowsByOrganizerEmail(c.Request.Context(), email)
	})
}

// Accept resolves an accept capability link.
func (h *TrackerHandler) Accept(c *gin.Context) {
	h.respond(c, h.store.Accept)
}

// Decline resolves a decline capability link.
func (h *TrackerHandler) Decline(c *gin.Context) {
	h.respond(c, h.store.Decline)
}

// Cancel reverses the caller's own earlier acceptance.
func (h *TrackerHandler) Cancel(c *gin.Context) {
	var payload mutateRequestPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	claims := authClaims(c)
	if claims == nil || payload.UserID == "" || claims.UserID != payload.UserID {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.store.Cancel(c.Request.Context(), payload.RequestID, payload.UserID, payload.Comment); err != nil {
		response.Error(c, mapTrackerErr(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"requestId": payload.RequestID})
}

// Withdraw terminates the whole request for every invitee.
func (h *TrackerHandler) Withdraw(c *gin.Context) {
	var payload mutateRequestPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	claims := authClaims(c)
	if claims == nil || payload.OrganizerID == "" || claims.UserID != payload.OrganizerID {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.store.Withdraw(c.Request.Context(), payload.RequestID, payload.OrganizerID, payload.Comment); err != nil {
		response.Error(c, mapTrackerErr(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"requestId": payload.RequestID})
}

func (h *TrackerHandler) respond(c *gin.Context, apply func(ctx context.Context, token, comment string) error) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.NewBadRequest("token is required"))
		return
	}

	comment := c.Query("comments")
	if err := apply(c.Request.Context(), token, comment); err != nil {
		response.Error(c, mapTrackerErr(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "recorded"})
}

func (h *TrackerHandler) serveRows(c *gin.Context, load func() ([]finder.InviteeResponse, error)) {
	rows, err := load()
	if err != nil {
		response.Error(c, mapTrackerErr(err))
		return
	}

	if rows == nil {
		rows = []finder.InviteeResponse{}
	}
	c.JSON(http.StatusOK, rows)
}

func authClaims(c *gin.Context) *iauth.Claims {
	value, ok := c.Get(middleware.CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, ok := value.(*iauth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// mapTrackerErr converts store and engine errors into the API taxonomy.
func mapTrackerErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, tracker.ErrRowNotFound):
		return appErrors.ErrNotFound.WithMessage("invitation not found")
	case errors.Is(err, tracker.ErrDuplicateInvitee):
		return appErrors.ErrConflict.WithMessage("invitee already invited").WithInternal(err)
	case errors.Is(err, finder.ErrRequestFull):
		return appErrors.ErrRequestFull.WithInternal(err)
	case errors.Is(err, finder.ErrNotOrganizer):
		return appErrors.ErrUnauthorized.WithInternal(err)
	case errors.Is(err, finder.ErrIllegalTransition), errors.Is(err, finder.ErrUnknownStatus):
		return appErrors.ErrConflict.WithInternal(err)
	case errors.Is(err, finder.ErrInvalidDate):
		return appErrors.ErrInvalidDate.WithInternal(err)
	default:
		return appErrors.NewBadRequest(err.Error())
	}
}
