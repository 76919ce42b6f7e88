package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/courtlink/playerfinder/internal/finder"
	appErrors "github.com/courtlink/playerfinder/pkg/errors"
	"github.com/courtlink/playerfinder/pkg/logger"
)

// Gateway is the transport surface the service needs. The HTTP client in
// internal/gateway satisfies it; tests substitute an in-memory fake.
type Gateway interface {
	RequestRows(ctx context.Context, requestID string) ([]finder.InviteeResponse, error)
	IncomingInvitations(ctx context.Context, userID string) ([]finder.InviteeResponse, error)
	SentInvitations(ctx context.Context, organizerEmail string) ([]finder.InviteeResponse, error)
	Respond(ctx context.Context, capabilityURL, comment string) error
	Cancel(ctx context.Context, requestID, userID, comment string) error
	Withdraw(ctx context.Context, requestID, organizerID, comment string) error
}

// FinderOption customises FinderService behaviour.
type FinderOption func(*FinderService)

// WithClock injects a custom clock primarily for testing.
func WithClock(clock func() time.Time) FinderOption {
	return func(s *FinderService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithLogger replaces the default module logger.
func WithLogger(log *zap.Logger) FinderOption {
	return func(s *FinderService) {
		if log != nil {
			s.log = log
		}
	}
}

// FinderService is the screen-facing entry point of the engine. Every view
// re-derives its aggregate from the latest fetched row set, and every
// mutation re-fetches before returning, so independently held views of the
// same request can never drift apart after an action. Caller identity is
// always an explicit argument, never ambient state.
type FinderService struct {
	gw  Gateway
	now func() time.Time
	log *zap.Logger
}

// NewFinderService constructs a FinderService around the provided gateway.
func NewFinderService(gw Gateway, opts ...FinderOption) (*FinderService, error) {
	if gw == nil {
		return nil, errors.New("finder service: gateway is required")
	}

	service := &FinderService{
		gw:  gw,
		now: time.Now,
		log: logger.WithModule("finder"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// RequestView is one aggregate request with its derived projections.
type RequestView struct {
	Request      *finder.Request
	Quorum       finder.Quorum
	Phase        finder.Phase
	Inconsistent []string
}

// InvitationView is one incoming invitation from the invitee's perspective.
type InvitationView struct {
	Row                 finder.InviteeResponse
	Quorum              finder.Quorum
	Phase               finder.Phase
	ReminderDue         bool
	PastCancelThreshold bool
}

// HistoryGroup is one calendar day of expired requests, newest game first.
type HistoryGroup struct {
	Date     time.Time
	Requests []RequestView
}

func (s *FinderService) view(req *finder.Request, now time.Time) RequestView {
	inconsistent := req.InconsistentFields()
	if len(inconsistent) > 0 {
		s.log.Warn("invitee rows disagree on shared request fields",
			zap.String("request_id", req.RequestID),
			zap.Strings("fields", inconsistent))
	}

	return RequestView{
		Request:      req,
		Quorum:       finder.Evaluate(req),
		Phase:        finder.Classify(req, now),
		Inconsistent: inconsistent,
	}
}

// RequestDetail fetches and aggregates a single request. An empty row set
// means the request does not exist; it is never presented as a zero-quorum
// aggregate.
func (s *FinderService) RequestDetail(ctx context.Context, requestID string) (*RequestView, error) {
	rows, err := s.gw.RequestRows(ctx, requestID)
	if err != nil {
		return nil, err
	}

	req, ok := finder.GroupByRequestID(rows)[requestID]
	if !ok {
		return nil, appErrors.ErrNotFound.WithMessage(fmt.Sprintf("game request %s not found", requestID))
	}

	view := s.view(req, s.now())
	return &view, nil
}

// Dashboard lists the user's still-active incoming requests, soonest game
// first, for the home calendar.
func (s *FinderService) Dashboard(ctx context.Context, userID string) ([]RequestView, error) {
	rows, err := s.gw.IncomingInvitations(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	grouped := finder.GroupByRequestID(rows)
	requests := make([]*finder.Request, 0, len(grouped))
	for _, req := range grouped {
		requests = append(requests, req)
	}

	views := make([]RequestView, 0, len(requests))
	for _, req := range finder.Upcoming(requests, now) {
		views = append(views, s.view(req, now))
	}
	return views, nil
}

// Incoming lists every invitation addressed to the user together with the
// projections the invitation list screen renders: quorum, phase, and the
// reminder/cancellation hints.
func (s *FinderService) Incoming(ctx context.Context, userID string) ([]InvitationView, error) {
	rows, err := s.gw.IncomingInvitations(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	grouped := finder.GroupByRequestID(rows)

	views := make([]InvitationView, 0, len(rows))
	for _, r := range rows {
		req, ok := grouped[r.RequestID]
		if !ok {
			continue
		}
		views = append(views, InvitationView{
			Row:                 r,
			Quorum:              finder.Evaluate(req),
			Phase:               finder.Classify(req, now),
			ReminderDue:         finder.ReminderDue(r, now),
			PastCancelThreshold: finder.PastCancelThreshold(r, now),
		})
	}
	return views, nil
}

// SentOverview lists the requests the user organised. Requests whose rows
// are all withdrawn are hidden; a partially withdrawn request stays.
func (s *FinderService) SentOverview(ctx context.Context, organizerEmail string) ([]RequestView, error) {
	rows, err := s.gw.SentInvitations(ctx, organizerEmail)
	if err != nil {
		return nil, err
	}

	now := s.now()
	visible := finder.SentRequests(finder.GroupByRequestID(rows))

	views := make([]RequestView, 0, len(visible))
	for _, req := range visible {
		views = append(views, s.view(req, now))
	}
	return views, nil
}

// History lists the user's expired requests grouped by calendar day of the
// game, most recent day first. Withdrawn requests still appear.
func (s *FinderService) History(ctx context.Context, userID string) ([]HistoryGroup, error) {
	rows, err := s.gw.IncomingInvitations(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	grouped := finder.GroupByRequestID(rows)
	requests := make([]*finder.Request, 0, len(grouped))
	for _, req := range grouped {
		requests = append(requests, req)
	}

	groups := make([]HistoryGroup, 0)
	for _, g := range finder.History(requests, now) {
		views := make([]RequestView, 0, len(g.Requests))
		for _, req := range g.Requests {
			views = append(views, s.view(req, now))
		}
		groups = append(groups, HistoryGroup{Date: g.Date, Requests: views})
	}
	return groups, nil
}

// Accept commits the invitee's acceptance through their capability link.
// The transition is validated locally first: responding to a withdrawn row
// or accepting into a full request fails before any network call. Local
// state is never flipped optimistically; the fresh aggregate returned comes
// from a post-mutation re-fetch.
func (s *FinderService) Accept(ctx context.Context, requestID, inviteeID, comment string) (*RequestView, error) {
	req, row, err := s.loadRow(ctx, requestID, inviteeID)
	if err != nil {
		return nil, err
	}

	if err := finder.ValidateAccept(row, finder.Evaluate(req)); err != nil {
		return nil, mapLifecycleErr(err)
	}

	if err := s.gw.Respond(ctx, row.AcceptURL, comment); err != nil {
		return nil, s.refreshOnConflict(ctx, requestID, err)
	}

	s.log.Info("invitation accepted",
		zap.String("request_id", requestID),
		zap.String("invitee_id", inviteeID))

	return s.RequestDetail(ctx, requestID)
}

// Decline commits the invitee's refusal through their capability link.
func (s *FinderService) Decline(ctx context.Context, requestID, inviteeID, comment string) (*RequestView, error) {
	_, row, err := s.loadRow(ctx, requestID, inviteeID)
	if err != nil {
		return nil, err
	}

	if err := finder.ValidateDecline(row); err != nil {
		return nil, mapLifecycleErr(err)
	}

	if err := s.gw.Respond(ctx, row.DeclineURL, comment); err != nil {
		return nil, s.refreshOnConflict(ctx, requestID, err)
	}

	s.log.Info("invitation declined",
		zap.String("request_id", requestID),
		zap.String("invitee_id", inviteeID))

	return s.RequestDetail(ctx, requestID)
}

// CancelAcceptance reverses the invitee's own earlier acceptance. The
// aggregate can drop from FULL back to PENDING, which is why the fresh
// post-mutation view is returned instead of patching any cached one.
func (s *FinderService) CancelAcceptance(ctx context.Context, requestID, inviteeID, comment string) (*RequestView, error) {
	_, row, err := s.loadRow(ctx, requestID, inviteeID)
	if err != nil {
		return nil, err
	}

	if err := finder.ValidateCancel(row); err != nil {
		return nil, mapLifecycleErr(err)
	}

	if err := s.gw.Cancel(ctx, requestID, inviteeID, comment); err != nil {
		return nil, err
	}

	s.log.Info("acceptance cancelled",
		zap.String("request_id", requestID),
		zap.String("invitee_id", inviteeID))

	return s.RequestDetail(ctx, requestID)
}

// Withdraw terminates the whole request for every invitee. Only the
// organizer may do this, and the gateway applies it as one atomic call.
func (s *FinderService) Withdraw(ctx context.Context, requestID, organizerID, comment string) (*RequestView, error) {
	rows, err := s.gw.RequestRows(ctx, requestID)
	if err != nil {
		return nil, err
	}

	req, ok := finder.GroupByRequestID(rows)[requestID]
	if !ok {
		return nil, appErrors.ErrNotFound.WithMessage(fmt.Sprintf("game request %s not found", requestID))
	}

	if err := finder.ValidateWithdraw(req, organizerID); err != nil {
		return nil, mapLifecycleErr(err)
	}

	if err := s.gw.Withdraw(ctx, requestID, organizerID, comment); err != nil {
		return nil, err
	}

	s.log.Info("request withdrawn",
		zap.String("request_id", requestID),
		zap.String("organizer_id", organizerID))

	return s.RequestDetail(ctx, requestID)
}

// loadRow fetches the request and locates the caller's own row in it.
func (s *FinderService) loadRow(ctx context.Context, requestID, inviteeID string) (*finder.Request, finder.InviteeResponse, error) {
	if strings.TrimSpace(inviteeID) == "" {
		return nil, finder.InviteeResponse{}, appErrors.NewBadRequest("invitee id is required")
	}

	rows, err := s.gw.RequestRows(ctx, requestID)
	if err != nil {
		return nil, finder.InviteeResponse{}, err
	}

	req, ok := finder.GroupByRequestID(rows)[requestID]
	if !ok {
		return nil, finder.InviteeResponse{}, appErrors.ErrNotFound.WithMessage(fmt.Sprintf("game request %s not found", requestID))
	}

	row, ok := req.RowFor(inviteeID)
	if !ok {
		return nil, finder.InviteeResponse{}, appErrors.ErrNotFound.WithMessage("you have no invitation for this game request")
	}

	return req, row, nil
}

// refreshOnConflict re-fetches after a conflicting mutation so the caller
// can show the corrected state instead of a bare failure. Other errors pass
// through untouched.
func (s *FinderService) refreshOnConflict(ctx context.Context, requestID string, err error) error {
	if errors.Is(err, appErrors.ErrConflict) {
		if _, refreshErr := s.RequestDetail(ctx, requestID); refreshErr != nil {
			s.log.Warn("refresh after conflict failed",
				zap.String("request_id", requestID),
				zap.Error(refreshErr))
		}
	}
	return err
}

// mapLifecycleErr converts engine sentinels into the API error taxonomy.
func mapLifecycleErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, finder.ErrRequestFull):
		return appErrors.ErrRequestFull.WithInternal(err)
	case errors.Is(err, finder.ErrNotOrganizer):
		return appErrors.ErrUnauthorized.WithMessage("only the organizer can withdraw a game request").WithInternal(err)
	case errors.Is(err, finder.ErrIllegalTransition), errors.Is(err, finder.ErrUnknownStatus):
		return appErrors.ErrConflict.WithInternal(err)
	default:
		return err
	}
}
