// Package tracker is the server side of the player-finder flow: it persists
// invitation rows, issues capability links, and applies the same lifecycle
// rules the client enforces.
package tracker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/courtlink/playerfinder/internal/finder"
	"github.com/courtlink/playerfinder/internal/models"
	"github.com/courtlink/playerfinder/pkg/logger"
	"github.com/courtlink/playerfinder/pkg/metrics"
)

var (
	// ErrRowNotFound indicates no invitation matches the given identifiers or token.
	ErrRowNotFound = errors.New("tracker: invitation not found")
	// ErrDuplicateInvitee indicates the same invitee appears twice in one request.
	ErrDuplicateInvitee = errors.New("tracker: invitee already invited to this request")
)

// ReminderPolicy holds the per-request reminder offsets, in minutes.
type ReminderPolicy struct {
	TotalTimeBeforePlayMinutes int `json:"totalTimeBeforePlay"`
	StartOffsetMinutes         int `json:"reminderStartOffsetMinutes"`
	IntervalMinutes            int `json:"reminderIntervalMinutes"`
	CancelThresholdMinutes     int `json:"cancelThresholdMinutes"`
}

// Option customises Store behaviour.
type Option func(*Store)

// WithNow injects a custom clock primarily for testing.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLinkBase sets the public base URL embedded in capability links.
func WithLinkBase(base string) Option {
	return func(s *Store) {
		s.linkBase = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithReminderPolicy overrides the default reminder offsets for new requests.
func WithReminderPolicy(policy ReminderPolicy) Option {
	return func(s *Store) {
		s.policy = policy
	}
}

// WithLogger replaces the default module logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// Store manages invitation rows for the tracker endpoints.
type Store struct {
	db       *gorm.DB
	linkBase string
	policy   ReminderPolicy
	now      func() time.Time
	log      *zap.Logger
}

// NewStore constructs a Store around the provided database handle.
func NewStore(db *gorm.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("tracker: database handle is required")
	}

	store := &Store{
		db:       db,
		linkBase: "http://127.0.0.1:8000",
		policy: ReminderPolicy{
			StartOffsetMinutes:     1440,
			IntervalMinutes:        720,
			CancelThresholdMinutes: 120,
		},
		now: time.Now,
		log: logger.WithModule("tracker"),
	}

	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// InviteeInput identifies one candidate player on a new request.
type InviteeInput struct {
	ID    string `json:"inviteeId" validate:"required"`
	Name  string `json:"inviteeName"`
	Email string `json:"inviteeEmail" validate:"omitempty,email"`
}

// CreateRequestInput carries everything needed to open a request.
type CreateRequestInput struct {
	OrganizerID    string
	OrganizerName  string
	OrganizerEmail string
	PlayTime       finder.PlayTime
	PlayEndTime    finder.PlayTime
	PlaceToPlay    int
	PlayersNeeded  int
	Invitees       []InviteeInput
}

// IssuedInvitation pairs an invitee with their freshly minted capability links.
type IssuedInvitation struct {
	InvitationID string `json:"invitationId"`
	InviteeID    string `json:"inviteeId"`
	AcceptURL    string `json:"acceptUrl"`
	DeclineURL   string `json:"declineUrl"`
}

// CreateRequest opens a request with one PENDING row per invitee. Shared game
// fields are copied onto every row, matching the denormalised wire shape.
func (s *Store) CreateRequest(ctx context.Context, input CreateRequestInput) (string, []IssuedInvitation, error) {
	if strings.TrimSpace(input.OrganizerID) == "" {
		return "", nil, errors.New("tracker: organizer id is required")
	}
	if len(input.Invitees) == 0 {
		return "", nil, errors.New("tracker: at least one invitee is required")
	}
	if input.PlayersNeeded < 0 {
		return "", nil, errors.New("tracker: playersNeeded cannot be negative")
	}
	if err := input.PlayTime.Validate(); err != nil {
		return "", nil, err
	}
	if err := input.PlayEndTime.Validate(); err != nil {
		return "", nil, err
	}
	if !input.PlayTime.Time(time.UTC).Before(input.PlayEndTime.Time(time.UTC)) {
		return "", nil, errors.New("tracker: playEndTime must be after playTime")
	}

	seen := make(map[string]struct{}, len(input.Invitees))
	for _, invitee := range input.Invitees {
		if strings.TrimSpace(invitee.ID) == "" {
			return "", nil, errors.New("tracker: invitee id is required")
		}
		if _, dup := seen[invitee.ID]; dup {
			return "", nil, ErrDuplicateInvitee
		}
		seen[invitee.ID] = struct{}{}
	}

	now := s.now()
	playAt := input.PlayTime.Time(now.Location())

	policy := s.policy
	policy.TotalTimeBeforePlayMinutes = int(playAt.Sub(now) / time.Minute)
	policyJSON, err := json.Marshal(policy)
	if err != nil {
		return "", nil, fmt.Errorf("tracker: encode reminder policy: %w", err)
	}

	playJSON, err := json.Marshal(input.PlayTime)
	if err != nil {
		return "", nil, err
	}
	endJSON, err := json.Marshal(input.PlayEndTime)
	if err != nil {
		return "", nil, err
	}

	firstReminder := playAt.Add(-time.Duration(policy.StartOffsetMinutes) * time.Minute)
	if firstReminder.Before(now) {
		firstReminder = now.Add(time.Duration(policy.IntervalMinutes) * time.Minute)
	}

	requestID := uuid.NewString()
	rows := make([]models.Invitation, 0, len(input.Invitees))
	issued := make([]IssuedInvitation, 0, len(input.Invitees))

	for _, invitee := range input.Invitees {
		acceptToken := uuid.NewString()
		declineToken := uuid.NewString()
		next := firstReminder

		rows = append(rows, models.Invitation{
			RequestID:        requestID,
			InviteeID:        invitee.ID,
			InviteeName:      invitee.Name,
			InviteeEmail:     invitee.Email,
			Status:           string(finder.StatusPending),
			PlayTime:         datatypes.JSON(playJSON),
			PlayEndTime:      datatypes.JSON(endJSON),
			PlaceToPlay:      input.PlaceToPlay,
			PlayersNeeded:    input.PlayersNeeded,
			OrganizerID:      input.OrganizerID,
			OrganizerName:    input.OrganizerName,
			OrganizerEmail:   input.OrganizerEmail,
			AcceptTokenHash:  tokenHash(acceptToken),
			DeclineTokenHash: tokenHash(declineToken),
			AcceptURL:        s.capabilityLink("accept", acceptToken),
			DeclineURL:       s.capabilityLink("decline", declineToken),
			InvitationSentAt: now,
			NextReminderAt:   &next,
			ReminderPolicy:   datatypes.JSON(policyJSON),
		})
	}

	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", nil, ErrDuplicateInvitee
		}
		return "", nil, fmt.Errorf("tracker: create request: %w", err)
	}

	for _, row := range rows {
		issued = append(issued, IssuedInvitation{
			InvitationID: row.ID,
			InviteeID:    row.InviteeID,
			AcceptURL:    row.AcceptURL,
			DeclineURL:   row.DeclineURL,
		})
	}

	s.log.Info("request created",
		zap.String("request_id", requestID),
		zap.Int("invitees", len(rows)))

	return requestID, issued, nil
}

// RowsByRequest returns every invitee row of one request in wire shape.
func (s *Store) RowsByRequest(ctx context.Context, requestID string) ([]finder.InviteeResponse, error) {
	return s.fetch(ctx, "request_id = ?", requestID)
}

// RowsByInvitee returns every row addressed to one invitee across requests.
func (s *Store) RowsByInvitee(ctx context.Context, inviteeID string) ([]finder.InviteeResponse, error) {
	return s.fetch(ctx, "invitee_id = ?", inviteeID)
}

// RowsByOrganizerEmail returns the rows of requests organised under the
// given email address.
func (s *Store) RowsByOrganizerEmail(ctx context.Context, email string) ([]finder.InviteeResponse, error) {
	return s.fetch(ctx, "organizer_email = ?", email)
}

// Accept resolves an accept capability token and commits the transition.
func (s *Store) Accept(ctx context.Context, rawToken, comment string) error {
	return s.respond(ctx, "accept_token_hash", rawToken, comment)
}

// Decline resolves a decline capability token and commits the transition.
func (s *Store) Decline(ctx context.Context, rawToken, comment string) error {
	return s.respond(ctx, "decline_token_hash", rawToken, comment)
}

func (s *Store) respond(ctx context.Context, tokenColumn, rawToken, comment string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return ErrRowNotFound
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Invitation
		if err := tx.Where(tokenColumn+" = ?", tokenHash(rawToken)).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRowNotFound
			}
			return err
		}

		target := finder.StatusDeclined
		if tokenColumn == "accept_token_hash" {
			target = finder.StatusAccepted
		}

		wireRow, err := toResponse(row)
		if err != nil {
			return err
		}

		if target == finder.StatusAccepted {
			siblings, err := s.fetchModels(tx, "request_id = ?", row.RequestID)
			if err != nil {
				return err
			}
			req, err := s.aggregate(siblings, row.RequestID)
			if err != nil {
				return err
			}
			if err := finder.ValidateAccept(wireRow, finder.Evaluate(req)); err != nil {
				metrics.RejectedTransitions.WithLabelValues(rejectionReason(err)).Inc()
				return err
			}
		} else {
			if err := finder.ValidateDecline(wireRow); err != nil {
				metrics.RejectedTransitions.WithLabelValues(rejectionReason(err)).Inc()
				return err
			}
		}

		return s.commitTransition(tx, &row, target, comment)
	})
}

// Cancel reverses an invitee's own earlier acceptance.
func (s *Store) Cancel(ctx context.Context, requestID, inviteeID, comment string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Invitation
		err := tx.Where("request_id = ? AND invitee_id = ?", requestID, inviteeID).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRowNotFound
			}
			return err
		}

		wireRow, err := toResponse(row)
		if err != nil {
			return err
		}
		if err := finder.ValidateCancel(wireRow); err != nil {
			metrics.RejectedTransitions.WithLabelValues(rejectionReason(err)).Inc()
			return err
		}

		return s.commitTransition(tx, &row, finder.StatusCancelled, comment)
	})
}

// Withdraw terminates the whole request: every non-terminal row becomes
// WITHDRAWN in one transaction. Only the organizer may do this.
func (s *Store) Withdraw(ctx context.Context, requestID, organizerID, comment string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.fetchModels(tx, "request_id = ?", requestID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrRowNotFound
		}

		req, err := s.aggregate(rows, requestID)
		if err != nil {
			return err
		}
		if err := finder.ValidateWithdraw(req, organizerID); err != nil {
			metrics.RejectedTransitions.WithLabelValues(rejectionReason(err)).Inc()
			return err
		}

		for i := range rows {
			status, err := finder.ParseStatus(rows[i].Status)
			if err != nil {
				return err
			}
			if status.Terminal() {
				continue
			}
			if err := s.commitTransition(tx, &rows[i], finder.StatusWithdrawn, comment); err != nil {
				return err
			}
		}

		s.log.Info("request withdrawn",
			zap.String("request_id", requestID),
			zap.String("organizer_id", organizerID))
		return nil
	})
}

func (s *Store) commitTransition(tx *gorm.DB, row *models.Invitation, to finder.Status, comment string) error {
	updates := map[string]any{"status": string(to)}
	if comment != "" {
		updates["comment"] = comment
	}
	if to.Terminal() {
		// No further reminders for a dead row.
		updates["next_reminder_at"] = nil
	}

	if err := tx.Model(row).Updates(updates).Error; err != nil {
		return fmt.Errorf("tracker: update invitation: %w", err)
	}

	metrics.InviteeTransitions.WithLabelValues(string(to)).Inc()
	return nil
}

func (s *Store) fetch(ctx context.Context, query string, args ...any) ([]finder.InviteeResponse, error) {
	rows, err := s.fetchModels(s.db.WithContext(ctx), query, args...)
	if err != nil {
		return nil, err
	}

	responses := make([]finder.InviteeResponse, 0, len(rows))
	for _, row := range rows {
		resp, err := toResponse(row)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (s *Store) fetchModels(tx *gorm.DB, query string, args ...any) ([]models.Invitation, error) {
	var rows []models.Invitation
	if err := tx.Where(query, args...).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("tracker: load invitations: %w", err)
	}
	return rows, nil
}

func (s *Store) aggregate(rows []models.Invitation, requestID string) (*finder.Request, error) {
	responses := make([]finder.InviteeResponse, 0, len(rows))
	for _, row := range rows {
		resp, err := toResponse(row)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}

	req, ok := finder.GroupByRequestID(responses)[requestID]
	if !ok {
		return nil, ErrRowNotFound
	}
	return req, nil
}

func (s *Store) capabilityLink(action, token string) string {
	return fmt.Sprintf("%s/tracker/%s?token=%s", s.linkBase, action, token)
}

// toResponse converts a stored row into the wire shape served by the read
// endpoints.
func toResponse(row models.Invitation) (finder.InviteeResponse, error) {
	status, err := finder.ParseStatus(row.Status)
	if err != nil {
		return finder.InviteeResponse{}, err
	}

	var play, end finder.PlayTime
	if err := json.Unmarshal(row.PlayTime, &play); err != nil {
		return finder.InviteeResponse{}, fmt.Errorf("tracker: decode playTime: %w", err)
	}
	if err := json.Unmarshal(row.PlayEndTime, &end); err != nil {
		return finder.InviteeResponse{}, fmt.Errorf("tracker: decode playEndTime: %w", err)
	}

	var policy ReminderPolicy
	if len(row.ReminderPolicy) > 0 {
		if err := json.Unmarshal(row.ReminderPolicy, &policy); err != nil {
			return finder.InviteeResponse{}, fmt.Errorf("tracker: decode reminder policy: %w", err)
		}
	}

	reminder := finder.ReminderMetadata{
		InvitationSentAt:           row.InvitationSentAt,
		LastReminderSentAt:         row.LastReminderSentAt,
		TotalTimeBeforePlayMinutes: policy.TotalTimeBeforePlayMinutes,
		ReminderStartOffsetMinutes: policy.StartOffsetMinutes,
		ReminderIntervalMinutes:    policy.IntervalMinutes,
		CancelThresholdMinutes:     policy.CancelThresholdMinutes,
	}
	if row.NextReminderAt != nil {
		reminder.NextReminderAt = *row.NextReminderAt
	}

	return finder.InviteeResponse{
		RequestID:     row.RequestID,
		InvitationID:  row.ID,
		InviteeID:     row.InviteeID,
		InviteeName:   row.InviteeName,
		Status:        status,
		PlayTime:      play,
		PlayEndTime:   end,
		PlaceToPlay:   row.PlaceToPlay,
		PlayersNeeded: row.PlayersNeeded,
		OrganizerID:   row.OrganizerID,
		OrganizerName: row.OrganizerName,
		Reminder:      reminder,
		AcceptURL:     row.AcceptURL,
		DeclineURL:    row.DeclineURL,
		Comment:       row.Comment,
	}, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, finder.ErrRequestFull):
		return "request_full"
	case errors.Is(err, finder.ErrNotOrganizer):
		return "not_organizer"
	case errors.Is(err, finder.ErrIllegalTransition):
		return "illegal_transition"
	default:
		return "other"
	}
}

func tokenHash(token string) string {
	checksum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(checksum[:])
}
