package attendance

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"attendboard/internal/apperr"
	"attendboard/internal/metrics"
	"attendboard/internal/queue"
)

const (
	msgInvalidUser     = "Invalid user_id"
	msgAlreadyClocked  = "User already clocked in and has not clocked out yet"
	msgNoOpenSession   = "No active clock-in session found for this user"
	msgHistoryNotFound = "Attendance record not found"
)

// Service enforces the one-open-session-per-user rule.
type Service struct {
	repo   Repository
	events queue.Publisher
	now    func() time.Time
}

// NewService creates a service backed by a repository. events may be nil.
func NewService(repo Repository, events queue.Publisher) *Service {
	return &Service{
		repo:   repo,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ClockIn opens a session for userID.
func (s *Service) ClockIn(ctx context.Context, userID string) (Record, error) {
	user := strings.TrimSpace(userID)
	if user == "" {
		return Record{}, apperr.InvalidInput(msgInvalidUser)
	}

	open, err := s.repo.LatestOpen(ctx, user)
	if err != nil {
		metrics.AttendanceActions.WithLabelValues("clock_in", metrics.OutcomeError).Inc()
		return Record{}, apperr.Storage("DB error", err)
	}
	if open != nil {
		metrics.AttendanceActions.WithLabelValues("clock_in", metrics.OutcomeRejected).Inc()
		return Record{}, apperr.Conflict(msgAlreadyClocked)
	}

	now := s.now()
	rec, err := s.repo.Insert(ctx, Record{
		UserID:      user,
		ClockInTime: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		// lost a race with a concurrent clock-in for the same user
		if errors.Is(err, ErrOpenSessionExists) {
			metrics.AttendanceActions.WithLabelValues("clock_in", metrics.OutcomeRejected).Inc()
			return Record{}, apperr.Conflict(msgAlreadyClocked)
		}
		metrics.AttendanceActions.WithLabelValues("clock_in", metrics.OutcomeError).Inc()
		return Record{}, apperr.Storage("Insert error", err)
	}

	metrics.AttendanceActions.WithLabelValues("clock_in", metrics.OutcomeOK).Inc()
	log.WithFields(log.Fields{"user_id": user, "record_id": rec.ID}).Info("clock-in recorded")
	queue.Emit(ctx, s.events, queue.TypeClockIn, queue.AttendanceEvent{RecordID: rec.ID, UserID: user})
	return rec, nil
}

// ClockOut closes the latest open session for userID.
func (s *Service) ClockOut(ctx context.Context, userID string) (Record, error) {
	user := strings.TrimSpace(userID)
	if user == "" {
		return Record{}, apperr.InvalidInput(msgInvalidUser)
	}

	open, err := s.repo.LatestOpen(ctx, user)
	if err != nil {
		metrics.AttendanceActions.WithLabelValues("clock_out", metrics.OutcomeError).Inc()
		return Record{}, apperr.Storage("DB error", err)
	}
	if open == nil {
		metrics.AttendanceActions.WithLabelValues("clock_out", metrics.OutcomeRejected).Inc()
		return Record{}, apperr.NotFound(msgNoOpenSession)
	}

	rec, err := s.repo.Close(ctx, open.ID, s.now())
	if err != nil {
		if errors.Is(err, ErrSessionClosed) {
			metrics.AttendanceActions.WithLabelValues("clock_out", metrics.OutcomeRejected).Inc()
			return Record{}, apperr.NotFound(msgNoOpenSession)
		}
		metrics.AttendanceActions.WithLabelValues("clock_out", metrics.OutcomeError).Inc()
		return Record{}, apperr.Storage("Update error", err)
	}

	metrics.AttendanceActions.WithLabelValues("clock_out", metrics.OutcomeOK).Inc()
	log.WithFields(log.Fields{"user_id": user, "record_id": rec.ID}).Info("clock-out recorded")
	queue.Emit(ctx, s.events, queue.TypeClockOut, queue.AttendanceEvent{RecordID: rec.ID, UserID: user})
	return rec, nil
}

// History lists sessions newest clock-in first. A nil userID lists every
// user; a present one, even blank, filters. An empty result is reported as
// NotFound.
func (s *Service) History(ctx context.Context, userID *string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if userID != nil {
		user := strings.TrimSpace(*userID)
		userID = &user
	}
	rows, err := s.repo.History(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Storage("DB error", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound(msgHistoryNotFound)
	}
	return rows, nil
}
