package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/mentorbot/internal/domain"
)

// MaxRecentConversations caps a single RecentConversations query.
const MaxRecentConversations = 1000

// Store persists conversations and delivered notifications.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveConversation stores rec for userID. Saving an id twice is a no-op.
	SaveConversation(ctx context.Context, userID string, rec domain.ConversationRecord) error

	// RecentConversations returns up to limit of the newest records of userID,
	// oldest first.
	RecentConversations(ctx context.Context, userID string, limit int) ([]domain.ConversationRecord, error)

	// SaveDeliveredNotifications archives delivered notifications in one
	// transaction.
	SaveDeliveredNotifications(ctx context.Context, delivered []domain.DeliveredNotification) error

	// GetDeliveredNotifications returns up to limit of the newest archived
	// notifications of userID, newest first.
	GetDeliveredNotifications(ctx context.Context, userID string, limit int) ([]domain.DeliveredNotification, error)

	// PruneDelivered deletes archived notifications sent before cutoff and
	// returns how many were removed.
	PruneDelivered(ctx context.Context, cutoff time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore implements Store with sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a Store backed by a connected sqlx.DB.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveConversation(ctx context.Context, userID string, rec domain.ConversationRecord) error {
	if userID == "" {
		return fmt.Errorf("%w: conversation must have a user_id", domain.ErrValidation)
	}
	if rec.ID == "" {
		return fmt.Errorf("%w: conversation must have an id", domain.ErrValidation)
	}
	if rec.Timestamp.IsZero() {
		return fmt.Errorf("%w: conversation must have a timestamp", domain.ErrValidation)
	}

	row, err := conversationFromRecord(userID, rec, s.now())
	if err != nil {
		return err
	}

	query := `
        INSERT INTO conversations (id, user_id, text, timestamp, participants, created_at)
        VALUES (:id, :user_id, :text, :timestamp, :participants, :created_at)
        ON CONFLICT(id) DO NOTHING;
    `
	result, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving conversation", "user_id", userID, "record_id", rec.ID, "error", err)
		return fmt.Errorf("failed to save conversation %s for user %s: %w", rec.ID, userID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		s.logger.DebugContext(ctx, "Conversation already stored", "user_id", userID, "record_id", rec.ID)
		return nil
	}

	s.logger.DebugContext(ctx, "Conversation saved", "user_id", userID, "record_id", rec.ID)
	return nil
}

func (s *sqlxStore) RecentConversations(ctx context.Context, userID string, limit int) ([]domain.ConversationRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id cannot be empty", domain.ErrValidation)
	}
	if limit <= 0 {
		return []domain.ConversationRecord{}, nil
	}
	if limit > MaxRecentConversations {
		s.logger.DebugContext(ctx, "Limit exceeded maximum value, capping", "user_id", userID, "capped_limit", MaxRecentConversations)
		limit = MaxRecentConversations
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var rows []Conversation
	query := `
        SELECT id, user_id, text, timestamp, participants, created_at
        FROM conversations
        WHERE user_id = ?
        ORDER BY timestamp DESC, seq DESC
        LIMIT ?;
    `
	err := s.db.SelectContext(ctx, &rows, query, userID, limit)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching conversations", "user_id", userID, "error", err)
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent conversations", "user_id", userID, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get recent conversations for user %s: %w", userID, err)
	}

	records := make([]domain.ConversationRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.Record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	slices.Reverse(records)

	s.logger.DebugContext(ctx, "Fetched recent conversations", "user_id", userID, "count", len(records))
	return records, nil
}

func (s *sqlxStore) SaveDeliveredNotifications(ctx context.Context, delivered []domain.DeliveredNotification) error {
	if len(delivered) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for delivered notifications", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	query := `
        INSERT INTO delivered_notifications
            (id, user_id, title, message, priority, trigger_time, created_at, source_insight_id, sent_at)
        VALUES
            (:id, :user_id, :title, :message, :priority, :trigger_time, :created_at, :source_insight_id, :sent_at)
        ON CONFLICT(id) DO NOTHING;
    `
	for _, d := range delivered {
		if d.ID == "" || d.UserID == "" {
			return fmt.Errorf("%w: delivered notification must have an id and user_id", domain.ErrValidation)
		}
		if _, err := tx.NamedExecContext(ctx, query, deliveredFromDomain(d)); err != nil {
			s.logger.ErrorContext(ctx, "Error archiving notification", "notification_id", d.ID, "error", err)
			return fmt.Errorf("failed to archive notification %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit delivered notifications", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Delivered notifications archived", "count", len(delivered))
	return nil
}

func (s *sqlxStore) GetDeliveredNotifications(ctx context.Context, userID string, limit int) ([]domain.DeliveredNotification, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id cannot be empty", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = 20
	}

	var rows []DeliveredNotification
	query := `
        SELECT id, user_id, title, message, priority, trigger_time, created_at, source_insight_id, sent_at
        FROM delivered_notifications
        WHERE user_id = ?
        ORDER BY sent_at DESC, seq DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error getting delivered notifications", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get delivered notifications for user %s: %w", userID, err)
	}

	out := make([]domain.DeliveredNotification, len(rows))
	for i, row := range rows {
		out[i] = row.Domain()
	}
	return out, nil
}

func (s *sqlxStore) PruneDelivered(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM delivered_notifications WHERE sent_at < ?;`, cutoff.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error pruning delivered notifications", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("failed to prune delivered notifications: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned notifications: %w", err)
	}
	s.logger.InfoContext(ctx, "Pruned delivered notifications", "removed", removed, "cutoff", cutoff)
	return removed, nil
}

// RunSQLMaintenance executes VACUUM. It must run outside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	return nil
}
