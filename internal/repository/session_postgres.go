package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

const sessionColumns = `id, subject_reference, challenge_type, status,
	liveness_verified, face_authenticated, liveness_attempts, authentication_attempts, max_attempts,
	liveness_result, authentication, auth_token, valid_until, created_at, expires_at`

// PostgresSessionStore persists sessions in the liveness_sessions table.
// Update locks the row with SELECT ... FOR UPDATE for the duration of fn.
type PostgresSessionStore struct {
	pool PgxPool
}

func NewPostgresSessionStore(pool PgxPool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// Create inserts a new session
func (r *PostgresSessionStore) Create(ctx context.Context, session *domain.Session) error {
	id, err := uuid.Parse(session.ID)
	if err != nil {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("session id: %w", err))
	}

	livenessResult, authentication, err := marshalResults(session)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	query := `
		INSERT INTO liveness_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.pool.Exec(ctx, query,
		id,
		session.SubjectReference,
		string(session.ChallengeType),
		string(session.Status),
		session.Steps.LivenessVerified,
		session.Steps.FaceAuthenticated,
		session.Attempts.Liveness,
		session.Attempts.Authentication,
		session.MaxAttempts,
		livenessResult,
		authentication,
		nullableString(session.AuthToken),
		session.ValidUntil,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSessionExists
		}
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by ID
func (r *PostgresSessionStore) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}

	query := `SELECT ` + sessionColumns + ` FROM liveness_sessions WHERE id = $1`

	session, err := scanSession(r.pool.QueryRow(ctx, query, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return session, nil
}

// Update locks the row, applies fn and writes the mutable columns back.
func (r *PostgresSessionStore) Update(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("update session: begin: %w", err)
	}

	query := `SELECT ` + sessionColumns + ` FROM liveness_sessions WHERE id = $1 FOR UPDATE`

	session, err := scanSession(tx.QueryRow(ctx, query, uid))
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("update session: lock: %w", err)
	}

	if err := fn(session); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	livenessResult, authentication, err := marshalResults(session)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("update session: %w", err)
	}

	update := `
		UPDATE liveness_sessions
		SET status = $2, liveness_verified = $3, face_authenticated = $4,
			liveness_attempts = $5, authentication_attempts = $6,
			liveness_result = $7, authentication = $8, auth_token = $9, valid_until = $10
		WHERE id = $1
	`

	_, err = tx.Exec(ctx, update,
		uid,
		string(session.Status),
		session.Steps.LivenessVerified,
		session.Steps.FaceAuthenticated,
		session.Attempts.Liveness,
		session.Attempts.Authentication,
		livenessResult,
		authentication,
		nullableString(session.AuthToken),
		session.ValidUntil,
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("update session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("update session: commit: %w", err)
	}

	return session, nil
}

// Delete removes a session by ID
func (r *PostgresSessionStore) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return domain.ErrSessionNotFound
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM liveness_sessions WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}

	return nil
}

// DeleteExpired removes all sessions past their expiry and returns their IDs
func (r *PostgresSessionStore) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		DELETE FROM liveness_sessions
		WHERE expires_at < $1
		RETURNING id
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("delete expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("delete expired sessions: scan: %w", err)
		}
		ids = append(ids, id.String())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete expired sessions: %w", err)
	}

	return ids, nil
}

// Stats counts sessions by state as of now
func (r *PostgresSessionStore) Stats(ctx context.Context, now time.Time) (domain.SessionStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE expires_at >= $1),
			COUNT(*) FILTER (WHERE expires_at < $1),
			COUNT(*) FILTER (WHERE status = 'authenticated'),
			COUNT(*) FILTER (WHERE status IN ('liveness_failed', 'authentication_failed'))
		FROM liveness_sessions
	`

	var stats domain.SessionStats
	err := r.pool.QueryRow(ctx, query, now).Scan(
		&stats.Total,
		&stats.Active,
		&stats.Expired,
		&stats.Authenticated,
		&stats.Failed,
	)
	if err != nil {
		return domain.SessionStats{}, fmt.Errorf("session stats: %w", err)
	}

	return stats, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		session        domain.Session
		id             uuid.UUID
		challengeType  string
		status         string
		livenessResult []byte
		authentication []byte
		authToken      *string
	)

	err := row.Scan(
		&id,
		&session.SubjectReference,
		&challengeType,
		&status,
		&session.Steps.LivenessVerified,
		&session.Steps.FaceAuthenticated,
		&session.Attempts.Liveness,
		&session.Attempts.Authentication,
		&session.MaxAttempts,
		&livenessResult,
		&authentication,
		&authToken,
		&session.ValidUntil,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	session.ID = id.String()
	session.ChallengeType = domain.ChallengeType(challengeType)
	session.Status = domain.SessionStatus(status)
	if authToken != nil {
		session.AuthToken = *authToken
	}

	if len(livenessResult) > 0 {
		session.LivenessResult = &domain.LivenessResult{}
		if err := json.Unmarshal(livenessResult, session.LivenessResult); err != nil {
			return nil, fmt.Errorf("decode liveness result: %w", err)
		}
	}
	if len(authentication) > 0 {
		session.Authentication = &domain.AuthenticationResult{}
		if err := json.Unmarshal(authentication, session.Authentication); err != nil {
			return nil, fmt.Errorf("decode authentication: %w", err)
		}
	}

	return &session, nil
}

func marshalResults(session *domain.Session) (livenessResult, authentication []byte, err error) {
	if session.LivenessResult != nil {
		if livenessResult, err = json.Marshal(session.LivenessResult); err != nil {
			return nil, nil, fmt.Errorf("encode liveness result: %w", err)
		}
	}
	if session.Authentication != nil {
		if authentication, err = json.Marshal(session.Authentication); err != nil {
			return nil, nil, fmt.Errorf("encode authentication: %w", err)
		}
	}
	return livenessResult, authentication, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
