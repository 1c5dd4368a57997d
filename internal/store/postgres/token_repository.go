package postgres

import (
	"context"
	"errors"
	"fmt"

	"saralpe/internal/domain/token"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenRepository is an append-only token log; the latest row of its scope is
// the current token. A single INSERT is atomic, so a reader sees either the
// previous row or the new one.
type TokenRepository struct {
	db    *pgxpool.Pool
	scope token.Scope
}

func NewTokenRepository(db *pgxpool.Pool, scope token.Scope) *TokenRepository {
	return &TokenRepository{db: db, scope: scope}
}

// Get returns the most recently stored token of the scope, or nil when there is none.
func (r *TokenRepository) Get(ctx context.Context) (*token.AuthToken, error) {
	var t token.AuthToken
	err := r.db.QueryRow(ctx, `
		SELECT token, issued_at, expires_at
		FROM provider_auth_tokens
		WHERE scope = $1
		ORDER BY id DESC
		LIMIT 1`, r.scope).Scan(&t.Value, &t.IssuedAt, &t.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load current token: %w", err)
	}
	return &t, nil
}

// Put supersedes the current token. Older rows are kept for audit.
func (r *TokenRepository) Put(ctx context.Context, t *token.AuthToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO provider_auth_tokens (scope, token, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)`,
		r.scope, t.Value, t.IssuedAt, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}
