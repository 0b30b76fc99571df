package store

import (
	"database/sql"
	"errors"
	"time"
)

// Token is a stored OAuth token for one provider.
type Token struct {
	Provider     string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	UpdatedAt    time.Time
}

// TokenRepository stores OAuth tokens.
type TokenRepository struct {
	db *sql.DB
}

// Tokens returns the token repository for this store.
func (s *Store) Tokens() *TokenRepository {
	return &TokenRepository{db: s.db}
}

// Save inserts or replaces the token for t.Provider.
// An empty refresh token keeps the stored one, since providers usually
// omit it on refresh.
func (r *TokenRepository) Save(t *Token) error {
	t.UpdatedAt = time.Now()
	if t.TokenType == "" {
		t.TokenType = "Bearer"
	}

	var expiry any
	if !t.Expiry.IsZero() {
		expiry = t.Expiry
	}

	_, err := r.db.Exec(
		`INSERT INTO oauth_tokens (provider, access_token, refresh_token, token_type, expiry, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN oauth_tokens.refresh_token ELSE excluded.refresh_token END,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at`,
		t.Provider, t.AccessToken, t.RefreshToken, t.TokenType, expiry, t.UpdatedAt,
	)
	return err
}

// Load returns the token for provider, or ErrNotFound.
func (r *TokenRepository) Load(provider string) (*Token, error) {
	t := &Token{}
	var expiry sql.NullTime

	err := r.db.QueryRow(
		`SELECT provider, access_token, refresh_token, token_type, expiry, updated_at
		 FROM oauth_tokens WHERE provider = ?`,
		provider,
	).Scan(&t.Provider, &t.AccessToken, &t.RefreshToken, &t.TokenType, &expiry, &t.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if expiry.Valid {
		t.Expiry = expiry.Time
	}
	return t, nil
}

// Delete removes the token for provider.
func (r *TokenRepository) Delete(provider string) error {
	result, err := r.db.Exec(`DELETE FROM oauth_tokens WHERE provider = ?`, provider)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
