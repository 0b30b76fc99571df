package playback

import (
	"errors"
	"sync"

	"golang.org/x/oauth2"

	"github.com/ayusman/cookify/internal/store"
)

// ErrNoToken is returned by a TokenStore that holds no token.
var ErrNoToken = errors.New("no stored token")

// TokenStore persists the OAuth token between runs.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
	Delete() error
}

// DBTokenStore keeps one provider's token in the SQLite store.
type DBTokenStore struct {
	repo     *store.TokenRepository
	provider string
}

// NewDBTokenStore returns a TokenStore for provider backed by repo.
func NewDBTokenStore(repo *store.TokenRepository, provider string) *DBTokenStore {
	return &DBTokenStore{repo: repo, provider: provider}
}

// Load implements TokenStore.
func (s *DBTokenStore) Load() (*oauth2.Token, error) {
	t, err := s.repo.Load(s.provider)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}, nil
}

// Save implements TokenStore.
func (s *DBTokenStore) Save(tok *oauth2.Token) error {
	return s.repo.Save(&store.Token{
		Provider:     s.provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	})
}

// Delete implements TokenStore. Deleting a missing token is not an error.
func (s *DBTokenStore) Delete() error {
	if err := s.repo.Delete(s.provider); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// MemoryTokenStore keeps the token in memory only.
type MemoryTokenStore struct {
	mu  sync.Mutex
	tok *oauth2.Token
}

// Load implements TokenStore.
func (m *MemoryTokenStore) Load() (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tok == nil {
		return nil, ErrNoToken
	}
	tok := *m.tok
	return &tok, nil
}

// Save implements TokenStore.
func (m *MemoryTokenStore) Save(tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := *tok
	m.tok = &t
	return nil
}

// Delete implements TokenStore.
func (m *MemoryTokenStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = nil
	return nil
}

// savingTokenSource writes every newly refreshed token back to the store.
type savingTokenSource struct {
	mu     sync.Mutex
	src    oauth2.TokenSource
	store  TokenStore
	last   string
	onSave func(error)
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		err := s.store.Save(tok)
		if s.onSave != nil {
			s.onSave(err)
		}
	}
	return tok, nil
}
