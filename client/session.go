package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gymdesk/gymdesk_backend/models"
)

// Storage keys for the persisted session. Both must be present together
// for the session to count as authenticated.
const (
	storageKeyToken    = "token"
	storageKeyIdentity = "identity"
)

// Identity is the authenticated user's profile as the dashboards see it
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// Storage is the durable key-value store a session survives restarts in
type Storage interface {
	Load(key string) (string, error)
	Save(key, value string) error
	Delete(key string) error
}

// ErrNotFound is returned by a Storage when the key has no value
var ErrNotFound = errors.New("key not found")

// FileStorage keeps each key in its own JSON-safe file under a directory
type FileStorage struct {
	dir string
	mu  sync.Mutex
}

// NewFileStorage creates the directory if needed
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (fs *FileStorage) path(key string) string {
	return filepath.Join(fs.dir, key+".json")
}

func (fs *FileStorage) Load(key string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	data, err := os.ReadFile(fs.path(key))
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (fs *FileStorage) Save(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return os.WriteFile(fs.path(key), []byte(value), 0600)
}

func (fs *FileStorage) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	err := os.Remove(fs.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemoryStorage is an in-memory Storage, used by tests and throwaway sessions
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (ms *MemoryStorage) Load(key string) (string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	value, ok := ms.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (ms *MemoryStorage) Save(key, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.values[key] = value
	return nil
}

func (ms *MemoryStorage) Delete(key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.values, key)
	return nil
}

// GuardAction is the outcome of a route guard check
type GuardAction int

const (
	AllowRender GuardAction = iota
	RedirectLogin
	RedirectTo
)

// Decision carries the guard outcome and, for RedirectTo, the landing path
type Decision struct {
	Action GuardAction
	Path   string
}

// DefaultLandingPath maps a role to its home view. Any role without an
// explicit mapping lands on the admin dashboard; product has been asked to
// confirm that fallback (see DESIGN.md).
func DefaultLandingPath(role string) string {
	if role == models.RoleReception {
		return "/reception"
	}
	return "/admin"
}

// SessionStore is the single owner of the persisted token and identity.
// Every other component reads authentication state through it; none of
// them touch the Storage directly.
type SessionStore struct {
	storage Storage

	mu            sync.RWMutex
	token         string
	identity      Identity
	authenticated bool
	generation    uint64

	subsMu sync.Mutex
	subs   map[int]func(authenticated bool)
	nextID int
}

// NewSessionStore restores any persisted session from storage. Absent or
// malformed values leave the store unauthenticated; a token without an
// identity (or the reverse) also counts as unauthenticated.
func NewSessionStore(storage Storage) *SessionStore {
	s := &SessionStore{
		storage: storage,
		subs:    make(map[int]func(bool)),
	}

	token, tokenErr := storage.Load(storageKeyToken)
	raw, identityErr := storage.Load(storageKeyIdentity)
	if tokenErr != nil || identityErr != nil || token == "" {
		return s
	}
	var identity Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil || identity.ID == "" {
		return s
	}

	s.token = token
	s.identity = identity
	s.authenticated = true
	return s
}

// Login persists the token and identity and flips the store to
// authenticated. The token is not validated here; the login flow has
// already confirmed it with the server.
func (s *SessionStore) Login(token string, identity Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to serialize identity: %w", err)
	}
	if err := s.storage.Save(storageKeyToken, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	if err := s.storage.Save(storageKeyIdentity, string(raw)); err != nil {
		return fmt.Errorf("failed to persist identity: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.identity = identity
	s.authenticated = true
	s.generation++
	s.mu.Unlock()

	s.notify(true)
	return nil
}

// Logout clears the persisted session and notifies subscribers. The Event
// Channel observes this to close its connection and drop cached entries.
func (s *SessionStore) Logout() {
	s.storage.Delete(storageKeyToken)
	s.storage.Delete(storageKeyIdentity)

	s.mu.Lock()
	s.token = ""
	s.identity = Identity{}
	s.authenticated = false
	s.generation++
	s.mu.Unlock()

	s.notify(false)
}

// Current returns the identity and token of the active session. ok is
// false when unauthenticated.
func (s *SessionStore) Current() (Identity, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.token, s.authenticated
}

// Token returns the bearer token, empty when unauthenticated
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Generation increases on every login and logout. Async work started under
// one session compares generations before applying its result, so a fetch
// begun before a logout can never bleed into the next identity's view.
func (s *SessionStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Guard decides whether the current session may render a view gated to the
// given roles. Unauthenticated sessions go to login; wrong-role sessions go
// to their own landing view, never to the gated one.
func (s *SessionStore) Guard(requiredRoles ...string) Decision {
	identity, _, ok := s.Current()
	if !ok {
		return Decision{Action: RedirectLogin, Path: "/login"}
	}
	if len(requiredRoles) == 0 {
		return Decision{Action: AllowRender}
	}
	for _, role := range requiredRoles {
		if identity.Role == role {
			return Decision{Action: AllowRender}
		}
	}
	return Decision{Action: RedirectTo, Path: DefaultLandingPath(identity.Role)}
}

// OnChange registers a callback invoked on every login and logout. The
// returned function removes the subscription.
func (s *SessionStore) OnChange(fn func(authenticated bool)) func() {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *SessionStore) notify(authenticated bool) {
	s.subsMu.Lock()
	fns := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(authenticated)
	}
}
