// apitest поднимает in-process фейк удалённого сервиса ростеров для тестов.
//
// Поддерживает четыре эндпоинта контракта (POST /login, POST /refresh,
// POST /share, GET /share), подписывает access-токены HS256 и позволяет
// подменять ответы, чтобы воспроизводить истечение сессии и сбои.
package apitest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/roster-share/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultUsername = "admin"
	DefaultPassword = "admin"
	DefaultUserID   = "42"
)

// Failure - заранее заданный ответ с ошибкой.
type Failure struct {
	Status int
	Body   string
}

// Server - фейк удалённого сервиса.
type Server struct {
	*httptest.Server

	secret    []byte
	username  string
	passHash  []byte
	accessTTL time.Duration
	now       func() time.Time

	mu            sync.Mutex
	refreshTokens map[string]string // refresh -> user id
	shareTokens   map[string]struct{}
	roster        []models.Student
	calls         map[string]int

	shareFailures   []Failure
	refreshFailures []Failure
	shareValue      any
	shareValueSet   bool
	loginPair       *models.TokenPair
}

// Option настраивает Server.
type Option func(*Server)

// WithAccessTTL задаёт срок жизни выдаваемых access-токенов.
func WithAccessTTL(d time.Duration) Option { return func(s *Server) { s.accessTTL = d } }

// WithNow подменяет часы сервера (выпуск и проверка exp).
func WithNow(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// WithRoster задаёт ростер, отдаваемый по GET /share.
func WithRoster(students []models.Student) Option {
	return func(s *Server) { s.roster = append([]models.Student(nil), students...) }
}

// WithCredentials задаёт учётные данные администратора.
func WithCredentials(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.passHash = mustHash(password)
	}
}

// New запускает фейк и регистрирует его остановку в t.Cleanup.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		secret:        []byte("apitest-secret"),
		username:      DefaultUsername,
		passHash:      mustHash(DefaultPassword),
		accessTTL:     15 * time.Minute,
		now:           time.Now,
		refreshTokens: make(map[string]string),
		shareTokens:   make(map[string]struct{}),
		calls:         make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Post("/login", s.handleLogin)
	r.Post("/refresh", s.handleRefresh)
	r.Post("/share", s.handleCreateShare)
	r.Get("/share", s.handleGetShare)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)

	return s
}

func mustHash(password string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	return h
}

// SignAccess подписывает access-токен с заданными claims.
// Пустой userID не попадает в claims.
func (s *Server) SignAccess(userID string, exp time.Time) string {
	claims := jwt.MapClaims{"exp": exp.Unix(), "iat": s.now().Unix()}
	if userID != "" {
		claims["user_id"] = userID
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}

	return token
}

// IssuePair выпускает пару и регистрирует refresh-токен как действующий.
func (s *Server) IssuePair(userID string, exp time.Time) models.TokenPair {
	refresh := uuid.NewString()

	s.mu.Lock()
	s.refreshTokens[refresh] = userID
	s.mu.Unlock()

	return models.TokenPair{AccessToken: s.SignAccess(userID, exp), RefreshToken: refresh}
}

// IssueShareToken регистрирует share-токен, как если бы его выдал POST /share.
func (s *Server) IssueShareToken() string {
	token := uuid.NewString()

	s.mu.Lock()
	s.shareTokens[token] = struct{}{}
	s.mu.Unlock()

	return token
}

// FailShare ставит в очередь ответы с ошибкой для POST /share.
func (s *Server) FailShare(f ...Failure) {
	s.mu.Lock()
	s.shareFailures = append(s.shareFailures, f...)
	s.mu.Unlock()
}

// FailRefresh ставит в очередь ответы с ошибкой для POST /refresh.
func (s *Server) FailRefresh(f ...Failure) {
	s.mu.Lock()
	s.refreshFailures = append(s.refreshFailures, f...)
	s.mu.Unlock()
}

// SetShareTokenValue подменяет значение shareToken в ответе POST /share
// (например, число или пустую строку).
func (s *Server) SetShareTokenValue(v any) {
	s.mu.Lock()
	s.shareValue, s.shareValueSet = v, true
	s.mu.Unlock()
}

// SetLoginPair подменяет пару, которую вернёт успешный POST /login.
func (s *Server) SetLoginPair(pair models.TokenPair) {
	s.mu.Lock()
	s.loginPair = &pair
	s.mu.Unlock()
}

// Calls - число обращений к "METHOD /path".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[route]
}

func (s *Server) count(r *http.Request) {
	s.mu.Lock()
	s.calls[r.Method+" "+r.URL.Path]++
	s.mu.Unlock()
}

func popFailure(q *[]Failure) (Failure, bool) {
	if len(*q) == 0 {
		return Failure{}, false
	}
	f := (*q)[0]
	*q = (*q)[1:]

	return f, true
}

func (s *Server) issueLocked(userID string) models.TokenPair {
	refresh := uuid.NewString()
	s.refreshTokens[refresh] = userID

	return models.TokenPair{
		AccessToken:  s.SignAccess(userID, s.now().Add(s.accessTTL)),
		RefreshToken: refresh,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.count(r)

	var in models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}

	if in.Username != s.username || bcrypt.CompareHashAndPassword(s.passHash, []byte(in.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}

	s.mu.Lock()
	var pair models.TokenPair
	if s.loginPair != nil {
		pair = *s.loginPair
	} else {
		pair = s.issueLocked(DefaultUserID)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.count(r)

	s.mu.Lock()
	f, failed := popFailure(&s.refreshFailures)
	s.mu.Unlock()
	if failed {
		writeRaw(w, f)
		return
	}

	var in models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.refreshTokens[in.RefreshToken]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
		return
	}
	// Ротация: старый refresh больше не действует.
	delete(s.refreshTokens, in.RefreshToken)

	writeJSON(w, http.StatusOK, s.issueLocked(userID))
}

func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	s.count(r)

	s.mu.Lock()
	f, failed := popFailure(&s.shareFailures)
	s.mu.Unlock()
	if failed {
		writeRaw(w, f)
		return
	}

	bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || bearer == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
		return
	}

	if err := s.verifyAccess(bearer); err != nil {
		msg := "Invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "Token has expired"
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": msg})
		return
	}

	s.mu.Lock()
	var value any
	if s.shareValueSet {
		value = s.shareValue
	} else {
		token := uuid.NewString()
		s.shareTokens[token] = struct{}{}
		value = token
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"shareToken": value})
}

func (s *Server) handleGetShare(w http.ResponseWriter, r *http.Request) {
	s.count(r)

	token := r.URL.Query().Get("shareToken")

	s.mu.Lock()
	_, ok := s.shareTokens[token]
	roster := append([]models.Student{}, s.roster...)
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Share link not found or expired"})
		return
	}

	writeJSON(w, http.StatusOK, roster)
}

func (s *Server) verifyAccess(raw string) error {
	_, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)

	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, f Failure) {
	if strings.HasPrefix(strings.TrimSpace(f.Body), "{") {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(f.Status)
	_, _ = w.Write([]byte(f.Body))
}
