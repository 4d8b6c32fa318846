// service оркестрирует сценарии интерфейса поверх auth.Controller
// и session.Manager: вход с валидацией формы, генерацию share-ссылки
// с однократным повтором после refresh и просмотр ростера с фильтром.
//
// Ошибки, предназначенные для показа пользователю, несут готовый текст
// (см. UserMessage). Транспорт решает только, как их отрисовать.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pribylovaa/roster-share/internal/metrics"
	"github.com/pribylovaa/roster-share/internal/models"
	"github.com/pribylovaa/roster-share/internal/session"
)

var (
	// ErrValidation - не заполнены логин или пароль. До сети не доходит.
	ErrValidation = errors.New("Username and password are required.")

	// ErrNotAuthenticated - нет текущего access-токена.
	ErrNotAuthenticated = errors.New("Not authenticated. Please log in.")

	// ErrShareTokenMissing - в URL share-страницы нет токена.
	ErrShareTokenMissing = errors.New("No share token provided in the URL.")
)

// Сообщения share-страницы.
const (
	MsgNoData     = "No data found for this share link."
	MsgNoMatches  = "No students match your filter criteria."
	MsgLoadFailed = "Failed to load data. The link may be invalid or expired."
)

// Authenticator - операции auth.Controller, нужные сервису.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*models.TokenPair, error)
	GenerateShareLink(ctx context.Context, accessToken string) (string, error)
	Logout(ctx context.Context) error
}

// Session - операции session.Manager, нужные сервису.
type Session interface {
	Establish(ctx context.Context, pair models.TokenPair) error
	Tokens() (models.TokenPair, bool)
	RefreshFor(ctx context.Context, trigger string) (*models.TokenPair, error)
	Expire(ctx context.Context, reason string) error
	Logout(ctx context.Context) error
	Snapshot() session.Snapshot
}

// RosterFetcher получает ростер по share-токену.
type RosterFetcher interface {
	SharedRoster(ctx context.Context, shareToken string) ([]models.Student, error)
}

// Service - сценарии интерфейса.
type Service struct {
	auth     Authenticator
	session  Session
	roster   RosterFetcher
	views    *viewCache
	validate *validator.Validate
	metrics  *metrics.Metrics
}

// DefaultViewTTL - сколько живёт загруженный ростер одной share-страницы.
const DefaultViewTTL = 5 * time.Minute

// New создаёт Service. viewTTL <= 0 - DefaultViewTTL.
func New(a Authenticator, s Session, r RosterFetcher, viewTTL time.Duration, m *metrics.Metrics) *Service {
	if viewTTL <= 0 {
		viewTTL = DefaultViewTTL
	}

	return &Service{
		auth:     a,
		session:  s,
		roster:   r,
		views:    newViewCache(viewTTL, time.Now),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  m,
	}
}

// Snapshot - текущее состояние сессии.
func (s *Service) Snapshot() session.Snapshot {
	return s.session.Snapshot()
}

// Logout завершает сессию. Удалённый сервис не вызывается.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.auth.Logout(ctx); err != nil {
		return err
	}

	return s.session.Logout(ctx)
}
