// auth связывает удалённый сервис и хранилище токенов:
// вход, обновление пары, генерация share-ссылки и выход.
//
// Controller не держит состояния сессии: источник правды о паре токенов -
// tokenstore.Store, а in-memory состояние ведёт session.Manager.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pribylovaa/roster-share/internal/apiclient"
	"github.com/pribylovaa/roster-share/internal/models"
	"github.com/pribylovaa/roster-share/internal/tokenstore"
)

var (
	// ErrSessionExpired - refresh отклонён как недействительный/просроченный.
	// Текст показывается пользователю как есть.
	ErrSessionExpired = errors.New("Your session has expired or is invalid. Please log in again.")

	// ErrInvalidShareToken - сервер вернул пустой или нестроковый shareToken.
	ErrInvalidShareToken = errors.New("Received an invalid or empty share token string from the server.")

	// ErrAccessTokenRequired - генерация ссылки без access-токена.
	ErrAccessTokenRequired = errors.New("Access token is required to generate a share link.")
)

// API - вызовы удалённого сервиса, нужные контроллеру.
type API interface {
	Login(ctx context.Context, username, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	CreateShareToken(ctx context.Context, accessToken string) (*models.ShareTokenResponse, error)
}

// Controller выполняет операции аутентификации.
type Controller struct {
	api    API
	store  tokenstore.Store
	origin string
}

// New создаёт контроллер. origin - публичный адрес, с которого строятся
// share-ссылки (без завершающего "/").
func New(api API, store tokenstore.Store, origin string) *Controller {
	return &Controller{
		api:    api,
		store:  store,
		origin: strings.TrimRight(origin, "/"),
	}
}

// Login получает пару по логину/паролю и сохраняет её.
func (c *Controller) Login(ctx context.Context, username, password string) (*models.TokenPair, error) {
	const op = "auth.Login"

	pair, err := c.api.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := c.store.Save(ctx, *pair); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// Refresh обменивает refresh-токен на новую пару и сохраняет её.
//
// При любой ошибке хранилище очищается. Если отказ похож на
// недействительную сессию (401/403, "invalid token", "token has expired"),
// возвращается ошибка, оборачивающая ErrSessionExpired.
func (c *Controller) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "auth.Refresh"

	pair, err := c.api.Refresh(ctx, refreshToken)
	if err == nil {
		err = c.store.Save(ctx, *pair)
	}
	if err == nil {
		return pair, nil
	}

	// Очистка best-effort: исходная ошибка важнее.
	_ = c.store.Clear(ctx)

	if sessionRejected(err) {
		return nil, fmt.Errorf("%s: %w", op, ErrSessionExpired)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

func sessionRejected(err error) bool {
	switch apiclient.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "401") ||
		strings.Contains(msg, "403") ||
		strings.Contains(msg, "invalid token") ||
		strings.Contains(msg, "token has expired")
}

// GenerateShareLink запрашивает share-токен и строит ссылку
// <origin>/share/<token>.
func (c *Controller) GenerateShareLink(ctx context.Context, accessToken string) (string, error) {
	const op = "auth.GenerateShareLink"

	if accessToken == "" {
		return "", fmt.Errorf("%s: %w", op, ErrAccessTokenRequired)
	}

	resp, err := c.api.CreateShareToken(ctx, accessToken)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := shareTokenValue(resp)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return c.BuildShareLink(token), nil
}

func shareTokenValue(resp *models.ShareTokenResponse) (string, error) {
	if resp == nil {
		return "", ErrInvalidShareToken
	}

	s, ok := resp.ShareToken.(string)
	if !ok {
		return "", ErrInvalidShareToken
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidShareToken
	}

	return s, nil
}

// BuildShareLink строит ссылку для уже полученного share-токена.
func (c *Controller) BuildShareLink(shareToken string) string {
	return c.origin + "/share/" + shareToken
}

// Logout очищает хранилище. Удалённый сервис не вызывается.
func (c *Controller) Logout(ctx context.Context) error {
	const op = "auth.Logout"

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
