// apiclient выполняет HTTP/JSON-вызовы удалённого сервиса ростеров.
//
// Клиент не делает ретраев, не ставит собственных таймаутов и не применяет
// backoff: любая ошибка сразу возвращается вызывающему. Дедлайн задаёт
// только контекст вызова.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pribylovaa/roster-share/internal/models"
)

const (
	EndpointLogin   = "/login"
	EndpointRefresh = "/refresh"
	EndpointShare   = "/share"
)

// Client - HTTP-клиент удалённого сервиса.
type Client struct {
	baseURL string
	http    *http.Client
}

// New создаёт клиента. Если hc == nil, используется http.Client с транспортом
// по умолчанию, обёрнутым в NewTransport.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Transport: NewTransport(nil, nil, nil)}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

// Call выполняет запрос и декодирует JSON-ответ в out (если out != nil).
// body сериализуется в JSON, bearer добавляется как Authorization: Bearer.
func (c *Client) Call(ctx context.Context, method, endpoint string, body any, bearer string, out any) error {
	const op = "apiclient.Call"

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w: %w", op, ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, payload)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrDecode, err)
	}

	return nil
}

// Login - POST /login.
func (c *Client) Login(ctx context.Context, username, password string) (*models.TokenPair, error) {
	var pair models.TokenPair
	err := c.Call(ctx, http.MethodPost, EndpointLogin,
		models.LoginRequest{Username: username, Password: password}, "", &pair)
	if err != nil {
		return nil, err
	}

	return &pair, nil
}

// Refresh - POST /refresh.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	var pair models.TokenPair
	err := c.Call(ctx, http.MethodPost, EndpointRefresh,
		models.RefreshRequest{RefreshToken: refreshToken}, "", &pair)
	if err != nil {
		return nil, err
	}

	return &pair, nil
}

// CreateShareToken - POST /share с Bearer access-токеном.
// Значение shareToken не проверяется: это забота вызывающего.
func (c *Client) CreateShareToken(ctx context.Context, accessToken string) (*models.ShareTokenResponse, error) {
	var out models.ShareTokenResponse
	if err := c.Call(ctx, http.MethodPost, EndpointShare, nil, accessToken, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// SharedRoster - GET /share?shareToken=..., без авторизации.
func (c *Client) SharedRoster(ctx context.Context, shareToken string) ([]models.Student, error) {
	const op = "apiclient.SharedRoster"

	if strings.TrimSpace(shareToken) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrShareTokenRequired)
	}

	endpoint := EndpointShare + "?" + url.Values{"shareToken": {shareToken}}.Encode()

	var students []models.Student
	if err := c.Call(ctx, http.MethodGet, endpoint, nil, "", &students); err != nil {
		return nil, err
	}

	return students, nil
}
