// session ведёт состояние аутентификации процесса: текущую пару токенов,
// таймер упреждающего обновления и single-flight refresh.
//
// Основные аспекты:
//   - Manager - единственный владелец состояния; создаётся явно в main
//     и закрывается через Close;
//   - каждая новая пара перевзводит таймер на exp - threshold, старые
//     срабатывания отбрасываются по номеру поколения;
//   - параллельные refresh (таймер + действие пользователя) схлопываются
//     в один вызов удалённого сервиса.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pribylovaa/roster-share/internal/auth"
	"github.com/pribylovaa/roster-share/internal/metrics"
	"github.com/pribylovaa/roster-share/internal/models"
	logctx "github.com/pribylovaa/roster-share/internal/pkg/log"
	"github.com/pribylovaa/roster-share/internal/tokenstore"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrMalformedToken - access-токен не разбирается или в нём нет exp.
	ErrMalformedToken = errors.New("malformed access token")
	// ErrNoSession - нет пары токенов, обновлять нечего.
	ErrNoSession = errors.New("no active session")
)

// Сообщения для пользователя, сохраняемые в Snapshot.AuthError.
const (
	MsgMalformedToken = "Failed to process login token."
	MsgRefreshFailed  = "Failed to refresh session. Please log in again."
)

// Триггеры refresh для метрик и логов.
const (
	TriggerTimer   = "timer"
	TriggerStartup = "startup"
	TriggerManual  = "manual"
	TriggerRetry   = "retry"
)

// DefaultRefreshThreshold - за сколько до exp обновлять пару.
const DefaultRefreshThreshold = 5 * time.Minute

// Refresher обменивает refresh-токен на новую пару (и сохраняет её).
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
}

// Snapshot - состояние сессии для отображения.
type Snapshot struct {
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"userId,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt,omitzero"`
	AuthError     string    `json:"authError,omitempty"`
}

// Manager - состояние сессии процесса.
type Manager struct {
	store     tokenstore.Store
	refresher Refresher
	clock     clock.Clock
	threshold time.Duration
	log       *slog.Logger
	metrics   *metrics.Metrics

	sf singleflight.Group

	// bg - контекст фоновых обновлений по таймеру; отменяется в Close.
	bg     context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pair    *models.TokenPair
	claims  models.AccessClaims
	authErr string
	timer   *clock.Timer
	gen     uint64
	closed  bool
}

// Option настраивает Manager.
type Option func(*Manager)

// WithClock подменяет часы (в тестах - clock.NewMock()).
func WithClock(c clock.Clock) Option { return func(m *Manager) { m.clock = c } }

// WithThreshold задаёт порог упреждающего обновления.
func WithThreshold(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.threshold = d
		}
	}
}

// WithLogger задаёт логгер фоновых операций.
func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.log = l } }

// WithMetrics подключает метрики refresh.
func WithMetrics(mt *metrics.Metrics) Option { return func(m *Manager) { m.metrics = mt } }

// New создаёт Manager. Состояние пустое до Init или Establish.
func New(store tokenstore.Store, refresher Refresher, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		refresher: refresher,
		clock:     clock.New(),
		threshold: DefaultRefreshThreshold,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.bg, m.cancel = context.WithCancel(logctx.Into(context.Background(), m.log))

	return m
}

// Init восстанавливает сессию из хранилища при старте.
//
//   - пары нет - сессия пустая;
//   - токен не разбирается - хранилище очищается;
//   - токен действителен - сессия восстанавливается, таймер взводится;
//   - токен истёк - сразу выполняется refresh.
//
// Неудачный refresh не считается ошибкой Init: сессия остаётся пустой.
func (m *Manager) Init(ctx context.Context) error {
	const op = "session.Init"

	pair, err := m.store.Load(ctx)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	claims, err := DecodeClaims(pair.AccessToken)
	if err != nil {
		logctx.From(ctx).Warn("stored_token_malformed", slog.String("op", op), slog.String("err", err.Error()))
		if err := m.store.Clear(ctx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	m.mu.Lock()
	m.pair, m.claims, m.authErr = pair, claims, ""
	expired := !claims.ExpiresAt.After(m.clock.Now())
	if !expired {
		m.armLocked(true)
	}
	m.mu.Unlock()

	if expired {
		if _, err := m.refresh(ctx, TriggerStartup); err != nil {
			logctx.From(ctx).Info("startup_refresh_failed", slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	return nil
}

// Establish принимает новую пару: проверяет токен, сохраняет пару,
// обновляет состояние и перевзводит таймер.
//
// Неразборчивый токен не сохраняется: хранилище и состояние очищаются,
// возвращается ошибка, оборачивающая ErrMalformedToken.
func (m *Manager) Establish(ctx context.Context, pair models.TokenPair) error {
	return m.establish(ctx, pair, true)
}

func (m *Manager) establish(ctx context.Context, pair models.TokenPair, immediate bool) error {
	const op = "session.Establish"

	claims, err := DecodeClaims(pair.AccessToken)
	if err == nil && pair.RefreshToken == "" {
		err = fmt.Errorf("%w: empty refresh token", ErrMalformedToken)
	}
	if err != nil {
		m.mu.Lock()
		m.resetLocked(MsgMalformedToken)
		m.mu.Unlock()

		if cerr := m.store.Clear(ctx); cerr != nil {
			return fmt.Errorf("%s: %w", op, errors.Join(err, cerr))
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := m.store.Save(ctx, pair); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p := pair
	m.pair, m.claims, m.authErr = &p, claims, ""
	m.armLocked(immediate)

	return nil
}

// armLocked перевзводит таймер на exp - threshold.
// Если момент уже наступил и immediate, refresh запускается сразу.
// Для пары, только что полученной через refresh, немедленный повтор
// не выполняется: иначе короткоживущие токены зациклят обновление.
func (m *Manager) armLocked(immediate bool) {
	m.stopLocked()
	if m.closed || m.pair == nil {
		return
	}

	gen := m.gen
	delay := m.claims.ExpiresAt.Sub(m.clock.Now()) - m.threshold

	if delay <= 0 {
		if immediate {
			go m.fire(gen)
		}
		return
	}

	m.timer = m.clock.AfterFunc(delay, func() { m.fire(gen) })
}

// stopLocked гасит текущий таймер и делает устаревшими уже запущенные.
func (m *Manager) stopLocked() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) resetLocked(authErr string) {
	m.stopLocked()
	m.pair = nil
	m.claims = models.AccessClaims{}
	m.authErr = authErr
}

func (m *Manager) fire(gen uint64) {
	m.mu.Lock()
	stale := m.closed || gen != m.gen
	m.mu.Unlock()
	if stale {
		return
	}

	if _, err := m.refresh(m.bg, TriggerTimer); err != nil {
		m.log.Info("scheduled_refresh_failed", slog.String("err", err.Error()))
	}
}

// Refresh обновляет пару. Параллельные вызовы разделяют один запрос.
func (m *Manager) Refresh(ctx context.Context) (*models.TokenPair, error) {
	return m.refresh(ctx, TriggerManual)
}

// RefreshFor - Refresh с явным триггером (для метрик).
func (m *Manager) RefreshFor(ctx context.Context, trigger string) (*models.TokenPair, error) {
	return m.refresh(ctx, trigger)
}

func (m *Manager) refresh(ctx context.Context, trigger string) (*models.TokenPair, error) {
	v, err, shared := m.sf.Do("refresh", func() (any, error) {
		return m.doRefresh(ctx, trigger)
	})
	if shared {
		logctx.From(ctx).Debug("refresh_shared", slog.String("trigger", trigger))
	}
	if err != nil {
		return nil, err
	}

	pair := v.(models.TokenPair)

	return &pair, nil
}

func (m *Manager) doRefresh(ctx context.Context, trigger string) (models.TokenPair, error) {
	const op = "session.Refresh"

	m.mu.Lock()
	var refreshToken string
	if m.pair != nil {
		refreshToken = m.pair.RefreshToken
	}
	if refreshToken == "" {
		m.resetLocked(m.authErr)
		m.mu.Unlock()
		m.metrics.RefreshDone(trigger, "no_session")
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	m.mu.Unlock()

	pair, err := m.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		msg := MsgRefreshFailed
		if errors.Is(err, auth.ErrSessionExpired) {
			msg = auth.ErrSessionExpired.Error()
		}

		m.mu.Lock()
		m.resetLocked(msg)
		m.mu.Unlock()

		m.metrics.RefreshDone(trigger, "error")
		logctx.From(ctx).Warn("refresh_failed",
			slog.String("op", op),
			slog.String("trigger", trigger),
			slog.String("err", err.Error()),
		)

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := m.establish(ctx, *pair, false); err != nil {
		m.metrics.RefreshDone(trigger, "error")
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	m.metrics.RefreshDone(trigger, "ok")
	logctx.From(ctx).Info("refresh_ok", slog.String("op", op), slog.String("trigger", trigger))

	return *pair, nil
}

// Tokens возвращает копию текущей пары без обращения к сети.
func (m *Manager) Tokens() (models.TokenPair, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pair == nil {
		return models.TokenPair{}, false
	}

	return *m.pair, true
}

// Snapshot возвращает состояние сессии.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Authenticated: m.pair != nil,
		UserID:        m.claims.UserID,
		ExpiresAt:     m.claims.ExpiresAt,
		AuthError:     m.authErr,
	}
}

// Expire принудительно завершает сессию с сообщением для пользователя.
func (m *Manager) Expire(ctx context.Context, reason string) error {
	const op = "session.Expire"

	m.mu.Lock()
	m.resetLocked(reason)
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Logout завершает сессию и очищает хранилище.
func (m *Manager) Logout(ctx context.Context) error {
	return m.Expire(ctx, "")
}

// Close гасит таймер и отменяет фоновые обновления. Хранилище не трогает.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.stopLocked()
	m.mu.Unlock()

	m.cancel()
}
