package service

import (
	"context"
	"fmt"
	"log/slog"

	logctx "github.com/pribylovaa/roster-share/internal/pkg/log"
	"github.com/pribylovaa/roster-share/internal/pkg/redact"
)

type loginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// Login проверяет форму, получает пару и устанавливает сессию.
func (s *Service) Login(ctx context.Context, username, password string) error {
	const op = "service.Login"

	form := loginForm{Username: username, Password: password}
	if err := s.validate.StructCtx(ctx, form); err != nil {
		return fmt.Errorf("%s: %w", op, ErrValidation)
	}

	log := logctx.From(ctx).With(slog.String("op", op), slog.String("username", redact.Username(form.Username)))

	pair, err := s.auth.Login(ctx, form.Username, form.Password)
	if err != nil {
		log.Info("login_failed", slog.String("err", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.session.Establish(ctx, *pair); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("login_ok")

	return nil
}
