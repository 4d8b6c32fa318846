package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pribylovaa/roster-share/internal/models"
)

// RosterView - данные share-страницы после применения фильтра.
type RosterView struct {
	ShareToken string           `json:"shareToken"`
	Filter     string           `json:"filter,omitempty"`
	Total      int              `json:"total"`
	Students   []models.Student `json:"students"`
	// Message - пояснение вместо пустой таблицы.
	Message string `json:"message,omitempty"`
}

// SharedRoster загружает ростер по share-токену (без авторизации)
// и применяет фильтр по email. Загруженный набор кешируется на время
// просмотра, поэтому смена фильтра не вызывает повторного запроса.
func (s *Service) SharedRoster(ctx context.Context, shareToken, emailFilter string) (*RosterView, error) {
	const op = "service.SharedRoster"

	if strings.TrimSpace(shareToken) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrShareTokenMissing)
	}

	students, ok := s.views.get(shareToken)
	if !ok {
		fetched, err := s.roster.SharedRoster(ctx, shareToken)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		students = fetched
		s.views.put(shareToken, students)
	}

	view := &RosterView{
		ShareToken: shareToken,
		Filter:     emailFilter,
		Total:      len(students),
		Students:   FilterByEmail(students, emailFilter),
	}

	if view.Students == nil {
		view.Students = []models.Student{}
	}

	switch {
	case len(students) == 0:
		view.Message = MsgNoData
	case len(view.Students) == 0:
		view.Message = MsgNoMatches
	}

	return view, nil
}

// FilterByEmail оставляет записи, email которых содержит substr без учёта
// регистра. Фильтр не обрезается: пробел тоже часть подстроки.
// Пустой фильтр возвращает всё.
func FilterByEmail(students []models.Student, substr string) []models.Student {
	needle := strings.ToLower(substr)
	if needle == "" {
		return students
	}

	out := make([]models.Student, 0, len(students))
	for _, st := range students {
		if strings.Contains(strings.ToLower(st.Email), needle) {
			out = append(out, st)
		}
	}

	return out
}
