package progress

import (
	"fmt"
	"time"

	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

// UnlockBadge выдаёт значок из каталога.
//
// Неизвестный ID - ошибка валидации, снапшот не меняется.
// Повторная выдача - no-op без начисления очков (unlocked == false).
// Иначе значок добавляется, начисляются его очки и пересчитывается уровень.
func (s *Snapshot) UnlockBadge(c *Catalog, id shared.BadgeID, now time.Time) (badge UnlockedBadge, unlocked bool, err error) {
	def, ok := c.Badge(id)
	if !ok {
		return UnlockedBadge{}, false, shared.WrapError("progress", "UnlockBadge", shared.ErrUnknownBadge,
			fmt.Sprintf("badge %q", id), nil)
	}

	for _, b := range s.Badges {
		if b.ID == id {
			return b, false, nil
		}
	}

	badge = UnlockedBadge{
		Badge:      def,
		IsUnlocked: true,
		UnlockedAt: now.UTC(),
	}
	s.Badges = append(s.Badges, badge)

	if _, err := s.AddPoints(c.Levels(), def.Points); err != nil {
		return UnlockedBadge{}, false, err
	}
	return badge, true, nil
}
