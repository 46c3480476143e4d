package game

import (
	"fmt"
	"time"

	"github.com/elementsduel/duel-server-go/internal/game/rules"
)

// LogCategory tags a log entry for display.
type LogCategory string

const (
	CategoryTurn   LogCategory = "turn"
	CategoryPlay   LogCategory = "play"
	CategoryMana   LogCategory = "mana"
	CategoryCombat LogCategory = "combat"
	CategoryEffect LogCategory = "effect"
	CategoryNotice LogCategory = "notice"
	CategorySystem LogCategory = "system"
)

// LogEntry is one line of the game feed.
type LogEntry struct {
	Seq      int         `json:"seq"`
	Turn     int         `json:"turn"`
	Side     rules.Side  `json:"side"`
	Category LogCategory `json:"category"`
	Text     string      `json:"text"`
	Time     time.Time   `json:"time"`
}

// addLog appends an entry, keeping only the most recent maxLogEntries.
func (s *session) addLog(side rules.Side, category LogCategory, format string, args ...interface{}) {
	s.seq++
	s.log = append(s.log, LogEntry{
		Seq:      s.seq,
		Turn:     s.turns.TurnNumber(),
		Side:     side,
		Category: category,
		Text:     fmt.Sprintf(format, args...),
		Time:     time.Now(),
	})
	if len(s.log) > maxLogEntries {
		s.log = s.log[len(s.log)-maxLogEntries:]
	}
}
