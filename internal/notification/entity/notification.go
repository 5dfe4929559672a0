package entity

import (
	"time"

	"github.com/shandysiswandi/stockmaster/internal/pkg/valueobject"
)

// BroadcastUserID addresses every user.
const BroadcastUserID int64 = 0

type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

func (l Level) String() string { return string(l) }

type Type string

const (
	TypeWelcome       Type = "welcome"
	TypeSecurity      Type = "security"
	TypeSystem        Type = "system"
	TypeStockLow      Type = "stock_low"
	TypeOrderReceived Type = "order_received"
)

func (t Type) String() string { return string(t) }

type Notification struct {
	ID        int64
	UserID    int64
	Type      Type
	Title     string
	Message   string
	EntityRef valueobject.JSONMap
	Level     Level
	Read      bool
	ReadAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
