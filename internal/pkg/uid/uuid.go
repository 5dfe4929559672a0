package uid

import "github.com/google/uuid"

// UUID produces UUIDv7 strings. They sort by creation time, which keeps
// correlation ids readable in log order.
type UUID struct {
	v7 func() (uuid.UUID, error)
}

func NewUUID() *UUID {
	return &UUID{v7: uuid.NewV7}
}

func (g *UUID) Generate() string {
	if id, err := g.v7(); err == nil {
		return id.String()
	}

	// random source failed for v7; v4 panics on the same condition
	return uuid.NewString()
}
