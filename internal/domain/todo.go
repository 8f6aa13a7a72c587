package domain

import "time"

// Todo is the domain entity. It does not depend on gin, the SQL driver or Redis.
type Todo struct {
	ID        int64
	Task      string
	Completed bool
	Deadline  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
