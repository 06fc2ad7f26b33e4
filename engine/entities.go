package engine

import "github.com/google/uuid"

// PlayerID stably identifies a player across the lobby and the match.
type PlayerID = uuid.UUID

// Snake is a player's body on the grid. Body[0] is the head; Body[len-1] is
// the tail end.
type Snake struct {
	PlayerID      PlayerID
	Name          string
	Color         string
	Body          []Position
	Alive         bool
	PendingGrowth int
	LastDirection Direction
	hasMoved      bool // LastDirection is unset before the first move
}

func newSnake(id PlayerID, name, color string, start Position) *Snake {
	return &Snake{
		PlayerID: id,
		Name:     name,
		Color:    color,
		Body:     []Position{start},
		Alive:    true,
	}
}

// Head returns the snake's head position.
func (s *Snake) Head() Position {
	return s.Body[0]
}

// Length reports the snake's logical length.
func (s *Snake) Length() int {
	return len(s.Body)
}

// ValidDirections returns directions that are not the reverse of
// LastDirection, per spec.md §4.1.1 step 1. A snake shorter than length 2
// (or one that has never moved) may move anywhere.
func (s *Snake) ValidDirections() []Direction {
	if !s.hasMoved || s.Length() < 2 {
		return []Direction{Up, Down, Left, Right}
	}
	reverse := s.LastDirection.Opposite()
	dirs := make([]Direction, 0, 3)
	for _, d := range cyclicOrder {
		if d != reverse {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// IsLegal reports whether dir is allowed given the snake's current state —
// not the exact reverse of LastDirection once length >= 2 (spec.md §4.1.1
// step 1).
func (s *Snake) IsLegal(dir Direction) bool {
	if !s.hasMoved || s.Length() < 2 {
		return true
	}
	return dir != s.LastDirection.Opposite()
}

// ResolveDirection substitutes an illegal or absent direction: prefer
// LastDirection if legal, else the first legal direction in cyclic order
// (spec.md §4.1.1 step 1, §4.2 step 3). Both the engine (as a last-resort
// safety net) and the match scheduler (as the primary substitution path)
// call this so the two layers never disagree.
func (s *Snake) ResolveDirection(requested Direction, requestedOK bool) Direction {
	if requestedOK && s.IsLegal(requested) {
		return requested
	}
	if s.hasMoved && s.IsLegal(s.LastDirection) {
		return s.LastDirection
	}
	for _, d := range cyclicOrder {
		if s.IsLegal(d) {
			return d
		}
	}
	return Up
}

// Fruit is a position on the grid, consumed whole by head collision.
type Fruit struct {
	Position Position
}
