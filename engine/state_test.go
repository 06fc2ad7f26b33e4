package engine

import "testing"

func TestGameStateCloneDeepCopiesSnakeBodies(t *testing.T) {
	gs := NewGameState(20, 20)
	id := NewPlayerID()
	gs.Snakes[id] = &Snake{PlayerID: id, Body: []Position{{X: 1, Y: 1}}, Alive: true}
	gs.joinOrder = []PlayerID{id}

	clone := gs.Clone()
	clone.Snakes[id].Body[0] = Position{X: 9, Y: 9}
	clone.Snakes[id].Alive = false

	if gs.Snakes[id].Body[0] != (Position{X: 1, Y: 1}) {
		t.Error("mutating a clone's snake body should not affect the original")
	}
	if !gs.Snakes[id].Alive {
		t.Error("mutating a clone's Alive flag should not affect the original")
	}
}

func TestGameStateCloneCopiesFruitsAndWinner(t *testing.T) {
	gs := NewGameState(20, 20)
	gs.fruitSlots = []*Fruit{{Position: Position{X: 3, Y: 3}}}
	winner := NewPlayerID()
	gs.Winner = &winner

	clone := gs.Clone()
	clone.fruitSlots[0].Position = Position{X: 7, Y: 7}
	*clone.Winner = NewPlayerID()

	if gs.fruitSlots[0].Position != (Position{X: 3, Y: 3}) {
		t.Error("mutating a clone's fruit should not affect the original")
	}
	if *gs.Winner != winner {
		t.Error("mutating a clone's Winner should not affect the original")
	}
}

func TestSortedAliveIDsIsStableAcrossCalls(t *testing.T) {
	gs := NewGameState(20, 20)
	ids := make([]PlayerID, 5)
	for i := range ids {
		ids[i] = NewPlayerID()
		gs.Snakes[ids[i]] = &Snake{PlayerID: ids[i], Alive: true, Body: []Position{{X: i, Y: 0}}}
	}

	first := gs.sortedAliveIDs()
	second := gs.sortedAliveIDs()
	if len(first) != len(second) {
		t.Fatalf("len mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("sortedAliveIDs() is not stable at index %d: %v vs %v", i, first[i], second[i])
		}
	}
	for i := 1; i < len(first); i++ {
		if compareIDs(first[i-1], first[i]) >= 0 {
			t.Errorf("sortedAliveIDs() not in ascending order at index %d", i)
		}
	}
}

func TestSortedAliveIDsExcludesDeadSnakes(t *testing.T) {
	gs := NewGameState(20, 20)
	alive := NewPlayerID()
	dead := NewPlayerID()
	gs.Snakes[alive] = &Snake{PlayerID: alive, Alive: true, Body: []Position{{X: 0, Y: 0}}}
	gs.Snakes[dead] = &Snake{PlayerID: dead, Alive: false, Body: []Position{{X: 1, Y: 0}}}

	ids := gs.sortedAliveIDs()
	if len(ids) != 1 || ids[0] != alive {
		t.Errorf("sortedAliveIDs() = %v, want only %v", ids, alive)
	}
}

func TestOccupiedCellsIncludesDeadBodiesAndFruit(t *testing.T) {
	gs := NewGameState(20, 20)
	dead := NewPlayerID()
	gs.Snakes[dead] = &Snake{PlayerID: dead, Alive: false, Body: []Position{{X: 2, Y: 2}}}
	gs.fruitSlots = []*Fruit{{Position: Position{X: 4, Y: 4}}}

	occ := gs.occupiedCells()
	if !occ[(Position{X: 2, Y: 2})] {
		t.Error("occupiedCells should include a dead snake's body")
	}
	if !occ[(Position{X: 4, Y: 4})] {
		t.Error("occupiedCells should include fruit positions")
	}
}
