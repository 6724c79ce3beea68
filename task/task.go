package task

import (
	"errors"
	"fmt"
	"strings"

	"github.com/besen/fractiles/tile"
)

const (
	Tile Generation = iota
	Row
	Level
)

var (
	// ErrAllTasksHandedOut crosses the rpc boundary as plain text, compare with its Error() string
	ErrAllTasksHandedOut = errors.New("all tasks handed out")
	ErrNoMoreTasks       = errors.New("no more tasks")
	ErrUnknownGeneration = errors.New("unknown task generation")
)

// Generation decides how many tiles are packed into one task.
type Generation int

func (g Generation) String() string {
	switch g {
	case Tile:
		return "tile"
	case Row:
		return "row"
	case Level:
		return "level"
	}
	return fmt.Sprintf("Generation(%d)", int(g))
}

func (g Generation) MarshalText() ([]byte, error) {
	if g < Tile || g > Level {
		return nil, fmt.Errorf("%w: %d", ErrUnknownGeneration, int(g))
	}
	return []byte(g.String()), nil
}

func (g *Generation) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "tile":
		*g = Tile
	case "row":
		*g = Row
	case "level":
		*g = Level
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGeneration, text)
	}
	return nil
}

// Count returns how many tasks g produces for the zoom levels minZoom through maxZoom.
func Count(g Generation, minZoom int, maxZoom int) int {
	count := 0
	for z := minZoom; z <= maxZoom; z++ {
		switch g {
		case Tile:
			count += tile.LevelSize(z) * tile.LevelSize(z)
		case Row:
			count += tile.LevelSize(z)
		case Level:
			count++
		}
	}
	return count
}

type Task struct {
	CurrentTask   uint
	ID            uint
	Results       []Result
	Tasks         []tile.Coordinate
	WorkerAddress string
}

func NewTask(id uint) Task {
	return Task{
		ID: id,
	}
}

func (t *Task) String() string {
	output := "{Task "
	output += fmt.Sprintf("ID: %d ", t.ID)
	output += fmt.Sprintf("Result Count: %d ", len(t.Results))
	output += fmt.Sprintf("Task Count: %d}", len(t.Tasks))
	return output
}

func (t *Task) AddTaskForTile(coordinate tile.Coordinate) {
	t.Tasks = append(t.Tasks, coordinate)
}

func (t *Task) AddTasksForRow(z int, row int) {
	for x := 0; x < tile.LevelSize(z); x++ {
		t.AddTaskForTile(tile.Coordinate{X: x, Y: row, Z: float64(z)})
	}
}

func (t *Task) AddTasksForLevel(z int) {
	for y := 0; y < tile.LevelSize(z); y++ {
		t.AddTasksForRow(z, y)
	}
}

// GetNextTask
// Returns the current tile to be rendered. Make sure to return the result to the AddResult method before calling
// this method again
func (t *Task) GetNextTask() (tile.Coordinate, error) {
	if len(t.Results) >= len(t.Tasks) {
		return tile.Coordinate{}, ErrNoMoreTasks
	}
	return t.Tasks[t.CurrentTask], nil
}

// AddResult
// When returning a result the CurrentTask value is incremented so the next call to the GetNextTask method will return
// the correct tile
func (t *Task) AddResult(result Result) {
	t.Results = append(t.Results, result)
	t.CurrentTask++
}
