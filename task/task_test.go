package task

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/besen/fractiles/tile"
)

func TestAddTasks(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Task)
		want  []tile.Coordinate
	}{
		{
			"single tile",
			func(t *Task) { t.AddTaskForTile(tile.Coordinate{X: 3, Y: 1, Z: 2}) },
			[]tile.Coordinate{{X: 3, Y: 1, Z: 2}},
		},
		{
			"row",
			func(t *Task) { t.AddTasksForRow(1, 1) },
			[]tile.Coordinate{{X: 0, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}},
		},
		{
			"level",
			func(t *Task) { t.AddTasksForLevel(1) },
			[]tile.Coordinate{{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}},
		},
		{
			"root level",
			func(t *Task) { t.AddTasksForLevel(0) },
			[]tile.Coordinate{{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewTask(7)
			tt.build(&task)
			if len(task.Tasks) != len(tt.want) {
				t.Fatalf("got %d tiles, want %d", len(task.Tasks), len(tt.want))
			}
			for i := range tt.want {
				if task.Tasks[i] != tt.want[i] {
					t.Errorf("tile %d = %v, want %v", i, task.Tasks[i], tt.want[i])
				}
			}
		})
	}
}

func TestGetNextTaskWalksTiles(t *testing.T) {
	task := NewTask(1)
	task.AddTasksForRow(2, 3)

	var seen []tile.Coordinate
	for {
		c, err := task.GetNextTask()
		if errors.Is(err, ErrNoMoreTasks) {
			break
		}
		if err != nil {
			t.Fatalf("GetNextTask: %v", err)
		}
		seen = append(seen, c)
		task.AddResult(Result{Coordinate: c, Image: []byte{1}})
	}

	if len(seen) != 4 || len(task.Results) != 4 {
		t.Fatalf("walked %d tiles with %d results, want 4", len(seen), len(task.Results))
	}
	for x, c := range seen {
		if c != (tile.Coordinate{X: x, Y: 3, Z: 2}) {
			t.Errorf("tile %d = %v", x, c)
		}
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		g                Generation
		minZoom, maxZoom int
		want             int
	}{
		{Tile, 0, 0, 1},
		{Tile, 0, 2, 1 + 4 + 16},
		{Tile, 1, 3, 4 + 16 + 64},
		{Row, 0, 2, 1 + 2 + 4},
		{Level, 2, 5, 4},
		{Level, 3, 2, 0},
	}
	for _, tt := range tests {
		if got := Count(tt.g, tt.minZoom, tt.maxZoom); got != tt.want {
			t.Errorf("Count(%v, %d, %d) = %d, want %d", tt.g, tt.minZoom, tt.maxZoom, got, tt.want)
		}
	}
}

func TestGenerationText(t *testing.T) {
	var s struct{ TaskGeneration Generation }
	if err := json.Unmarshal([]byte(`{"TaskGeneration": "level"}`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.TaskGeneration != Level {
		t.Errorf("TaskGeneration = %v, want level", s.TaskGeneration)
	}
	if err := json.Unmarshal([]byte(`{"TaskGeneration": "column"}`), &s); err == nil {
		t.Error("Unmarshal accepted an unknown generation")
	}
	if _, err := Generation(5).MarshalText(); !errors.Is(err, ErrUnknownGeneration) {
		t.Errorf("MarshalText error = %v", err)
	}
}
