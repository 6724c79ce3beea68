package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
	"github.com/besen/fractiles/mandelbrot"
	"github.com/besen/fractiles/misc"
	"github.com/besen/fractiles/rpc"
	"github.com/besen/fractiles/task"
)

// maxZoomLimit keeps a run below roughly 4^maxZoomLimit tiles.
const maxZoomLimit = 16

var ErrZoomRange = errors.New("invalid zoom range")

type Settings struct {
	logger bslogger.Logger

	ImageFormat        misc.ImageFormat
	MandelbrotSettings mandelbrot.Settings
	MaxZoom            int
	MinZoom            int
	RunName            string
	SavePath           string
	ServerAddress      string
	TaskGeneration     task.Generation
	Transport          rpc.Transport
}

func LoadSettings(settingsFile string) (Settings, error) {
	s := Settings{
		logger: bslogger.NewLogger("CoordinatorSettings", bslogger.Normal, nil),
	}
	fileBytes, err := misc.ReadFile(settingsFile)
	if err != nil {
		return s, err
	}
	if err = json.Unmarshal(fileBytes, &s); err != nil {
		return s, fmt.Errorf("parsing %s - %w", settingsFile, err)
	}
	if err = s.Verify(); err != nil {
		return s, err
	}
	s.logger.Debug(s.String())
	return s, nil
}

func (s *Settings) String() string {
	output := "\nCoordinator settings\n"
	output += fmt.Sprintf("My Address: %s\n", s.ServerAddress)
	output += fmt.Sprintf("Transport: %s\n", s.Transport)
	output += fmt.Sprintf("Zoom Levels: %d - %d\n", s.MinZoom, s.MaxZoom)
	output += fmt.Sprintf("Task Generation: %s\n", s.TaskGeneration)
	output += fmt.Sprintf("Image Format: %s\n", s.ImageFormat)
	output += fmt.Sprintf("Run: %s\n", s.RunName)
	return output
}

func (s *Settings) Verify() error {
	s.logger = bslogger.NewLogger("CoordinatorSettings", bslogger.Normal, nil)

	if err := s.MandelbrotSettings.Verify(); err != nil {
		return err
	}
	if s.MinZoom < 0 {
		return fmt.Errorf("%w: minimum zoom %d is negative", ErrZoomRange, s.MinZoom)
	}
	if s.MaxZoom < s.MinZoom {
		s.MaxZoom = s.MinZoom
	}
	if s.MaxZoom > maxZoomLimit {
		return fmt.Errorf("%w: maximum zoom %d is above %d", ErrZoomRange, s.MaxZoom, maxZoomLimit)
	}
	if s.RunName == "" {
		s.RunName = "run_" + time.Now().Format("2006_01_02-03_04_05")
	}
	if s.SavePath == "" {
		s.SavePath, _ = os.Getwd()
	}
	if s.ServerAddress == "" {
		localAddress, err := misc.GetLocalAddress()
		if err != nil {
			return err
		}
		s.ServerAddress = fmt.Sprintf("%s:%s", localAddress, "51000")
	}
	if s.TaskGeneration < task.Tile || s.TaskGeneration > task.Level {
		s.TaskGeneration = task.Tile
		s.logger.Info("Unknown task generation, generating one task per tile.")
	}
	return nil
}
