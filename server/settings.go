package server

import (
	"encoding/json"
	"fmt"

	"github.com/BrugadaSyndrome/bslogger"
	"github.com/besen/fractiles/mandelbrot"
	"github.com/besen/fractiles/misc"
)

const defaultMaxIterations = 1 << 16

type Settings struct {
	logger bslogger.Logger

	Address            string
	MandelbrotSettings mandelbrot.Settings
	// MaxIterations caps the iterations a request may ask for
	MaxIterations int
	// ReadHeaderTimeout is in seconds
	ReadHeaderTimeout int
}

func LoadSettings(settingsFile string) (Settings, error) {
	s := Settings{
		logger: bslogger.NewLogger("ServerSettings", bslogger.Normal, nil),
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
	output := "\nServer settings\n"
	output += fmt.Sprintf("Address: %s\n", s.Address)
	output += fmt.Sprintf("Max Iterations: %d\n", s.MaxIterations)
	output += fmt.Sprintf("Read Header Timeout: %ds\n", s.ReadHeaderTimeout)
	output += s.MandelbrotSettings.String()
	return output
}

func (s *Settings) Verify() error {
	s.logger = bslogger.NewLogger("ServerSettings", bslogger.Normal, nil)

	if s.Address == "" {
		s.Address = ":8080"
	}
	if s.ReadHeaderTimeout <= 0 {
		s.ReadHeaderTimeout = 5
	}
	if err := s.MandelbrotSettings.Verify(); err != nil {
		return err
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = defaultMaxIterations
	}
	if s.MaxIterations < s.MandelbrotSettings.MaxIterations {
		s.MaxIterations = s.MandelbrotSettings.MaxIterations
	}
	return nil
}
