package worker

import (
	"encoding/json"
	"fmt"

	"github.com/BrugadaSyndrome/bslogger"
	"github.com/besen/fractiles/misc"
	"github.com/besen/fractiles/rpc"
)

type Settings struct {
	logger bslogger.Logger

	CoordinatorAddress string
	// Host is the address the coordinator uses to reach this worker
	Host string
	// Parallelism overrides the coordinator's value, zero uses every core of this machine
	Parallelism int
	Transport   rpc.Transport
}

func LoadSettings(settingsFile string) (Settings, error) {
	s := Settings{
		logger: bslogger.NewLogger("WorkerSettings", bslogger.Normal, nil),
	}
	bytes, err := misc.ReadFile(settingsFile)
	if err != nil {
		return s, err
	}
	if err = json.Unmarshal(bytes, &s); err != nil {
		return s, fmt.Errorf("parsing %s - %w", settingsFile, err)
	}
	if err = s.Verify(); err != nil {
		return s, err
	}
	s.logger.Debug(s.String())
	return s, nil
}

func (s *Settings) String() string {
	output := "\nWorker settings\n"
	output += fmt.Sprintf("Coordinator Address: %s\n", s.CoordinatorAddress)
	output += fmt.Sprintf("Host: %s\n", s.Host)
	output += fmt.Sprintf("Transport: %s\n", s.Transport)
	return output
}

func (s *Settings) Verify() error {
	s.logger = bslogger.NewLogger("WorkerSettings", bslogger.Normal, nil)

	if s.Host == "" || s.CoordinatorAddress == "" {
		localAddress, err := misc.GetLocalAddress()
		if err != nil {
			return err
		}
		if s.Host == "" {
			s.Host = localAddress
		}
		if s.CoordinatorAddress == "" {
			s.CoordinatorAddress = fmt.Sprintf("%s:%s", localAddress, "51000")
		}
	}
	if s.Parallelism < 0 {
		s.Parallelism = 0
	}
	return nil
}
