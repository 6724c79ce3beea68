package worker

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/besen/fractiles/misc"
	"github.com/besen/fractiles/rpc"
)

func TestSettingsVerify(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     Settings
	}{
		{
			name:     "explicit values are kept",
			settings: Settings{CoordinatorAddress: "10.0.0.1:51000", Host: "10.0.0.2", Parallelism: 3, Transport: rpc.Http},
			want:     Settings{CoordinatorAddress: "10.0.0.1:51000", Host: "10.0.0.2", Parallelism: 3, Transport: rpc.Http},
		},
		{
			name:     "negative parallelism uses every core",
			settings: Settings{CoordinatorAddress: "10.0.0.1:51000", Host: "10.0.0.2", Parallelism: -4},
			want:     Settings{CoordinatorAddress: "10.0.0.1:51000", Host: "10.0.0.2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.settings
			if err := s.Verify(); err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if s.CoordinatorAddress != tt.want.CoordinatorAddress || s.Host != tt.want.Host ||
				s.Parallelism != tt.want.Parallelism || s.Transport != tt.want.Transport {
				t.Errorf("Verify() = %s, want %s", s.String(), tt.want.String())
			}
		})
	}
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.json")
	config := `{"CoordinatorAddress": "127.0.0.1:51000", "Host": "127.0.0.1", "Parallelism": 2, "Transport": "ws"}`
	if _, err := misc.WriteFile(path, []byte(config)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Transport != rpc.Websocket || s.Parallelism != 2 || s.Host != "127.0.0.1" {
		t.Errorf("unexpected settings: %s", s.String())
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if _, err := misc.WriteFile(bad, []byte(`{"Transport": "carrier pigeon"}`)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadSettings(bad); err == nil {
		t.Error("LoadSettings accepted an unknown transport")
	}
}

func TestNewWorkerWithoutCoordinator(t *testing.T) {
	port, err := misc.GetFreePort()
	if err != nil {
		t.Fatalf("GetFreePort: %v", err)
	}
	_, err = NewWorker(Settings{
		CoordinatorAddress: fmt.Sprintf("127.0.0.1:%d", port),
		Host:               "127.0.0.1",
	})
	if err == nil {
		t.Fatal("NewWorker joined a coordinator that does not exist")
	}
}
