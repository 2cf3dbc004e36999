package tika

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohit-sws/timetable/internal/testutil"
	"github.com/rohit-sws/timetable/internal/textextract"
)

func TestDefaults(t *testing.T) {
	if DefaultName != "timetable-tika" {
		t.Errorf("unexpected default container name: %s", DefaultName)
	}
	if DefaultPort != "9998" {
		t.Errorf("unexpected default port: %s", DefaultPort)
	}
}

func TestPortFromURL(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"http://localhost:9998", "9998", false},
		{"http://127.0.0.1:19998/", "19998", false},
		{"http://tika.internal", DefaultPort, false},
		{"://bad", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := PortFromURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PortFromURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PortFromURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStateOf(t *testing.T) {
	tests := map[string]State{
		"running":    StateRunning,
		"exited":     StateStopped,
		"dead":       StateStopped,
		"created":    StateStarting,
		"restarting": StateStarting,
		"paused":     State("paused"),
	}
	for docker, want := range tests {
		if got := stateOf(docker); got != want {
			t.Errorf("stateOf(%q) = %s, want %s", docker, got, want)
		}
	}
}

func TestNewManager_Options(t *testing.T) {
	mgr, err := NewManager(Options{Port: "19998", Labels: map[string]string{"extra": "1"}})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer mgr.Close()

	if mgr.opts.Name != DefaultName || mgr.opts.Image != DefaultImage {
		t.Errorf("defaults not applied: %+v", mgr.opts)
	}
	if mgr.URL() != "http://localhost:19998" {
		t.Errorf("URL() = %s", mgr.URL())
	}
	if mgr.labels[Label] != "true" || mgr.labels["extra"] != "1" {
		t.Errorf("labels = %v", mgr.labels)
	}
}

func TestWaitReady(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tika" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("This is Tika Server"))
	}))
	defer server.Close()

	port, err := PortFromURL(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	mgr, err := NewManager(Options{Port: port})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer mgr.Close()

	if err := mgr.WaitReady(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("requests = %d, want 2", calls.Load())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := mgr.WaitReady(ctx, 5*time.Second); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestManager_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("pulls and runs the Tika image")
	}
	_ = testutil.DockerClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	port, err := testutil.FindFreePort()
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	mgr, err := NewManager(Options{
		Name:   testutil.UniqueContainerName(t, "tika"),
		Port:   port,
		Labels: testutil.ContainerLabels(t),
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer mgr.Close()

	t.Run("Start", func(t *testing.T) {
		if err := mgr.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if state, _ := mgr.State(ctx); state != StateRunning {
			t.Errorf("expected running, got %s", state)
		}
		if err := mgr.Start(ctx); err != nil {
			t.Errorf("second Start() error = %v", err)
		}
	})

	t.Run("ExtractRTF", func(t *testing.T) {
		client := textextract.NewClient(&textextract.Config{TikaURL: mgr.URL(), Timeout: 30 * time.Second})
		if !client.IsAvailable(ctx) {
			t.Fatal("tika not available")
		}
		text, err := client.ExtractText(ctx, []byte(`{\rtf1\ansi Monday Maths 09:00-10:00\par}`), "application/rtf")
		if err != nil {
			t.Fatalf("ExtractText() error = %v", err)
		}
		if !strings.Contains(text, "Monday Maths") {
			t.Errorf("unexpected text %q", text)
		}
	})

	t.Run("Stop", func(t *testing.T) {
		if err := mgr.Stop(ctx); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
		if state, _ := mgr.State(ctx); state != StateStopped {
			t.Errorf("expected stopped, got %s", state)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if err := mgr.Remove(ctx); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		if state, _ := mgr.State(ctx); state != StateAbsent {
			t.Errorf("expected absent, got %s", state)
		}
		if _, err := mgr.Logs(ctx, "10"); !errors.Is(err, ErrNoContainer) {
			t.Errorf("Logs() error = %v, want ErrNoContainer", err)
		}
	})
}
