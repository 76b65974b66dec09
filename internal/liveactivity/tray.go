package liveactivity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/models"
)

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess
)

// ErrTrayNotRunning is returned when no live tray process owns the lockfile.
var ErrTrayNotRunning = errors.New("tally-tray is not running")

const (
	EventUpdate = "update"
	EventEnd    = "end"
)

// ActivityPayload is the JSON body posted to the tray's /activity endpoint.
type ActivityPayload struct {
	Event        string              `json:"event"`
	HabitID      string              `json:"habit_id"`
	Label        string              `json:"label,omitempty"`
	State        models.SessionState `json:"state,omitempty"`
	BaseProgress int                 `json:"base_progress"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
	Revision     int64               `json:"revision,omitempty"`
}

// TrayPublisher discovers the tray app through its lockfile on every call,
// so a tray started or restarted after tally is picked up without
// reconfiguration.
type TrayPublisher struct {
	// Labels maps habit ids to display names. Optional.
	Labels func(habitID string) string
	client *http.Client
}

func NewTrayPublisher() *TrayPublisher {
	return &TrayPublisher{
		client: &http.Client{Timeout: constants.TrayRequestTimeout},
	}
}

func (p *TrayPublisher) Publish(ctx context.Context, snap models.SharedSnapshot) error {
	payload := ActivityPayload{
		Event:        EventUpdate,
		HabitID:      snap.HabitID,
		Label:        p.label(snap.HabitID),
		State:        snap.State,
		BaseProgress: snap.BaseProgress,
		Revision:     snap.Revision,
	}
	if snap.State == models.SessionRunning {
		startedAt := snap.StartedAt
		payload.StartedAt = &startedAt
	}
	return p.send(ctx, payload)
}

func (p *TrayPublisher) End(ctx context.Context, habitID string) error {
	return p.send(ctx, ActivityPayload{Event: EventEnd, HabitID: habitID})
}

func (p *TrayPublisher) label(habitID string) string {
	if p.Labels == nil {
		return ""
	}
	return p.Labels(habitID)
}

func (p *TrayPublisher) send(ctx context.Context, payload ActivityPayload) error {
	trayConfigDir, err := GetTrayAppConfigDir()
	if err != nil {
		return err
	}

	port, secret, err := findAndValidateTrayProcess(filepath.Join(trayConfigDir, constants.TrayLockfileName))
	if err != nil {
		return err
	}

	return postActivity(ctx, p.client, port, secret, payload)
}

// GetTrayAppConfigDir returns the configuration directory used by the tray application.
func GetTrayAppConfigDir() (string, error) {
	configDir, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}

	trayConfigDir := filepath.Join(configDir, constants.TrayAppIdentifier)

	// The tray may relocate its lockfile through settings.json.
	data, err := os.ReadFile(filepath.Join(trayConfigDir, "settings.json"))
	if err == nil {
		var store struct {
			Settings struct {
				LockfileDir *string `json:"lockfile_dir"`
			} `json:"settings"`
		}
		if err := json.Unmarshal(data, &store); err == nil {
			if store.Settings.LockfileDir != nil && *store.Settings.LockfileDir != "" {
				return *store.Settings.LockfileDir, nil
			}
		}
	}

	return trayConfigDir, nil
}

// findAndValidateTrayProcess parses a "port|pid|secret" lockfile and checks
// that pid still belongs to a tray executable.
func findAndValidateTrayProcess(lockfilePath string) (string, string, error) {
	content, err := os.ReadFile(lockfilePath)
	if err != nil {
		return "", "", ErrTrayNotRunning
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return "", "", errors.New("tray lockfile is malformed")
	}

	port := strings.TrimSpace(parts[0])
	if port == "" {
		return "", "", errors.New("port in tray lockfile is empty")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return "", "", errors.New("invalid port number in tray lockfile")
	}
	if portNum < 1 || portNum > 65535 {
		return "", "", fmt.Errorf("port number %d is outside valid range (1-65535)", portNum)
	}

	pid, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", "", errors.New("invalid process ID in tray lockfile")
	}
	secret := parts[2]
	if strings.TrimSpace(secret) == "" {
		return "", "", errors.New("secret in tray lockfile is empty")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return "", "", ErrTrayNotRunning
	}

	if !strings.HasPrefix(process.Executable(), constants.TrayExecutablePrefix) {
		return "", "", fmt.Errorf("process with PID %d is not %s (is %s)", pid, constants.TrayExecutablePrefix, process.Executable())
	}

	return port, secret, nil
}

func postActivity(ctx context.Context, client *http.Client, port, secret string, payload ActivityPayload) error {
	url := fmt.Sprintf("http://127.0.0.1:%s/activity", port)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tally-Secret", secret)

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK || res.StatusCode == http.StatusNoContent {
		return nil
	}

	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("live activity update failed with status %d: %s", res.StatusCode, string(body))
}
