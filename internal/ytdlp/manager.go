package ytdlp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

const releaseAPI = "https://api.github.com/repos/yt-dlp/yt-dlp/releases/latest"

// Manager handles locating and installing the yt-dlp binary.
type Manager struct {
	dataDir        string
	releaseURL     string
	httpClient     *http.Client
	currentVersion string
	log            zerolog.Logger
}

type githubRelease struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

func NewManager(dataDir string, log zerolog.Logger) *Manager {
	os.MkdirAll(dataDir, 0755)

	return &Manager{
		dataDir:    dataDir,
		releaseURL: releaseAPI,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log.With().Str("component", "ytdlp-manager").Logger(),
	}
}

// BinPath returns the path of the managed yt-dlp binary.
func (m *Manager) BinPath() string {
	return filepath.Join(m.dataDir, assetName())
}

// IsInstalled reports whether the managed binary exists.
func (m *Manager) IsInstalled() bool {
	_, err := os.Stat(m.BinPath())
	return err == nil
}

// Resolve returns a usable yt-dlp path: a binary already on PATH wins,
// otherwise the managed binary is downloaded on first use.
func (m *Manager) Resolve() (string, error) {
	if path, err := exec.LookPath("yt-dlp"); err == nil {
		m.log.Debug().Str("path", path).Msg("using system yt-dlp")
		return path, nil
	}

	if err := m.EnsureInstalled(); err != nil {
		return "", err
	}
	return m.BinPath(), nil
}

// EnsureInstalled downloads the binary if it is missing.
func (m *Manager) EnsureInstalled() error {
	if m.IsInstalled() {
		return nil
	}

	m.log.Info().Msg("yt-dlp not found, downloading")
	return m.Download()
}

// CheckForUpdate returns the latest release tag and whether it differs from
// the installed version.
func (m *Manager) CheckForUpdate() (string, bool, error) {
	release, err := m.fetchRelease()
	if err != nil {
		return "", false, err
	}

	if !m.IsInstalled() || m.currentVersion != release.TagName {
		return release.TagName, true, nil
	}
	return release.TagName, false, nil
}

// Download fetches the platform asset from the latest release and installs
// it atomically.
func (m *Manager) Download() error {
	release, err := m.fetchRelease()
	if err != nil {
		return err
	}

	asset := assetName()
	var downloadURL string
	for _, a := range release.Assets {
		if a.Name == asset {
			downloadURL = a.BrowserDownloadURL
			break
		}
	}
	if downloadURL == "" {
		return fmt.Errorf("no release asset for platform %s/%s", runtime.GOOS, runtime.GOARCH)
	}

	resp, err := m.httpClient.Get(downloadURL)
	if err != nil {
		return fmt.Errorf("failed to download yt-dlp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	binPath := m.BinPath()
	tmpPath := binPath + ".tmp"

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}

	_, err = io.Copy(out, resp.Body)
	out.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write binary: %w", err)
	}

	if err := os.Chmod(tmpPath, 0755); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to make binary executable: %w", err)
	}

	if err := os.Rename(tmpPath, binPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to install binary: %w", err)
	}

	m.currentVersion = release.TagName
	m.log.Info().Str("version", release.TagName).Msg("yt-dlp installed")

	return nil
}

func (m *Manager) fetchRelease() (*githubRelease, error) {
	resp, err := m.httpClient.Get(m.releaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release API returned status %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release info: %w", err)
	}
	return &release, nil
}

// assetName returns the release asset matching the current platform.
func assetName() string {
	switch runtime.GOOS {
	case "windows":
		return "yt-dlp.exe"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "yt-dlp_linux_aarch64"
		}
		return "yt-dlp_linux"
	case "darwin":
		return "yt-dlp_macos"
	default:
		return "yt-dlp"
	}
}
