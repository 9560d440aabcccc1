// Package config loads and validates engram's configuration surface: media
// roots and extensions, the external decoder binaries, the speech model
// choice, and the ambient logging knobs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config encapsulates all configuration values engram recognizes.
type Config struct {
	MediaRoots      []string `toml:"media_roots"`
	MediaExtensions []string `toml:"media_extensions"`
	DecoderBin      string   `toml:"decoder_bin"`
	ProbeBin        string   `toml:"probe_bin"`
	Model           string   `toml:"model"`
	MinDurationS    int      `toml:"min_duration_s"`
	DataDir         string   `toml:"data_dir"`
	WorkerCount     int      `toml:"worker_count"`
	LogLevel        string   `toml:"log_level"`
	LogFormat       string   `toml:"log_format"`
	LogDir          string   `toml:"log_dir"`
}

const (
	defaultDataDir      = "~/.local/share/engram"
	defaultLogDir       = "~/.local/share/engram/logs"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultModel        = "base"
	defaultMinDurationS = 10
)

var defaultMediaExtensions = []string{"mp4", "mkv", "mov", "webm", "avi"}

// Default returns a Config populated with engram's repository defaults.
func Default() Config {
	return Config{
		MediaExtensions: append([]string(nil), defaultMediaExtensions...),
		Model:           defaultModel,
		MinDurationS:    defaultMinDurationS,
		DataDir:         defaultDataDir,
		WorkerCount:     runtime.NumCPU(),
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
		LogDir:          defaultLogDir,
	}
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/engram/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has data_dir, log_dir, and media_roots expanded to absolute paths;
// decoder_bin and probe_bin are only trimmed. path may be empty, in
// which case the default search order (~/.config/engram/config.toml, then
// ./engram.toml) is used.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/engram/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("engram.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.DataDir, err = expandPath(c.DataDir); err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	if c.LogDir, err = expandPath(c.LogDir); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}

	if len(c.MediaExtensions) == 0 {
		c.MediaExtensions = append([]string(nil), defaultMediaExtensions...)
	} else {
		exts := make([]string, 0, len(c.MediaExtensions))
		seen := make(map[string]struct{}, len(c.MediaExtensions))
		for _, ext := range c.MediaExtensions {
			normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
			if normalized == "" {
				continue
			}
			if _, ok := seen[normalized]; ok {
				continue
			}
			seen[normalized] = struct{}{}
			exts = append(exts, normalized)
		}
		c.MediaExtensions = exts
	}

	c.Model = strings.ToLower(strings.TrimSpace(c.Model))
	if c.Model == "" {
		c.Model = defaultModel
	}

	if c.MinDurationS <= 0 {
		c.MinDurationS = defaultMinDurationS
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = runtime.NumCPU()
	}

	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	switch c.LogFormat {
	case "":
		c.LogFormat = defaultLogFormat
	case "console", "json":
	default:
		return fmt.Errorf("log_format: unsupported value %q", c.LogFormat)
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}

	c.DecoderBin = strings.TrimSpace(c.DecoderBin)
	c.ProbeBin = strings.TrimSpace(c.ProbeBin)

	roots := make([]string, 0, len(c.MediaRoots))
	for _, root := range c.MediaRoots {
		expanded, err := expandPath(root)
		if err != nil {
			return fmt.Errorf("media_roots: %w", err)
		}
		if expanded != "" {
			roots = append(roots, expanded)
		}
	}
	c.MediaRoots = roots

	return nil
}

// ValidateForIndexing checks the fields required to run an index pass. It is
// separate from normalize() so that commands like "config show" and
// "search" can load a config without configured media roots.
func (c *Config) ValidateForIndexing() error {
	if len(c.MediaRoots) == 0 {
		return errors.New("media_roots must contain at least one directory")
	}
	return nil
}

// EnsureDirectories creates the directories engram writes to, if absent.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.EngramDir(), 0o755); err != nil {
		return fmt.Errorf("ensure data directory: %w", err)
	}
	if err := os.MkdirAll(c.IndexDir(), 0o755); err != nil {
		return fmt.Errorf("ensure index directory: %w", err)
	}
	if c.LogDir != "" {
		if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
			return fmt.Errorf("ensure log directory: %w", err)
		}
	}
	return nil
}

// EngramDir is <data_dir>/engram, the root of everything engram persists.
func (c *Config) EngramDir() string {
	return filepath.Join(c.DataDir, "engram")
}

// IndexDir is the search index directory.
func (c *Config) IndexDir() string {
	return filepath.Join(c.EngramDir(), "index")
}

// CatalogPath is the SQLite catalog database path.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.EngramDir(), "catalog.db")
}

// ExpandPath resolves "~" and relative segments in pathValue to an absolute
// path. Exported for callers (the CLI's "config init" command) that need to
// resolve a destination path before a Config exists.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a commented starter configuration file to path.
func CreateSample(path string) error {
	const sample = `# engram configuration
# media_roots = ["/media/movies", "/media/shows"]
media_roots = []
media_extensions = ["mp4", "mkv", "mov", "webm", "avi"]
# decoder_bin = "/usr/bin/ffmpeg"
# probe_bin = "/usr/bin/ffprobe"
model = "base"
min_duration_s = 10
data_dir = "~/.local/share/engram"
log_level = "info"
log_format = "console"
log_dir = "~/.local/share/engram/logs"
`
	return os.WriteFile(path, []byte(sample), 0o644)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
