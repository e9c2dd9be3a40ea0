package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var allowedExtensions = []string{
	".wav",
	".mp3",
}

const (
	defaultSampleRate        = 44100
	defaultCacheDir          = "audio_cache"
	defaultWorkers           = 4
	defaultListenAddr        = "127.0.0.1:8080"
	defaultRefreshDebounceMS = 500
)

// Settings holds the processor configuration, fixed at construction time.
type Settings struct {
	SampleRate int
	CacheDir   string
	UseCache   bool
	Workers    int
	ListenAddr string
	Debounce   time.Duration
}

type settingsYAML struct {
	SampleRate *int    `yaml:"sample_rate"`
	CacheDir   *string `yaml:"cache_dir"`
	UseCache   *bool   `yaml:"use_cache"`
	Workers    *int    `yaml:"workers"`
	ListenAddr *string `yaml:"listen_addr"`
}

// AllowedExtensions returns the list of supported audio file extensions (lowercase).
func AllowedExtensions() []string {
	result := make([]string, len(allowedExtensions))
	copy(result, allowedExtensions)
	return result
}

// IsAllowed reports whether the path has a supported audio extension.
func IsAllowed(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Load returns the settings after applying defaults, the optional YAML file
// named by RHYTHM_CONFIG, and environment variable overrides, in that order.
func Load() (Settings, error) {
	settings := Settings{
		SampleRate: defaultSampleRate,
		CacheDir:   defaultCacheDir,
		UseCache:   true,
		Workers:    defaultWorkers,
		ListenAddr: defaultListenAddr,
		Debounce:   RefreshDebounce(),
	}

	configPath := strings.TrimSpace(os.Getenv("RHYTHM_CONFIG"))
	if configPath != "" {
		resolved, err := resolveConfigPath(configPath)
		if err != nil {
			return Settings{}, err
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return Settings{}, err
		}
		var yamlConfig settingsYAML
		if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
			return Settings{}, err
		}
		if yamlConfig.SampleRate != nil && *yamlConfig.SampleRate > 0 {
			settings.SampleRate = *yamlConfig.SampleRate
		}
		if yamlConfig.CacheDir != nil && strings.TrimSpace(*yamlConfig.CacheDir) != "" {
			settings.CacheDir = strings.TrimSpace(*yamlConfig.CacheDir)
		}
		if yamlConfig.UseCache != nil {
			settings.UseCache = *yamlConfig.UseCache
		}
		if yamlConfig.Workers != nil && *yamlConfig.Workers > 0 {
			settings.Workers = *yamlConfig.Workers
		}
		if yamlConfig.ListenAddr != nil && strings.TrimSpace(*yamlConfig.ListenAddr) != "" {
			settings.ListenAddr = strings.TrimSpace(*yamlConfig.ListenAddr)
		}
	}

	if value := strings.TrimSpace(os.Getenv("RHYTHM_SAMPLE_RATE")); value != "" {
		rate, err := strconv.Atoi(value)
		if err != nil || rate <= 0 {
			return Settings{}, fmt.Errorf("invalid RHYTHM_SAMPLE_RATE %q", value)
		}
		settings.SampleRate = rate
	}
	if value := strings.TrimSpace(os.Getenv("RHYTHM_CACHE_DIR")); value != "" {
		settings.CacheDir = value
	}
	if value := strings.TrimSpace(os.Getenv("RHYTHM_USE_CACHE")); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid RHYTHM_USE_CACHE %q", value)
		}
		settings.UseCache = enabled
	}
	if value := strings.TrimSpace(os.Getenv("RHYTHM_WORKERS")); value != "" {
		workers, err := strconv.Atoi(value)
		if err != nil || workers <= 0 {
			return Settings{}, fmt.Errorf("invalid RHYTHM_WORKERS %q", value)
		}
		settings.Workers = workers
	}
	if value := strings.TrimSpace(os.Getenv("RHYTHM_LISTEN_ADDR")); value != "" {
		settings.ListenAddr = value
	}

	return settings, nil
}

// ResolveCacheDir returns the absolute cache directory, creating it when it
// does not yet exist.
func ResolveCacheDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = defaultCacheDir
	}

	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(home, dir[1:])
		}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", err
	}

	return abs, nil
}

// RefreshDebounce returns the duration to wait before reprocessing after
// file-system change events.
func RefreshDebounce() time.Duration {
	value := strings.TrimSpace(os.Getenv("RHYTHM_REFRESH_DEBOUNCE_MS"))
	if value == "" {
		return time.Duration(defaultRefreshDebounceMS) * time.Millisecond
	}

	ms, err := strconv.Atoi(value)
	if err != nil || ms < 0 {
		return time.Duration(defaultRefreshDebounceMS) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}

// ValidateListenAddr ensures the configured listen address is restricted to localhost.
func ValidateListenAddr(addr string) error {
	addr = strings.TrimSpace(strings.ToLower(addr))
	if strings.HasPrefix(addr, "127.0.0.1:") || strings.HasPrefix(addr, "localhost:") || strings.HasPrefix(addr, "[::1]:") {
		return nil
	}
	return errors.New("listen address must bind to localhost for security")
}

func resolveConfigPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return filepath.Abs(path)
}
