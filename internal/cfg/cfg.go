package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"exoplanet-api/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	ModelDir          string
	DefaultThreshold  float64
	PythonPath        string
	LenientValidation bool
	Port              int
	CORSOrigin        string
	ShutdownTimeout   time.Duration
	LogLevel          string
	LogFormat         string
}

// Addr returns the listen address for the HTTP server.
func (s Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type ConfigFile struct {
	Model struct {
		Dir              string   `yaml:"dir"`
		DefaultThreshold *float64 `yaml:"defaultThreshold"`
		PythonPath       string   `yaml:"pythonPath"`
	} `yaml:"model"`

	Validation struct {
		Lenient bool `yaml:"lenient"`
	} `yaml:"validation"`

	Server struct {
		Port            int    `yaml:"port"`
		CORSOrigin      string `yaml:"corsOrigin"`
		ShutdownTimeout string `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadDotEnv loads the first existing file among paths into the environment.
// Variables already set are not overridden. It returns the file loaded, or ""
// when none was found.
func LoadDotEnv(paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return "", fmt.Errorf("failed to load %s: %w", path, err)
		}
		return path, nil
	}
	return "", nil
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	shutdown := common.DefaultShutdownTimeout
	if v := strings.TrimSpace(config.Server.ShutdownTimeout); v != "" {
		shutdown, err = time.ParseDuration(v)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid server.shutdownTimeout %q: %w", v, err)
		}
	}
	shutdown, err = getDurationOrDefault(common.EnvShutdownTimeout, shutdown)
	if err != nil {
		return Settings{}, err
	}

	threshold := common.DefaultThreshold
	if config.Model.DefaultThreshold != nil {
		threshold = *config.Model.DefaultThreshold
	}

	// Override with environment variables if they exist
	settings := Settings{
		ModelDir:          getEnvOrDefault(common.EnvModelDir, orDefault(config.Model.Dir, common.DefaultModelDir)),
		DefaultThreshold:  getFloatOrDefault(common.EnvDefaultThreshold, threshold),
		PythonPath:        getEnvOrDefault(common.EnvPythonPath, config.Model.PythonPath),
		LenientValidation: getBoolOrDefault(common.EnvLenientValidation, config.Validation.Lenient),
		Port:              getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		CORSOrigin:        getEnvOrDefault(common.EnvCORSOrigin, orDefault(config.Server.CORSOrigin, common.DefaultCORSOrigin)),
		ShutdownTimeout:   shutdown,
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, orDefault(config.Logging.Level, common.DefaultLogLevel)),
		LogFormat:         getEnvOrDefault(common.EnvLogFormat, orDefault(config.Logging.Format, common.DefaultLogFormat)),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	shutdown, err := getDurationOrDefault(common.EnvShutdownTimeout, common.DefaultShutdownTimeout)
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		ModelDir:          getEnvOrDefault(common.EnvModelDir, common.DefaultModelDir),
		DefaultThreshold:  getFloatOrDefault(common.EnvDefaultThreshold, common.DefaultThreshold),
		PythonPath:        os.Getenv(common.EnvPythonPath), // optional, discovered when empty
		LenientValidation: getBoolOrDefault(common.EnvLenientValidation, false),
		Port:              getIntOrDefault(common.EnvPort, common.DefaultPort),
		CORSOrigin:        getEnvOrDefault(common.EnvCORSOrigin, common.DefaultCORSOrigin),
		ShutdownTimeout:   shutdown,
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:         getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

// getDurationOrDefault rejects a set but unparsable value.
func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

// getFloatOrDefault maps an unparsable value to NaN so validation rejects it
// instead of falling back to the default.
func getFloatOrDefault(key string, defaultValue float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return invalidFloat
	}
	return f
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}
