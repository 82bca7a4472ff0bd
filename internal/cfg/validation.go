package cfg

import (
	"fmt"
	"math"
	"strings"
	"time"

	"exoplanet-api/internal/common"
)

var invalidFloat = math.NaN()

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	if strings.TrimSpace(settings.ModelDir) == "" {
		return fmt.Errorf("model directory cannot be empty")
	}

	// NaN fails both comparisons
	if !(settings.DefaultThreshold >= common.MinThreshold && settings.DefaultThreshold <= common.MaxThreshold) {
		return fmt.Errorf("default threshold must be between %g and %g, got %v",
			common.MinThreshold, common.MaxThreshold, settings.DefaultThreshold)
	}

	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}

	if settings.ShutdownTimeout < 0 || settings.ShutdownTimeout > 5*time.Minute {
		return fmt.Errorf("shutdown timeout must be between 0 and 5m, got %v", settings.ShutdownTimeout)
	}

	switch settings.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", settings.LogFormat)
	}

	if settings.CORSOrigin == "" {
		return fmt.Errorf("CORS origin cannot be empty")
	}

	return nil
}
