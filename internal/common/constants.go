package common

import "time"

// Environment variable keys
const (
	EnvConfigFile        = "CONFIG_FILE"
	EnvModelDir          = "EXO_MODEL_DIR"
	EnvDefaultThreshold  = "EXO_DEFAULT_THRESHOLD"
	EnvLenientValidation = "EXO_LENIENT_VALIDATION"
	EnvPort              = "PORT"
	EnvLogLevel          = "LOG_LEVEL"
	EnvLogFormat         = "LOG_FORMAT"
	EnvCORSOrigin        = "CORS_ORIGIN"
	EnvPythonPath        = "PYTHON_PATH"
	EnvServerURL         = "EXO_SERVER_URL"
	EnvShutdownTimeout   = "SHUTDOWN_TIMEOUT"
)

// Configuration defaults
const (
	DefaultModelDir   = "models/exoplanets"
	DefaultThreshold  = 0.436
	DefaultPort       = 5000
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "console"
	DefaultCORSOrigin = "*"
	DefaultServerURL  = "http://localhost:5000"

	DefaultShutdownTimeout = 10 * time.Second
	DefaultClientTimeout   = 30 * time.Second
)

// Columns with a forced dtype before alignment
const (
	CategoricalColumn = "mission"
	NumericColumn     = "t_mag"
)

// Response messages
const (
	MsgNoData           = "no data provided"
	MsgValidationFailed = "validation failed"
	MsgHealthy          = "API operational"
	MsgInvalidJSON      = "invalid JSON body"
	MsgInternal         = "internal server error"
)

// Validation constants
const (
	MinThreshold = 0.0
	MaxThreshold = 1.0
	MinPort      = 1
	MaxPort      = 65535
)
