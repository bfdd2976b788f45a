package detect

import (
	"bytes"
	"os"
	"strconv"

	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds the detection thresholds. It is loaded once at startup and
// treated as immutable afterwards
type Config struct {
	// Maximum age of a report before it is considered unreliable
	StaleThresholdSeconds int64 `yaml:"stale_threshold_seconds"`

	// How long a vehicle may sit still away from a stop before flagging
	StationaryWindowSeconds int64 `yaml:"stationary_window_seconds"`
	// Positions closer than this are treated as no movement
	MovementEpsilonMeters float64 `yaml:"movement_epsilon_meters"`
	// Radius around a known stop within which being parked is fine
	StopBufferMeters float64 `yaml:"stop_buffer_meters"`

	// Speed spike/drop multipliers against the history baseline
	SpeedSpikeMultiplier float64 `yaml:"speed_spike_multiplier"`
	SpeedDropMultiplier  float64 `yaml:"speed_drop_multiplier"`

	// Coarse service area; reports outside it are off route
	Boundary transit.BoundingBox `yaml:"boundary"`

	// Optional expr expression over a report; when it evaluates true the
	// vehicle is exempt from detection (e.g. a depot geofence)
	ExemptionFilter string `yaml:"exemption_filter"`
}

var defaultConfig = Config{
	StaleThresholdSeconds:   120,
	StationaryWindowSeconds: 60,
	MovementEpsilonMeters:   15.0,
	StopBufferMeters:        50.0,
	SpeedSpikeMultiplier:    3.0,
	SpeedDropMultiplier:     0.3,

	Boundary: transit.BoundingBox{
		MinLatitude:  37.0,
		MaxLatitude:  41.0,
		MinLongitude: -109.0,
		MaxLongitude: -102.0,
	},
}

// GetConfig returns the detection configuration, starting from the defaults,
// applying an optional yaml file and finally any environment variable
// overrides
func GetConfig() Config {
	config := defaultConfig

	if path := os.Getenv("GHOSTBUS_DETECTION_CONFIG"); path != "" {
		configYaml, err := os.ReadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to read detection config file")
		}

		decoder := yaml.NewDecoder(bytes.NewReader(configYaml))
		if err := decoder.Decode(&config); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to parse detection config file")
		}
	}

	if val := os.Getenv("GHOSTBUS_DETECTION_STALE_THRESHOLD_SECONDS"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.StaleThresholdSeconds = parsed
		}
	}

	if val := os.Getenv("GHOSTBUS_DETECTION_STATIONARY_WINDOW_SECONDS"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.StationaryWindowSeconds = parsed
		}
	}

	if val := os.Getenv("GHOSTBUS_DETECTION_MOVEMENT_EPSILON_METERS"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.MovementEpsilonMeters = parsed
		}
	}

	if val := os.Getenv("GHOSTBUS_DETECTION_STOP_BUFFER_METERS"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.StopBufferMeters = parsed
		}
	}

	if val := os.Getenv("GHOSTBUS_DETECTION_EXEMPTION_FILTER"); val != "" {
		config.ExemptionFilter = val
	}

	return config
}
