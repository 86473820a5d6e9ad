package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of the alarm server and its control client.
type Config struct {
	// ServerAddress is the gRPC address of the query API.
	// The server listens on its port, clients dial it as is.
	ServerAddress string `yaml:"server_addr"`
	// MetricsAddress enables the Prometheus endpoint when not empty.
	MetricsAddress string `yaml:"metrics_addr,omitempty"`
	// LogLevel is the minimum level of emitted log entries.
	LogLevel string `yaml:"log_level,omitempty"`
	// Timeout bounds RPC calls and broker operations.
	Timeout time.Duration `yaml:"timeout"`
	// MQTT describes the broker connection and topics.
	MQTT MQTT `yaml:"mqtt"`
	// Alarm holds the trigger policy.
	Alarm Alarm `yaml:"alarm"`
	// Notify configures outbound notifications.
	Notify Notify `yaml:"notify"`
	// Storage selects the persistence driver.
	Storage Storage `yaml:"storage"`
}

// MQTT holds broker connection parameters.
type MQTT struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker string `yaml:"broker"`
	// ClientID is generated when empty.
	ClientID string `yaml:"client_id,omitempty"`
	// Username for broker authentication.
	Username string `yaml:"username,omitempty"`
	// Password for broker authentication.
	Password string `yaml:"password,omitempty"`
	// QoS used for subscriptions and publishes.
	QoS byte `yaml:"qos"`
	// Topics names every topic the server uses.
	Topics Topics `yaml:"topics"`
	// InboundBuffer is the capacity of the serialized message queue.
	InboundBuffer int `yaml:"inbound_buffer"`
}

// Topics lists inbound and outbound topic names.
type Topics struct {
	// Distance carries raw distance readings in meters.
	Distance string `yaml:"distance"`
	// Presence carries "online"/"offline".
	Presence string `yaml:"presence"`
	// StateRequest carries empty alarm state requests.
	StateRequest string `yaml:"state_request"`
	// State is where "on"/"off" is published.
	State string `yaml:"state"`
}

// Alarm holds the trigger policy.
type Alarm struct {
	// TriggerDistanceCM is the breach threshold in centimeters.
	TriggerDistanceCM float64 `yaml:"trigger_distance_cm"`
	// Cooldown is the minimum time between two breach notifications.
	Cooldown time.Duration `yaml:"cooldown"`
	// MaxDistanceM is the exclusive upper bound of accepted readings.
	MaxDistanceM float64 `yaml:"max_distance_m"`
}

// Notify configures outbound notifications.
type Notify struct {
	// DeviceName is used in presence notification texts.
	DeviceName string `yaml:"device_name"`
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration `yaml:"timeout"`
	// Workers is the number of concurrent deliveries.
	Workers int `yaml:"workers"`
	// QueueSize is the number of pending notifications kept before dropping.
	QueueSize int `yaml:"queue_size"`
	// Pushover holds the third-party alerting credentials.
	Pushover Pushover `yaml:"pushover"`
}

// Pushover holds Pushover API credentials.
// Notifications are only logged while Token or User is empty.
type Pushover struct {
	// Endpoint is the messages API URL.
	Endpoint string `yaml:"endpoint"`
	// Token is the application token.
	Token string `yaml:"token,omitempty"`
	// User is the user or group key.
	User string `yaml:"user,omitempty"`
}

// Storage selects and configures the persistence driver.
type Storage struct {
	// Driver is one of memory, file, postgres, clickhouse.
	Driver string `yaml:"driver"`
	// DSN is the connection string for postgres and clickhouse.
	DSN string `yaml:"dsn,omitempty"`
	// Path is the snapshot file for the file driver.
	Path string `yaml:"path,omitempty"`
	// Retention caps readings and events kept by the memory and file drivers.
	Retention int `yaml:"retention"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "proximity-alarm.yaml"

	// DefaultServerAddress is where the query API listens by default.
	DefaultServerAddress = "127.0.0.1:50051"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the permission of files written by the binaries.
	DefaultFilePermissions = 0o600

	// DefaultBroker is the broker of a local installation.
	DefaultBroker = "tcp://localhost:1883"

	// DefaultTriggerDistanceCM is the breach threshold (0.2 m).
	DefaultTriggerDistanceCM = 20.0

	// DefaultCooldown is the minimum time between breach notifications.
	DefaultCooldown = 60 * time.Second

	// DefaultMaxDistanceM is the exclusive upper bound of accepted readings.
	DefaultMaxDistanceM = 5.0

	// DefaultPushoverEndpoint is the Pushover messages API.
	DefaultPushoverEndpoint = "https://api.pushover.net/1/messages.json"

	// DefaultNotifyTimeout bounds a single notification delivery.
	DefaultNotifyTimeout = 10 * time.Second

	// DefaultStateFilename is the snapshot used by the file storage driver.
	DefaultStateFilename = "proximity-alarm-state.json"

	// DefaultRetention is the number of readings kept in memory.
	DefaultRetention = 10000

	// Storage drivers.
	DriverMemory     = "memory"
	DriverFile       = "file"
	DriverPostgres   = "postgres"
	DriverClickHouse = "clickhouse"

	// envPrefix prefixes every environment override.
	envPrefix = "PROXIMITY_"
)

const (
	defaultDistanceTopic     = "motion/distance"
	defaultPresenceTopic     = "device/status"
	defaultStateRequestTopic = "device/alarm/request"
	defaultStateTopic        = "device/alarm"
	defaultDeviceName        = "Sensor device"
	defaultNotifyWorkers     = 2
	defaultNotifyQueueSize   = 16
	defaultInboundBuffer     = 64
	maxQoS                   = 2
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerAddressRequired is returned when the server address is missing.
	errServerAddressRequired = errors.New("server address must be provided")
	// errUnknownDriver is returned for unsupported storage drivers.
	errUnknownDriver = errors.New("unknown storage driver")
	// errDSNRequired is returned when a database driver has no DSN.
	errDSNRequired = errors.New("storage dsn must be provided")
	// errInvalidQoS is returned for QoS levels above 2.
	errInvalidQoS = errors.New("mqtt qos must be 0, 1 or 2")
	// errInvalidAlarm is returned for non-positive alarm thresholds.
	errInvalidAlarm = errors.New("alarm thresholds must be positive")
)

// Load reads configuration from path, applies environment overrides and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	// A missing .env file is the normal case.
	if err = godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	ApplyEnv(&cfg, os.LookupEnv)

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// ApplyEnv overrides secrets and endpoints from PROXIMITY_* variables.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	overrides := map[string]*string{
		"MQTT_BROKER":     &cfg.MQTT.Broker,
		"MQTT_USERNAME":   &cfg.MQTT.Username,
		"MQTT_PASSWORD":   &cfg.MQTT.Password,
		"PUSHOVER_TOKEN":  &cfg.Notify.Pushover.Token,
		"PUSHOVER_USER":   &cfg.Notify.Pushover.User,
		"STORAGE_DSN":     &cfg.Storage.DSN,
		"STORAGE_DRIVER":  &cfg.Storage.Driver,
		"SERVER_ADDR":     &cfg.ServerAddress,
		"LOG_LEVEL":       &cfg.LogLevel,
		"METRICS_ADDRESS": &cfg.MetricsAddress,
	}

	for name, target := range overrides {
		if value, ok := lookup(envPrefix + name); ok && value != "" {
			*target = value
		}
	}
}

// Validate checks required fields and fills defaults.
//
//nolint:cyclop // A flat list of defaults reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ServerAddress == "" {
		return errServerAddressRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ServerAddress); err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if err := validateMQTT(&cfg.MQTT); err != nil {
		return err
	}

	if err := validateAlarm(&cfg.Alarm); err != nil {
		return err
	}

	if err := validateNotify(&cfg.Notify); err != nil {
		return err
	}

	return validateStorage(&cfg.Storage)
}

func validateMQTT(m *MQTT) error {
	if m.Broker == "" {
		m.Broker = DefaultBroker
	}

	if _, err := url.Parse(m.Broker); err != nil {
		return fmt.Errorf("invalid mqtt broker: %w", err)
	}

	if m.QoS > maxQoS {
		return errInvalidQoS
	}

	if m.InboundBuffer <= 0 {
		m.InboundBuffer = defaultInboundBuffer
	}

	setDefault(&m.Topics.Distance, defaultDistanceTopic)
	setDefault(&m.Topics.Presence, defaultPresenceTopic)
	setDefault(&m.Topics.StateRequest, defaultStateRequestTopic)
	setDefault(&m.Topics.State, defaultStateTopic)

	return nil
}

func validateAlarm(a *Alarm) error {
	if a.TriggerDistanceCM == 0 {
		a.TriggerDistanceCM = DefaultTriggerDistanceCM
	}

	if a.Cooldown == 0 {
		a.Cooldown = DefaultCooldown
	}

	if a.MaxDistanceM == 0 {
		a.MaxDistanceM = DefaultMaxDistanceM
	}

	if a.TriggerDistanceCM < 0 || a.Cooldown < 0 || a.MaxDistanceM < 0 {
		return errInvalidAlarm
	}

	return nil
}

func validateNotify(n *Notify) error {
	setDefault(&n.DeviceName, defaultDeviceName)
	setDefault(&n.Pushover.Endpoint, DefaultPushoverEndpoint)

	if n.Timeout <= 0 {
		n.Timeout = DefaultNotifyTimeout
	}

	if n.Workers <= 0 {
		n.Workers = defaultNotifyWorkers
	}

	if n.QueueSize <= 0 {
		n.QueueSize = defaultNotifyQueueSize
	}

	if _, err := url.ParseRequestURI(n.Pushover.Endpoint); err != nil {
		return fmt.Errorf("invalid pushover endpoint: %w", err)
	}

	return nil
}

func validateStorage(s *Storage) error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	setDefault(&s.Driver, DriverMemory)

	if s.Retention <= 0 {
		s.Retention = DefaultRetention
	}

	switch s.Driver {
	case DriverMemory:
	case DriverFile:
		setDefault(&s.Path, DefaultStateFilename)
	case DriverPostgres, DriverClickHouse:
		if s.DSN == "" {
			return fmt.Errorf("%s: %w", s.Driver, errDSNRequired)
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, s.Driver)
	}

	return nil
}

// PushoverEnabled reports whether real deliveries are configured.
func (n *Notify) PushoverEnabled() bool {
	return n.Pushover.Token != "" && n.Pushover.User != ""
}

func setDefault(target *string, value string) {
	if *target == "" {
		*target = value
	}
}
