package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file location relative to the install directory.
const DefaultPath = "config/service-configuration.yml"

// EnvPrefix prefixes the environment variables that override file values.
const EnvPrefix = "apiml"

const (
	defaultServicePath       = "/eureka/apps/"
	defaultMaxRetries        = 3
	defaultRequestRetryDelay = 500
	defaultHeartbeatInterval = 30000
	defaultLeaseRenewal      = 30
	defaultLeaseDuration     = 90
)

var (
	ErrMissingCertificate = errors.New("ssl certificate is missing in service configuration")
	ErrMissingKeystore    = errors.New("ssl keystore is missing in service configuration")
)

// ServiceConfiguration is the parsed service-configuration.yml. It is loaded once at
// startup and must not be mutated afterwards.
type ServiceConfiguration struct {
	Eureka   Eureka   `yaml:"eureka"`
	Instance Instance `yaml:"instance"`
	SSL      SSL      `yaml:"ssl"`

	path string
}

// Eureka describes how to reach the discovery service.
type Eureka struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	SSL         bool   `yaml:"ssl"`
	ServicePath string `yaml:"servicePath"`

	// MaxRetries is the number of retries after a failed registration attempt.
	MaxRetries *int `yaml:"maxRetries"`

	// RequestRetryDelay and HeartbeatInterval are in milliseconds.
	RequestRetryDelay int `yaml:"requestRetryDelay"`
	HeartbeatInterval int `yaml:"heartbeatInterval"`

	RegisterWithEureka *bool `yaml:"registerWithEureka"`
}

// Instance is the registration record announced to the discovery service.
type Instance struct {
	App              string            `yaml:"app"`
	InstanceID       string            `yaml:"instanceId"`
	HostName         string            `yaml:"hostName"`
	IPAddr           string            `yaml:"ipAddr"`
	VipAddress       string            `yaml:"vipAddress"`
	SecureVipAddress string            `yaml:"secureVipAddress"`
	HomePageURL      string            `yaml:"homePageUrl"`
	StatusPageURL    string            `yaml:"statusPageUrl"`
	HealthCheckURL   string            `yaml:"healthCheckUrl"`
	Port             Port              `yaml:"port"`
	SecurePort       Port              `yaml:"securePort"`
	Metadata         map[string]string `yaml:"metadata"`

	LeaseRenewalIntervalInSeconds int `yaml:"leaseRenewalIntervalInSeconds"`
	LeaseDurationInSeconds        int `yaml:"leaseDurationInSeconds"`
}

// SSL holds the key material paths. After Load all set paths are absolute.
type SSL struct {
	Certificate string `yaml:"certificate"`
	Keystore    string `yaml:"keystore"`
	CAFile      string `yaml:"caFile"`
	KeyPassword string `yaml:"keyPassword"`
}

// Port accepts both a plain number and the Eureka form {"$": 10018, "@enabled": true}.
type Port struct {
	Number  int
	Enabled bool
}

func (p *Port) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var n int
		if err := value.Decode(&n); err != nil {
			return err
		}
		p.Number, p.Enabled = n, true
		return nil
	case yaml.MappingNode:
		var raw struct {
			Number  int   `yaml:"$"`
			Enabled *bool `yaml:"@enabled"`
		}
		if err := value.Decode(&raw); err != nil {
			return err
		}
		p.Number = raw.Number
		p.Enabled = raw.Enabled == nil || *raw.Enabled
		return nil
	default:
		return fmt.Errorf("line %d: port must be a number or a mapping", value.Line)
	}
}

type envOverrides struct {
	EurekaHost       string `envconfig:"EUREKA_HOST"`
	EurekaPort       int    `envconfig:"EUREKA_PORT"`
	EurekaSSL        *bool  `envconfig:"EUREKA_SSL"`
	InstanceHostName string `envconfig:"INSTANCE_HOSTNAME"`
	InstanceIPAddr   string `envconfig:"INSTANCE_IPADDR"`
}

// Load reads and validates the configuration file at path. Relative ssl paths are
// resolved against the directory containing the file. Missing certificate or keystore
// entries, or entries that do not point to existing files, are reported as errors.
func Load(path string) (*ServiceConfiguration, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", absPath, err)
	}

	cfg := &ServiceConfiguration{path: absPath}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", absPath, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.SSL.resolve(filepath.Dir(absPath)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path is the absolute location the configuration was loaded from.
func (c *ServiceConfiguration) Path() string {
	return c.path
}

func (c *ServiceConfiguration) applyEnv() error {
	var o envOverrides
	if err := envconfig.Process(EnvPrefix, &o); err != nil {
		return err
	}

	if o.EurekaHost != "" {
		c.Eureka.Host = o.EurekaHost
	}
	if o.EurekaPort != 0 {
		c.Eureka.Port = o.EurekaPort
	}
	if o.EurekaSSL != nil {
		c.Eureka.SSL = *o.EurekaSSL
	}
	if o.InstanceHostName != "" {
		c.Instance.HostName = o.InstanceHostName
	}
	if o.InstanceIPAddr != "" {
		c.Instance.IPAddr = o.InstanceIPAddr
	}
	return nil
}

func (c *ServiceConfiguration) applyDefaults() {
	if c.Eureka.ServicePath == "" {
		c.Eureka.ServicePath = defaultServicePath
	}
	if c.Eureka.MaxRetries == nil {
		n := defaultMaxRetries
		c.Eureka.MaxRetries = &n
	}
	if c.Eureka.RequestRetryDelay <= 0 {
		c.Eureka.RequestRetryDelay = defaultRequestRetryDelay
	}
	if c.Eureka.HeartbeatInterval <= 0 {
		c.Eureka.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Eureka.RegisterWithEureka == nil {
		enabled := true
		c.Eureka.RegisterWithEureka = &enabled
	}

	inst := &c.Instance
	if inst.HostName == "" {
		inst.HostName = "localhost"
	}
	if inst.VipAddress == "" {
		inst.VipAddress = inst.App
	}
	if inst.SecureVipAddress == "" {
		inst.SecureVipAddress = inst.VipAddress
	}
	if inst.InstanceID == "" {
		inst.InstanceID = inst.HostName + ":" + inst.App + ":" + strconv.Itoa(inst.listenPort())
	}
	if inst.LeaseRenewalIntervalInSeconds <= 0 {
		inst.LeaseRenewalIntervalInSeconds = defaultLeaseRenewal
	}
	if inst.LeaseDurationInSeconds <= 0 {
		inst.LeaseDurationInSeconds = defaultLeaseDuration
	}
}

func (i *Instance) listenPort() int {
	if i.SecurePort.Enabled && i.SecurePort.Number != 0 {
		return i.SecurePort.Number
	}
	return i.Port.Number
}

// Retries returns the configured number of registration retries.
func (e Eureka) Retries() int {
	if e.MaxRetries == nil || *e.MaxRetries < 0 {
		return 0
	}
	return *e.MaxRetries
}

func (e Eureka) RetryDelay() time.Duration {
	return time.Duration(e.RequestRetryDelay) * time.Millisecond
}

func (e Eureka) Heartbeat() time.Duration {
	return time.Duration(e.HeartbeatInterval) * time.Millisecond
}

// Enabled reports whether the service should talk to the discovery service at all.
func (e Eureka) Enabled() bool {
	return e.RegisterWithEureka == nil || *e.RegisterWithEureka
}

// BaseURL is the registry apps endpoint, always ending in a slash.
func (e Eureka) BaseURL() string {
	scheme := "http"
	if e.SSL {
		scheme = "https"
	}
	servicePath := e.ServicePath
	if servicePath == "" {
		servicePath = defaultServicePath
	}
	if servicePath[0] != '/' {
		servicePath = "/" + servicePath
	}
	if servicePath[len(servicePath)-1] != '/' {
		servicePath += "/"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, e.Host, e.Port, servicePath)
}

func (s *SSL) resolve(baseDir string) error {
	if s.Certificate == "" {
		return ErrMissingCertificate
	}
	if s.Keystore == "" {
		return ErrMissingKeystore
	}

	var err error
	if s.Certificate, err = resolveFile(baseDir, s.Certificate); err != nil {
		return fmt.Errorf("ssl certificate: %w", err)
	}
	if s.Keystore, err = resolveFile(baseDir, s.Keystore); err != nil {
		return fmt.Errorf("ssl keystore: %w", err)
	}
	if s.CAFile != "" {
		if s.CAFile, err = resolveFile(baseDir, s.CAFile); err != nil {
			return fmt.Errorf("ssl caFile: %w", err)
		}
	}
	return nil
}

func resolveFile(baseDir, p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	p = filepath.Clean(p)

	info, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", p)
	}
	return p, nil
}
