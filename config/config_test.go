package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleConfig = `
eureka:
  ssl: true
  host: localhost
  port: 10011
  servicePath: '/eureka/apps'
  maxRetries: 5
  requestRetryDelay: 1000
instance:
  app: pythonservice
  hostName: localhost
  ipAddr: 127.0.0.1
  securePort:
    $: 10018
    '@enabled': true
  port:
    $: 10019
    '@enabled': false
  metadata:
    apiml.service.title: Python Sample Service
ssl:
  certificate: ../keystore/localhost.cer
  keystore: ../keystore/localhost.key
  caFile: ../keystore/localhost.pem
`

// writeLayout creates <root>/config/service-configuration.yml plus the key files it
// references in <root>/keystore.
func writeLayout(t *testing.T, configYAML string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "keystore"), 0o755))
	for _, name := range []string{"localhost.cer", "localhost.key", "localhost.pem"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "keystore", name), []byte("x"), 0o600))
	}
	path := filepath.Join(root, DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeLayout(t, sampleConfig)
	root := filepath.Dir(filepath.Dir(path))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, filepath.Join(root, "keystore", "localhost.cer"), cfg.SSL.Certificate)
	assert.Equal(t, filepath.Join(root, "keystore", "localhost.key"), cfg.SSL.Keystore)
	assert.Equal(t, filepath.Join(root, "keystore", "localhost.pem"), cfg.SSL.CAFile)

	assert.Equal(t, "https://localhost:10011/eureka/apps/", cfg.Eureka.BaseURL())
	assert.Equal(t, 5, cfg.Eureka.Retries())
	assert.Equal(t, time.Second, cfg.Eureka.RetryDelay())
	assert.Equal(t, 30*time.Second, cfg.Eureka.Heartbeat())
	assert.True(t, cfg.Eureka.Enabled())

	assert.Equal(t, "pythonservice", cfg.Instance.VipAddress)
	assert.Equal(t, "pythonservice", cfg.Instance.SecureVipAddress)
	assert.Equal(t, "localhost:pythonservice:10018", cfg.Instance.InstanceID)
	assert.Equal(t, Port{Number: 10018, Enabled: true}, cfg.Instance.SecurePort)
	assert.Equal(t, Port{Number: 10019, Enabled: false}, cfg.Instance.Port)
	assert.Equal(t, "Python Sample Service", cfg.Instance.Metadata["apiml.service.title"])
}

func TestLoad_MissingTLSFields(t *testing.T) {
	tests := []struct {
		name    string
		ssl     string
		wantErr error
	}{
		{
			name:    "no certificate",
			ssl:     "ssl:\n  keystore: ../keystore/localhost.key\n",
			wantErr: ErrMissingCertificate,
		},
		{
			name:    "no keystore",
			ssl:     "ssl:\n  certificate: ../keystore/localhost.cer\n",
			wantErr: ErrMissingKeystore,
		},
		{
			name:    "no ssl section",
			ssl:     "",
			wantErr: ErrMissingCertificate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeLayout(t, "eureka:\n  host: localhost\n"+tt.ssl)
			_, err := Load(path)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_NonexistentKeyFile(t *testing.T) {
	path := writeLayout(t, "ssl:\n  certificate: ../keystore/localhost.cer\n  keystore: ../keystore/missing.key\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Malformed(t *testing.T) {
	path := writeLayout(t, "eureka: [unterminated\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APIML_EUREKA_HOST", "discovery.example.com")
	t.Setenv("APIML_EUREKA_PORT", "443")
	t.Setenv("APIML_EUREKA_SSL", "false")
	t.Setenv("APIML_INSTANCE_HOSTNAME", "svc.example.com")

	path := writeLayout(t, sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://discovery.example.com:443/eureka/apps/", cfg.Eureka.BaseURL())
	assert.Equal(t, "svc.example.com", cfg.Instance.HostName)
	assert.Equal(t, "svc.example.com:pythonservice:10018", cfg.Instance.InstanceID)
	assert.Equal(t, "127.0.0.1", cfg.Instance.IPAddr)
}

func TestLoad_RegistrationDisabled(t *testing.T) {
	path := writeLayout(t, "eureka:\n  registerWithEureka: false\n  maxRetries: 0\n"+
		"ssl:\n  certificate: ../keystore/localhost.cer\n  keystore: ../keystore/localhost.key\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Eureka.Enabled())
	assert.Equal(t, 0, cfg.Eureka.Retries())
}

func TestPort_UnmarshalYAML(t *testing.T) {
	var out struct {
		Plain    Port `yaml:"plain"`
		Mapping  Port `yaml:"mapping"`
		Implicit Port `yaml:"implicit"`
	}
	err := yaml.Unmarshal([]byte("plain: 8080\nmapping: {$: 8443, '@enabled': false}\nimplicit: {$: 9000}\n"), &out)
	require.NoError(t, err)

	assert.Equal(t, Port{Number: 8080, Enabled: true}, out.Plain)
	assert.Equal(t, Port{Number: 8443, Enabled: false}, out.Mapping)
	assert.Equal(t, Port{Number: 9000, Enabled: true}, out.Implicit)

	var bad struct {
		P Port `yaml:"p"`
	}
	assert.Error(t, yaml.Unmarshal([]byte("p: [1, 2]\n"), &bad))
}

func TestResolveInstallPath(t *testing.T) {
	abs, err := ResolveInstallPath("/etc/service/../service-configuration.yml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/service-configuration.yml", abs)

	rel, err := ResolveInstallPath(DefaultPath)
	require.NoError(t, err)
	dir, err := InstallDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultPath), rel)
}
