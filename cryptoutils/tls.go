package cryptoutils

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/ruteri/apiml-sample-service/config"
)

var ErrNoCACertificates = errors.New("no certificates found in CA file")

// NewServerTLSConfig builds the TLS context terminating connections on the service
// listener from the certificate and key in ssl. When a CA file is configured, client
// certificates are requested and verified against it if presented.
func NewServerTLSConfig(ssl config.SSL) (*tls.Config, error) {
	cert, err := LoadKeyPair(ssl)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if ssl.CAFile != "" {
		pool, err := LoadCertPool(ssl.CAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
	}
	return tlsConfig, nil
}

// NewClientTLSConfig builds the TLS configuration used to call the discovery service.
// The service certificate is presented as the client certificate and the CA file, if
// any, replaces the system roots.
func NewClientTLSConfig(ssl config.SSL) (*tls.Config, error) {
	cert, err := LoadKeyPair(ssl)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if ssl.CAFile != "" {
		pool, err := LoadCertPool(ssl.CAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = pool
	}
	return tlsConfig, nil
}

// LoadKeyPair reads the PEM certificate chain and private key named in ssl. Keys in
// legacy encrypted PEM form are decrypted with ssl.KeyPassword.
func LoadKeyPair(ssl config.SSL) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(ssl.Certificate)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(ssl.Keystore)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read key: %w", err)
	}

	if ssl.KeyPassword != "" {
		keyPEM, err = decryptKeyPEM(keyPEM, ssl.KeyPassword)
		if err != nil {
			return tls.Certificate{}, err
		}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("load key pair: %w", err)
	}
	return cert, nil
}

// LoadCertPool parses every PEM certificate in path into a new pool.
func LoadCertPool(path string) (*x509.CertPool, error) {
	caPEM, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("%s: %w", path, ErrNoCACertificates)
	}
	return pool, nil
}

func decryptKeyPEM(keyPEM []byte, password string) ([]byte, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, errors.New("failed to decode private key PEM block")
	}
	//nolint:staticcheck // the enablers still ship keys in legacy encrypted PEM
	if !x509.IsEncryptedPEMBlock(block) {
		return keyPEM, nil
	}
	//nolint:staticcheck
	der, err := x509.DecryptPEMBlock(block, []byte(password))
	if err != nil {
		return nil, fmt.Errorf("decrypt private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
}

// NewDevServerTLSConfig serves a throwaway self-signed localhost certificate instead
// of the configured key pair. Clients must skip verification.
func NewDevServerTLSConfig() (*tls.Config, error) {
	cert, err := RandomCert()
	if err != nil {
		return nil, fmt.Errorf("generate development certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
