// Package ingress terminates TLS for the reverse-proxy listener in front of
// the wrapped LLM upstream and drives wrapper.ProcessTurn per request.
// Adapted from the teacher's internal/proxy: the CertManager/GenerateCA
// machinery is kept verbatim for the common "operator wants a
// locally-trusted cert" case, while the MITM CONNECT-tunnel and arbitrary
// upstream interception are replaced by a single declared upstream chat
// endpoint (spec §9's CA generation / TLS MITM ingress expansion).
package ingress

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CertManager generates and caches per-hostname leaf certificates signed by
// a locally-trusted CA, for operators who want TLS termination without
// bringing their own certificate.
type CertManager struct {
	caCert    *x509.Certificate
	caKey     *rsa.PrivateKey
	caTLSCert tls.Certificate
	cache     map[string]*tls.Certificate
	cacheMu   sync.RWMutex
}

// NewCertManager loads a CA certificate/key pair from disk.
func NewCertManager(caCertPath, caKeyPath string) (*CertManager, error) {
	caCertPath = filepath.Clean(caCertPath)
	caKeyPath = filepath.Clean(caKeyPath)

	caCertPEM, err := os.ReadFile(caCertPath) //#nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	caKeyPEM, err := os.ReadFile(caKeyPath) //#nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read CA key: %w", err)
	}

	caCertBlock, _ := pem.Decode(caCertPEM)
	if caCertBlock == nil {
		return nil, fmt.Errorf("failed to decode CA certificate PEM")
	}
	caCert, err := x509.ParseCertificate(caCertBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}

	caKeyBlock, _ := pem.Decode(caKeyPEM)
	if caKeyBlock == nil {
		return nil, fmt.Errorf("failed to decode CA key PEM")
	}
	caKey, err := x509.ParsePKCS1PrivateKey(caKeyBlock.Bytes)
	if err != nil {
		key, err2 := x509.ParsePKCS8PrivateKey(caKeyBlock.Bytes)
		if err2 != nil {
			return nil, fmt.Errorf("failed to parse CA key: %w (also tried PKCS8: %v)", err, err2)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("CA key is not an RSA key")
		}
		caKey = rsaKey
	}

	caTLSCert, err := tls.X509KeyPair(caCertPEM, caKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS certificate: %w", err)
	}

	return &CertManager{
		caCert:    caCert,
		caKey:     caKey,
		caTLSCert: caTLSCert,
		cache:     make(map[string]*tls.Certificate),
	}, nil
}

// GetCertificate returns a leaf certificate for the listener's SNI hostname,
// generating and caching one on first use.
func (cm *CertManager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	hostname := hello.ServerName
	if hostname == "" {
		hostname = "localhost"
	}

	cm.cacheMu.RLock()
	if cert, ok := cm.cache[hostname]; ok {
		cm.cacheMu.RUnlock()
		return cert, nil
	}
	cm.cacheMu.RUnlock()

	cert, err := cm.generateCert(hostname)
	if err != nil {
		return nil, err
	}

	cm.cacheMu.Lock()
	cm.cache[hostname] = cert
	cm.cacheMu.Unlock()

	return cert, nil
}

func (cm *CertManager) generateCert(hostname string) (*tls.Certificate, error) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   hostname,
			Organization: []string{"Privacy Gateway"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour * 365),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	if ip := net.ParseIP(hostname); ip != nil {
		template.IPAddresses = []net.IP{ip}
	} else {
		template.DNSNames = []string{hostname}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, cm.caCert, &privKey.PublicKey, cm.caKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS certificate: %w", err)
	}
	return &tlsCert, nil
}

// GetCACertificate returns the CA certificate in PEM format.
func (cm *CertManager) GetCACertificate() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cm.caCert.Raw})
}

// GenerateCA creates a new self-signed CA certificate and key pair and
// saves them to certPath/keyPath.
func GenerateCA(certPath, keyPath string) error {
	dir := filepath.Dir(certPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	privKey, err := rsa.GenerateKey(rand.Reader, 4096)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   "Privacy Gateway CA",
			Organization: []string{"Privacy Gateway"},
			Country:      []string{"DE"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &privKey.PublicKey, privKey)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	if err := os.WriteFile(certPath, certPEM, 0600); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}

	return nil
}
