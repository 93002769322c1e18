// Package testutil contains helpers shared by tests.
package testutil

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
	"time"
)

// LocalTLSServerCert creates a root CA and a server TLS certificate for
// 127.0.0.1 signed by that CA.
func LocalTLSServerCert() (*x509.CertPool, tls.Certificate, error) {
	rootCAs, certPEM, keyPEM, err := localServerCertPEM()
	if err != nil {
		return nil, tls.Certificate{}, err
	}

	serverTLSCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, tls.Certificate{}, fmt.Errorf("server key pair: %w", err)
	}
	return rootCAs, serverTLSCert, nil
}

// LocalTLSServerCertFiles is like LocalTLSServerCert though writes the PEM
// encoded certificate and key to files in dir, and returns their paths.
func LocalTLSServerCertFiles(dir string) (*x509.CertPool, string, string, error) {
	rootCAs, certPEM, keyPEM, err := localServerCertPEM()
	if err != nil {
		return nil, "", "", err
	}

	certPath := filepath.Join(dir, "cert.pem")
	if err := os.WriteFile(certPath, certPEM, 0o600); err != nil {
		return nil, "", "", fmt.Errorf("write cert: %w", err)
	}
	keyPath := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return nil, "", "", fmt.Errorf("write key: %w", err)
	}
	return rootCAs, certPath, keyPath, nil
}

func localServerCertPEM() (*x509.CertPool, []byte, []byte, error) {
	rootKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generate key: %w", err)
	}
	rootTemplate, err := certTemplate()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("root cert template: %w", err)
	}
	// CA certificate.
	rootTemplate.IsCA = true
	rootTemplate.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature
	rootTemplate.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}

	_, rootCert, err := cert(
		rootTemplate, rootTemplate, &rootKey.PublicKey, rootKey,
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("root cert: %w", err)
	}

	serverKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generate key: %w", err)
	}
	serverTemplate, err := certTemplate()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("server cert template: %w", err)
	}
	serverTemplate.KeyUsage = x509.KeyUsageDigitalSignature
	serverTemplate.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}
	serverTemplate.IPAddresses = []net.IP{net.IPv4(127, 0, 0, 1)}

	// Sign the cert using the root CA.
	serverCertDER, _, err := cert(
		serverTemplate, rootCert, &serverKey.PublicKey, rootKey,
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("server cert: %w", err)
	}

	rootCAs := x509.NewCertPool()
	rootCAs.AddCert(rootCert)

	certPEM := pem.EncodeToMemory(&pem.Block{
		Type: "CERTIFICATE", Bytes: serverCertDER,
	})
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(serverKey),
	})
	return rootCAs, certPEM, keyPEM, nil
}

func cert(
	template *x509.Certificate,
	parent *x509.Certificate,
	publicKey interface{},
	parentPrivateKey interface{},
) ([]byte, *x509.Certificate, error) {
	certDER, err := x509.CreateCertificate(
		rand.Reader, template, parent, publicKey, parentPrivateKey,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create cert: %w", err)
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, nil, fmt.Errorf("parse cert: %w", err)
	}
	return certDER, cert, nil
}

func certTemplate() (*x509.Certificate, error) {
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, fmt.Errorf("generate serial: %w", err)
	}

	return &x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               pkix.Name{Organization: []string{"Epidemic"}},
		SignatureAlgorithm:    x509.SHA256WithRSA,
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour * 24 * 30),
		BasicConstraintsValid: true,
	}, nil
}
