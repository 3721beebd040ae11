package signer

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
)

// LoadFromP12 carga el certificado de firma y su llave privada desde un
// contenedor PKCS#12 (.p12/.pfx), el formato en que las CA colombianas
// entregan los certificados de facturación. password puede ser vacío.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("leer p12 %s: %w", path, err)
	}
	priv, leaf, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	if leaf == nil {
		return tls.Certificate{}, fmt.Errorf("p12 sin certificado hoja")
	}
	// El firmador solo necesita la hoja; la cadena intermedia no viaja en la
	// firma XAdES.
	return tls.Certificate{
		Certificate: [][]byte{leaf.Raw},
		PrivateKey:  priv,
		Leaf:        leaf,
	}, nil
}

// LoadFromPEM carga el certificado desde archivos PEM. Si keyPath es vacío se
// asume que certPath contiene certificado y llave combinados.
func LoadFromPEM(certPath, keyPath string) (tls.Certificate, error) {
	if certPath == "" {
		return tls.Certificate{}, nil
	}
	if keyPath == "" {
		keyPath = certPath
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cargar PEM %s: %w", certPath, err)
	}
	return cert, nil
}

// CertDigestAndIssuerSerial calcula los datos del certificado que van en
// xades:SigningCertificate: digest SHA-256 en Base64, nombre del emisor y
// serial en hexadecimal.
func CertDigestAndIssuerSerial(cert *x509.Certificate) (digestB64, issuerName, serialHex string) {
	sum := sha256.Sum256(cert.Raw)
	return base64.StdEncoding.EncodeToString(sum[:]),
		cert.Issuer.String(),
		cert.SerialNumber.Text(16)
}
