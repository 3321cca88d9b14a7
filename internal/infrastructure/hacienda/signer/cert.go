// Carga del certificado del emisor (llave criptográfica .p12 emitida por el BCCR / ATV).

package signer

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pkcs12"
)

// LoadCertificate decodifica el .p12 de la empresa (bytes almacenados) con su PIN.
func LoadCertificate(p12 []byte, password string) (tls.Certificate, error) {
	if len(p12) == 0 {
		return tls.Certificate{}, fmt.Errorf("certificado vacío")
	}
	priv, cert, err := pkcs12.Decode(p12, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// CertDigestAndIssuerSerial devuelve el digest SHA-256 del certificado (Base64), el emisor y el serial decimal.
func CertDigestAndIssuerSerial(cert *x509.Certificate) (digestB64 string, issuerName string, serial string) {
	h := sha256.Sum256(cert.Raw)
	return base64.StdEncoding.EncodeToString(h[:]), cert.Issuer.String(), cert.SerialNumber.String()
}
