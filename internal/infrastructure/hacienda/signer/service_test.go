package signer

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
)

const unsignedXML = `<?xml version="1.0" encoding="UTF-8"?>
<FacturaElectronica xmlns="https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.4/facturaElectronica">
  <Clave>50607032500310112345600100001010000000001112345678</Clave>
  <Emisor>
    <Nombre>Café &amp; Cía</Nombre>
  </Emisor>
</FacturaElectronica>`

func testCertificate(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(4242),
		Subject:      pkix.Name{CommonName: "PERSONA JURIDICA PRUEBA", SerialNumber: "CPJ-3-101-123456"},
		Issuer:       pkix.Name{CommonName: "CA SINPE - PERSONA JURIDICA v2"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func newTestService() *DigitalSignatureService {
	s := NewDigitalSignatureService()
	s.now = func() time.Time { return time.Date(2025, 3, 8, 3, 0, 0, 0, time.UTC) }
	return s
}

func TestSignWithCertificate_FirmaComoUltimoHijo(t *testing.T) {
	cert := testCertificate(t)
	signed, err := newTestService().SignWithCertificate([]byte(unsignedXML), cert)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	children := doc.Root().ChildElements()
	require.NotEmpty(t, children)
	sig := children[len(children)-1]
	assert.Equal(t, "Signature", sig.Tag)
	assert.Equal(t, "Café & Cía", doc.Root().FindElement("Emisor/Nombre").Text(), "el contenido no cambia")

	ref := sig.FindElement("SignedInfo/Reference")
	require.NotNil(t, ref)
	assert.Equal(t, "", ref.SelectAttrValue("URI", "x"), "se firma el documento completo")
	assert.Equal(t, "2025-03-07T21:00:00-06:00", sig.FindElement(".//SigningTime").Text())
}

func TestSignWithCertificate_DigestYFirmaVerificables(t *testing.T) {
	cert := testCertificate(t)
	signed, err := newTestService().SignWithCertificate([]byte(unsignedXML), cert)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	sig := doc.Root().SelectElement("Signature")
	require.NotNil(t, sig)

	// Digest del documento original canonicalizado.
	canonical, err := canonicalizeXML([]byte(unsignedXML))
	require.NoError(t, err)
	want := sha256.Sum256(canonical)
	assert.Equal(t, base64.StdEncoding.EncodeToString(want[:]), sig.FindElement("SignedInfo/Reference/DigestValue").Text())

	// SignatureValue sobre SignedInfo canonicalizado.
	siDoc := etree.NewDocument()
	siDoc.SetRoot(sig.SelectElement("SignedInfo").Copy())
	siBytes, err := siDoc.WriteToBytes()
	require.NoError(t, err)
	canonicalSI, err := canonicalizeXML(siBytes)
	require.NoError(t, err)
	hash := sha256.Sum256(canonicalSI)

	sigValue, err := base64.StdEncoding.DecodeString(sig.SelectElement("SignatureValue").Text())
	require.NoError(t, err)
	pub := cert.PrivateKey.(*rsa.PrivateKey).Public().(*rsa.PublicKey)
	assert.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA256, hash[:], sigValue))

	certB64 := sig.FindElement("KeyInfo/X509Data/X509Certificate").Text()
	assert.Equal(t, base64.StdEncoding.EncodeToString(cert.Certificate[0]), certB64)
	assert.Equal(t, "4242", sig.FindElement(".//X509SerialNumber").Text())
}

func TestSignWithCertificate_RechazaDobleFirma(t *testing.T) {
	cert := testCertificate(t)
	s := newTestService()
	signed, err := s.SignWithCertificate([]byte(unsignedXML), cert)
	require.NoError(t, err)

	_, err = s.SignWithCertificate(signed, cert)
	assert.Error(t, err)
}

func TestSign_CertificadoInvalido(t *testing.T) {
	s := newTestService()

	_, err := s.Sign(context.Background(), []byte(unsignedXML), nil, "1234")
	assert.ErrorIs(t, err, domain.ErrSigning)

	_, err = s.Sign(context.Background(), []byte(unsignedXML), []byte("no es un p12"), "1234")
	assert.ErrorIs(t, err, domain.ErrSigning)
}

func TestSignWithCertificate_SinLlaveRSA(t *testing.T) {
	cert := testCertificate(t)
	cert.PrivateKey = nil
	_, err := newTestService().SignWithCertificate([]byte(unsignedXML), cert)
	assert.Error(t, err)
}
