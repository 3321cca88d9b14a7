// certcheck verifica que la llave criptográfica (.p12) de un emisor abra con su PIN
// antes de cargarla a la API.
//
// Uso: go run ./cmd/certcheck ruta/llave.p12 PIN
// También acepta CERT_PATH y CERT_PASSWORD del entorno.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/hacienda/signer"
)

func main() {
	certPath := os.Getenv("CERT_PATH")
	certPass := os.Getenv("CERT_PASSWORD")
	if len(os.Args) > 1 {
		certPath = os.Args[1]
	}
	if len(os.Args) > 2 {
		certPass = os.Args[2]
	}
	if certPath == "" {
		fmt.Fprintln(os.Stderr, "uso: certcheck <ruta.p12> <pin>")
		os.Exit(2)
	}

	fmt.Println("DIAGNÓSTICO DE LLAVE CRIPTOGRÁFICA (HACIENDA)")
	fmt.Println("---------------------------------------------")
	fmt.Printf("Archivo: %s\n", certPath)

	p12Data, err := os.ReadFile(certPath)
	if err != nil {
		fmt.Printf("ERROR DE ARCHIVO: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Archivo encontrado. Tamaño: %d bytes\n", len(p12Data))

	cert, err := signer.LoadCertificate(p12Data, certPass)
	if err != nil {
		fmt.Println("ERROR DE PIN O FORMATO: el archivo existe pero no abre con el PIN indicado.")
		fmt.Printf("Detalle técnico: %v\n", err)
		os.Exit(1)
	}

	digest, issuer, serial := signer.CertDigestAndIssuerSerial(cert.Leaf)
	fmt.Printf("Titular:  %s\n", cert.Leaf.Subject.String())
	fmt.Printf("Emisor:   %s\n", issuer)
	fmt.Printf("Serial:   %s\n", serial)
	fmt.Printf("SHA-256:  %s\n", digest)
	fmt.Printf("Vigencia: %s a %s\n", cert.Leaf.NotBefore.Format(time.DateOnly), cert.Leaf.NotAfter.Format(time.DateOnly))
	if time.Now().After(cert.Leaf.NotAfter) {
		fmt.Println("ATENCIÓN: la llave está vencida; Hacienda rechazará los comprobantes firmados con ella.")
		os.Exit(1)
	}
	fmt.Println("La llave y el PIN son correctos.")
}
