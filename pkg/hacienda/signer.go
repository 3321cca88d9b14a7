// Package hacienda: interfaz para firma digital de comprobantes (XAdES-EPES, Hacienda v4.4).

package hacienda

import "context"

// Signer firma el XML de un comprobante y devuelve el XML con el nodo ds:Signature
// como último hijo del elemento raíz.
type Signer interface {
	// Sign recibe el XML sin firmar, el certificado .p12 del emisor y su contraseña.
	Sign(ctx context.Context, xmlBytes, certificate []byte, password string) ([]byte, error)
}
