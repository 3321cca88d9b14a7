// Constantes para firma XAdES-EPES de comprobantes electrónicos (Hacienda, v4.4).

package signer

// Política de firma de Hacienda (Resolución DGT-R-48-2016 y sus reformas).
const (
	SignaturePolicyURL = "https://www.hacienda.go.cr/ATV/ComprobanteElectronico/docs/esquemas/2016/v4.4/Resolucion_General_sobre_disposiciones_tecnicas_comprobantes_electronicos_para_efectos_tributarios.pdf"
)

// SigPolicyHashDigest SHA-256 (Base64) del documento de política de firma.
var SigPolicyHashDigest = "DWxin1xWOeI8OuWQXazh4VjLWAaCLAA954em7DMh0h8="

// Namespaces y algoritmos XMLDSig / XAdES.
const (
	NamespaceDS        = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES     = "http://uri.etsi.org/01903/v1.3.2#"
	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA256       = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256          = "http://www.w3.org/2001/04/xmlenc#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

// Identificadores de los nodos de la firma.
const (
	SignatureID        = "Signature-comprobante"
	SignedPropertiesID = "SignedProperties-comprobante"
)
