package signer

// Política de firma DIAN v2, obligatoria en el SignaturePolicyIdentifier de
// toda firma XAdES-EPES de factura electrónica colombiana.
const SignaturePolicyURLV2 = "https://facturaelectronica.dian.gov.co/politicadefirma/v2/politicadefirmav2.pdf"

// SigPolicyHashDigest es el SHA-256 (Base64) del PDF de la política v2.
var SigPolicyHashDigest = "dMoMvtcG5aIzgYo0tIsSQeVJBDnUnfSOfBpxXrmor0Y="

// Namespaces y algoritmos XMLDSig/XAdES que exige el Anexo Técnico.
const (
	NamespaceDS        = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES     = "http://uri.etsi.org/01903/v1.3.2#"
	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA256       = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256          = "http://www.w3.org/2000/09/xmldsig#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

// InvoiceElementID es el Id del elemento <Invoice> al que apunta la Reference
// de la firma; debe coincidir con el atributo que escribe el builder del XML.
const InvoiceElementID = "invoice-id"
