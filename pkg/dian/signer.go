package dian

import "crypto/tls"

// Signer firma el XML de una factura con XAdES-EPES y devuelve el documento
// con el nodo ds:Signature inyectado en el ext:ExtensionContent reservado por
// el builder. La implementación vive en la capa de infraestructura; este
// paquete solo fija el contrato.
type Signer interface {
	Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error)
}
