// Package dian reúne los catálogos, algoritmos y validaciones del Anexo
// Técnico de Factura Electrónica de Venta DIAN (Colombia) v1.9 que no dependen
// de ninguna otra capa: códigos de catálogo, CUFE, dígito de verificación del
// NIT y nombres de archivo de entrega.
package dian

// Tabla 17 del Anexo: responsabilidades fiscales del RUT. El anexo las lista
// como "O-XX"; algunos sistemas emiten "0-XX" con cero, por eso el mapa de
// validación acepta ambas grafías.
const (
	TaxLevelGranContribuyente  = "O-13"
	TaxLevelAutorretenedor     = "O-15"
	TaxLevelAgenteRetencionIVA = "O-23"
	TaxLevelRegimenSimple      = "O-47"
	TaxLevelResponsableIVA     = "O-48"
	TaxLevelNoResponsableIVA   = "O-49"
	TaxLevelNoAplica           = "R-99-PN"
)

// ValidFiscalResponsibilityCodes responsabilidades fiscales aceptadas.
var ValidFiscalResponsibilityCodes = map[string]bool{
	TaxLevelGranContribuyente:  true,
	TaxLevelAutorretenedor:     true,
	TaxLevelAgenteRetencionIVA: true,
	TaxLevelRegimenSimple:      true,
	TaxLevelResponsableIVA:     true,
	TaxLevelNoResponsableIVA:   true,
	TaxLevelNoAplica:           true,
	"0-13":                     true,
	"0-15":                     true,
	"0-23":                     true,
	"0-47":                     true,
}

// Tabla 6 del Anexo: unidades de medida UNECE para @unitCode.
const (
	UnitUnit        = "94"  // unidad
	UnitKilogram    = "KGM" // kilogramo
	UnitGram        = "GRM" // gramo
	UnitLitre       = "LTR" // litro
	UnitMetre       = "MTR" // metro
	UnitSquareMetre = "MTK" // metro cuadrado
	UnitCubicMetre  = "MTQ" // metro cúbico
	UnitDozen       = "DZN" // docena
	UnitHour        = "HUR" // hora
	UnitDay         = "DAY" // día
)

// ValidMeasurementUnitCodes unidades de medida de uso común en facturación.
var ValidMeasurementUnitCodes = map[string]bool{
	UnitUnit: true, UnitKilogram: true, UnitGram: true, UnitLitre: true,
	UnitMetre: true, UnitSquareMetre: true, UnitCubicMetre: true,
	UnitDozen: true, UnitHour: true, UnitDay: true,
}

// Tabla 14 del Anexo: forma de pago.
const (
	PaymentFormContado = "1"
	PaymentFormCredito = "2"
)

// Tabla 13 del Anexo: medios de pago de uso frecuente.
const (
	PaymentMethodEfectivo       = "10"
	PaymentMethodTransferencia  = "47"
	PaymentMethodTarjetaCredito = "48"
	PaymentMethodTarjetaDebito  = "49"
)

// Tabla 11 del Anexo: tipos de impuesto.
const (
	TaxCodeIVA     = "01"
	TaxCodeINC     = "04"
	TaxCodeReteIVA = "05"
)

// Tabla 3 del Anexo: tipos de identificación del adquiriente.
const (
	IdentificationTypeNIT = "31" // NIT, requiere dígito de verificación
	IdentificationTypeCC  = "13" // cédula de ciudadanía
)
