package dian

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// CufeParams es la entrada del cálculo del CUFE. Los campos siguen el orden
// estricto de concatenación que define el Anexo Técnico; la capa de aplicación
// los arma desde la factura, el emisor, el cliente y la resolución.
type CufeParams struct {
	NumFac         string          // prefijo + número, sin espacios
	FecFac         string          // fecha de emisión YYYY-MM-DD
	ValFac         decimal.Decimal // valor total antes de impuestos adicionales
	CodImp1        string          // código impuesto 1 (01 = IVA)
	ValImp1        decimal.Decimal
	CodImp2        string
	ValImp2        decimal.Decimal
	CodImp3        string
	ValImp3        decimal.Decimal
	ValPag         decimal.Decimal // valor total a pagar
	NitOferente    string          // NIT del emisor, se limpia a solo dígitos
	DocAdquiriente string          // documento del cliente, se limpia a solo dígitos
	ClaveTecnica   string          // clave técnica de la resolución de numeración
	TipoAmbiente   string          // "1" producción, "2" habilitación
}

// CufeCalculatorService calcula el Código Único de Factura Electrónica:
// SHA-384 en hexadecimal sobre la cadena de concatenación del Anexo.
type CufeCalculatorService struct{}

// NewCufeCalculatorService crea el servicio.
func NewCufeCalculatorService() *CufeCalculatorService {
	return &CufeCalculatorService{}
}

// Calculate genera el CUFE. La cadena es:
//
//	NumFac + FecFac + ValFac + CodImp1 + ValImp1 + CodImp2 + ValImp2 +
//	CodImp3 + ValImp3 + ValPag + NitOfe + DocAdq + ClTec + TipoAmb
//
// con los montos a 2 decimales fijos y los identificadores a solo dígitos.
func (s *CufeCalculatorService) Calculate(p *CufeParams) (string, error) {
	if p == nil {
		return "", fmt.Errorf("dian: CufeParams es obligatorio")
	}

	numFac := whitespaceRe.ReplaceAllString(strings.TrimSpace(p.NumFac), "")
	if numFac == "" {
		return "", fmt.Errorf("dian: NumFac es obligatorio")
	}
	if p.FecFac == "" {
		return "", fmt.Errorf("dian: FecFac es obligatorio")
	}
	nitOfe := onlyDigits(p.NitOferente)
	if nitOfe == "" {
		return "", fmt.Errorf("dian: NitOferente es obligatorio para el CUFE")
	}
	docAdq := onlyDigits(p.DocAdquiriente)
	if docAdq == "" {
		return "", fmt.Errorf("dian: DocAdquiriente es obligatorio para el CUFE")
	}
	if p.ClaveTecnica == "" {
		return "", fmt.Errorf("dian: ClaveTecnica es obligatoria para el CUFE")
	}

	cod1, cod2, cod3 := p.CodImp1, p.CodImp2, p.CodImp3
	if cod1 == "" {
		cod1 = TaxCodeIVA
	}
	if cod2 == "" {
		cod2 = "00"
	}
	if cod3 == "" {
		cod3 = "00"
	}
	tipoAmb := p.TipoAmbiente
	if tipoAmb == "" {
		tipoAmb = "1"
	}

	var sb strings.Builder
	sb.WriteString(numFac)
	sb.WriteString(p.FecFac)
	sb.WriteString(formatDecimalForCufe(p.ValFac))
	sb.WriteString(cod1)
	sb.WriteString(formatDecimalForCufe(p.ValImp1))
	sb.WriteString(cod2)
	sb.WriteString(formatDecimalForCufe(p.ValImp2))
	sb.WriteString(cod3)
	sb.WriteString(formatDecimalForCufe(p.ValImp3))
	sb.WriteString(formatDecimalForCufe(p.ValPag))
	sb.WriteString(nitOfe)
	sb.WriteString(docAdq)
	sb.WriteString(p.ClaveTecnica)
	sb.WriteString(tipoAmb)

	hash := sha512.Sum384([]byte(sb.String()))
	return hex.EncodeToString(hash[:]), nil
}

// formatDecimalForCufe: sin separador de miles, punto decimal, 2 decimales.
func formatDecimalForCufe(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
