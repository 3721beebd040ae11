package dian

import (
	"fmt"
	"unicode"
)

// Pesos del módulo 11 para el dígito de verificación del NIT (Orden
// Administrativa 4 de 1989, DIAN), aplicados a los 9 primeros dígitos de
// izquierda a derecha.
var nitWeights = [9]int{41, 37, 29, 23, 19, 17, 13, 7, 3}

// ComputeNITVerificationDigit calcula el dígito de verificación para los 9
// primeros dígitos del NIT. taxID admite puntos y guiones.
func ComputeNITVerificationDigit(taxID string) (byte, error) {
	digits := extractDigits(taxID)
	if len(digits) < 9 {
		return 0, fmt.Errorf("dian: se requieren al menos 9 dígitos para calcular el dígito de verificación, se encontraron %d", len(digits))
	}
	return checkDigit(digits[:9]), nil
}

// ValidateNITVerificationDigit valida que un NIT de 10 dígitos (con o sin
// puntos/guiones: "123456789-1", "123.456.789-1", "1234567891") tenga el
// dígito de verificación correcto.
func ValidateNITVerificationDigit(taxID string) error {
	digits := extractDigits(taxID)
	if len(digits) < 9 {
		return fmt.Errorf("dian: NIT debe tener al menos 9 dígitos, se encontraron %d", len(digits))
	}
	if len(digits) != 10 {
		return fmt.Errorf("dian: NIT de persona jurídica debe incluir dígito de verificación (10 dígitos), se recibieron %d", len(digits))
	}
	expected := checkDigit(digits[:9])
	if digits[9] != expected {
		return fmt.Errorf("dian: dígito de verificación del NIT inválido: esperado %c, recibido %c", expected, digits[9])
	}
	return nil
}

func checkDigit(base []byte) byte {
	var sum int
	for i, d := range base {
		sum += int(d-'0') * nitWeights[i]
	}
	remainder := sum % 11
	if remainder <= 1 {
		return byte('0' + remainder)
	}
	return byte('0' + (11 - remainder))
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
