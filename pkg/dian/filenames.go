package dian

import "strings"

// DocumentFilenames genera los nombres de archivo que la DIAN exige para el
// XML y su ZIP contenedor: {NIT_OFE}{SERIES}{NUMBER} (NIT sin DV, solo dígitos).
// Ejemplo: 900123456SETP000001.xml
func DocumentFilenames(nit, series, number string) (xmlName, zipName string) {
	clean := nit
	if idx := strings.Index(clean, "-"); idx != -1 {
		clean = clean[:idx]
	}
	var b strings.Builder
	for _, r := range clean {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	base := b.String() + strings.TrimSpace(series) + strings.TrimSpace(number)
	return base + ".xml", base + ".zip"
}
