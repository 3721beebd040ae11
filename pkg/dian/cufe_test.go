package dian_test

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/pkg/dian"
)

func baseParams() *dian.CufeParams {
	return &dian.CufeParams{
		NumFac:         "SETP000000001",
		FecFac:         "2026-08-31",
		ValFac:         decimal.NewFromInt(100000),
		CodImp1:        dian.TaxCodeIVA,
		ValImp1:        decimal.NewFromInt(19000),
		ValPag:         decimal.NewFromInt(119000),
		NitOferente:    "900123456",
		DocAdquiriente: "901234567",
		ClaveTecnica:   "fc8eac422eba16e22ffd8c6f94b3f40a6e38162c",
		TipoAmbiente:   "2",
	}
}

// El CUFE es SHA-384 en hexadecimal: 96 caracteres, determinista.
func TestCufe_FormatoYDeterminismo(t *testing.T) {
	svc := dian.NewCufeCalculatorService()

	cufe1, err := svc.Calculate(baseParams())
	require.NoError(t, err)
	cufe2, err := svc.Calculate(baseParams())
	require.NoError(t, err)

	assert.Equal(t, cufe1, cufe2, "mismos parámetros → mismo CUFE")
	assert.Len(t, cufe1, 96, "SHA-384 hexadecimal")
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{96}$`), cufe1)
}

// Cambiar cualquier parámetro de la cadena cambia el hash.
func TestCufe_SensibleACadaParametro(t *testing.T) {
	svc := dian.NewCufeCalculatorService()
	base, err := svc.Calculate(baseParams())
	require.NoError(t, err)

	mutations := map[string]func(*dian.CufeParams){
		"número":        func(p *dian.CufeParams) { p.NumFac = "SETP000000002" },
		"fecha":         func(p *dian.CufeParams) { p.FecFac = "2026-09-01" },
		"valor":         func(p *dian.CufeParams) { p.ValFac = decimal.NewFromInt(100001) },
		"iva":           func(p *dian.CufeParams) { p.ValImp1 = decimal.NewFromInt(19001) },
		"nit emisor":    func(p *dian.CufeParams) { p.NitOferente = "900123457" },
		"adquiriente":   func(p *dian.CufeParams) { p.DocAdquiriente = "901234568" },
		"clave técnica": func(p *dian.CufeParams) { p.ClaveTecnica = "otra-clave" },
		"ambiente":      func(p *dian.CufeParams) { p.TipoAmbiente = "1" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			p := baseParams()
			mutate(p)
			got, err := svc.Calculate(p)
			require.NoError(t, err)
			assert.NotEqual(t, base, got)
		})
	}
}

// Los montos entran a la cadena con 2 decimales fijos: 100000 y 100000.00
// producen el mismo CUFE.
func TestCufe_NormalizaDecimales(t *testing.T) {
	svc := dian.NewCufeCalculatorService()

	p1 := baseParams()
	base, err := svc.Calculate(p1)
	require.NoError(t, err)

	p2 := baseParams()
	p2.ValFac = decimal.RequireFromString("100000.00")
	p2.ValPag = decimal.RequireFromString("119000.000")
	got, err := svc.Calculate(p2)
	require.NoError(t, err)

	assert.Equal(t, base, got)
}

// Los códigos de impuesto vacíos toman los defaults 01/00/00 del Anexo.
func TestCufe_DefaultsDeCodigosDeImpuesto(t *testing.T) {
	svc := dian.NewCufeCalculatorService()

	explicit := baseParams()
	explicit.CodImp1 = "01"
	explicit.CodImp2 = "00"
	explicit.CodImp3 = "00"
	want, err := svc.Calculate(explicit)
	require.NoError(t, err)

	empty := baseParams()
	empty.CodImp1 = ""
	empty.CodImp2 = ""
	empty.CodImp3 = ""
	got, err := svc.Calculate(empty)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

// El NIT y el documento del adquiriente se limpian a solo dígitos.
func TestCufe_LimpiaIdentificadores(t *testing.T) {
	svc := dian.NewCufeCalculatorService()
	base, err := svc.Calculate(baseParams())
	require.NoError(t, err)

	p := baseParams()
	p.NitOferente = "900.123.456"
	p.DocAdquiriente = "901234567"
	got, err := svc.Calculate(p)
	require.NoError(t, err)

	assert.Equal(t, base, got)
}

func TestCufe_ParametrosObligatorios(t *testing.T) {
	svc := dian.NewCufeCalculatorService()

	cases := []struct {
		name   string
		mutate func(*dian.CufeParams)
	}{
		{"sin número", func(p *dian.CufeParams) { p.NumFac = "   " }},
		{"sin fecha", func(p *dian.CufeParams) { p.FecFac = "" }},
		{"sin nit emisor", func(p *dian.CufeParams) { p.NitOferente = "" }},
		{"sin adquiriente", func(p *dian.CufeParams) { p.DocAdquiriente = "sin-digitos" }},
		{"sin clave técnica", func(p *dian.CufeParams) { p.ClaveTecnica = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := baseParams()
			tc.mutate(p)
			_, err := svc.Calculate(p)
			assert.Error(t, err)
		})
	}

	_, err := svc.Calculate(nil)
	assert.Error(t, err, "params nil debe fallar")
}
