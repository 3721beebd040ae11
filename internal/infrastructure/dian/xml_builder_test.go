package dian_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	infradian "github.com/jhoicas/Facturacion-api/internal/infrastructure/dian"
)

func renderInput() *billing.RenderInput {
	return &billing.RenderInput{
		Invoice: &entity.Invoice{
			ID:                   1,
			Series:               "SETP",
			Number:               "000000001",
			IssueDate:            time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
			IssueTime:            "10:30:00",
			Currency:             "COP",
			OperationType:        "10",
			Status:               entity.StatusDraft,
			CUFE:                 "cufe-de-prueba",
			LineExtensionAmount:  decimal.NewFromInt(100000),
			TaxExclusiveAmount:   decimal.NewFromInt(100000),
			TaxAmount:            decimal.NewFromInt(19000),
			TaxInclusiveAmount:   decimal.NewFromInt(119000),
			PayableAmount:        decimal.NewFromInt(119000),
			AllowanceTotalAmount: decimal.Zero,
			ChargeTotalAmount:    decimal.Zero,
			TaxRate:              decimal.NewFromInt(19),
		},
		Items: []*entity.InvoiceItem{{
			ID:           "item-1",
			ItemID:       "prod-1",
			Description:  "Café tostado 500g",
			UnitMeasure:  "94",
			Quantity:     decimal.NewFromInt(2),
			UnitPrice:    decimal.NewFromInt(50000),
			LineSubtotal: decimal.NewFromInt(100000),
			TaxAmount:    decimal.NewFromInt(19000),
			LineTotal:    decimal.NewFromInt(119000),
		}},
		Customer: &entity.Customer{
			ID:    "c1",
			Name:  "Cliente de Prueba",
			TaxID: "901234567-7",
		},
		Organization: &entity.Organization{
			ID:           "o1",
			Name:         "Mi Empresa S.A.S.",
			NIT:          "900123456-8",
			TaxLevelCode: "O-48",
		},
	}
}

func TestXMLBuilder_DocumentoCompleto(t *testing.T) {
	builder := infradian.NewXMLBuilderService("soft-id-123", "2")

	out, err := builder.Build(renderInput())
	require.NoError(t, err)
	xmlStr := string(out)

	// Identificación del documento
	assert.Contains(t, xmlStr, ">SETP000000001<", "ID = serie + número")
	assert.Contains(t, xmlStr, "cufe-de-prueba", "el CUFE va en cbc:UUID")
	assert.Contains(t, xmlStr, `schemeName="CUFE-SHA384"`)
	assert.Contains(t, xmlStr, ">2026-08-31<")
	assert.Contains(t, xmlStr, ">10:30:00<")
	assert.Contains(t, xmlStr, `Id="invoice-id"`, "atributo Id para la Reference de la firma")

	// Extensión DIAN: software y contenido vacío para la firma
	assert.Contains(t, xmlStr, "soft-id-123")
	assert.Contains(t, xmlStr, ">2<", "ProfileExecutionID = ambiente habilitación")

	// Partes: NIT sin puntos ni DV-guion, cliente con su esquema
	assert.Contains(t, xmlStr, ">9001234568<", "NIT del emisor solo dígitos")
	assert.Contains(t, xmlStr, ">9012345677<", "documento del adquiriente solo dígitos")
	assert.Contains(t, xmlStr, "Mi Empresa S.A.S.")
	assert.Contains(t, xmlStr, "Cliente de Prueba")
	assert.Contains(t, xmlStr, ">O-48<")

	// Totales con 2 decimales y moneda
	assert.Contains(t, xmlStr, ">100000.00<")
	assert.Contains(t, xmlStr, ">19000.00<")
	assert.Contains(t, xmlStr, ">119000.00<")
	assert.Contains(t, xmlStr, `currencyID="COP"`)

	// Línea
	assert.Contains(t, xmlStr, "Café tostado 500g")
	assert.Contains(t, xmlStr, `unitCode="94"`)
	assert.Contains(t, xmlStr, ">50000.00<")
}

func TestXMLBuilder_SinCUFENoEscribeUUID(t *testing.T) {
	builder := infradian.NewXMLBuilderService("soft-id-123", "2")
	in := renderInput()
	in.Invoice.CUFE = ""

	out, err := builder.Build(in)
	require.NoError(t, err)

	assert.NotContains(t, string(out), "CUFE-SHA384")
}

func TestXMLBuilder_EntradaIncompleta(t *testing.T) {
	builder := infradian.NewXMLBuilderService("soft-id-123", "2")

	_, err := builder.Build(nil)
	assert.Error(t, err)

	in := renderInput()
	in.Organization = nil
	_, err = builder.Build(in)
	assert.Error(t, err)
}
