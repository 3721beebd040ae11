package dian

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/pkg/dian"
)

// CalculateCufe construye los parámetros del CUFE desde los datos de la
// factura y lo asigna a in.Invoice.CUFE. ValFac = total sin impuestos,
// ValImp1 = IVA; Impoconsumo e ICA en cero cuando no aplican.
func CalculateCufe(in *billing.RenderInput, claveTecnica, tipoAmbiente string) (string, error) {
	if in == nil || in.Invoice == nil || in.Organization == nil || in.Customer == nil {
		return "", errors.New("dian: se requieren factura, emisor y cliente para calcular el CUFE")
	}
	inv := in.Invoice
	params := &dian.CufeParams{
		NumFac:         inv.FullNumber(),
		FecFac:         inv.IssueDate.Format("2006-01-02"),
		ValFac:         inv.TaxExclusiveAmount,
		CodImp1:        dian.TaxCodeIVA,
		ValImp1:        inv.TaxAmount,
		CodImp2:        "04",
		ValImp2:        decimal.Zero,
		CodImp3:        "03",
		ValImp3:        decimal.Zero,
		ValPag:         inv.PayableAmount,
		NitOferente:    in.Organization.NIT,
		DocAdquiriente: in.Customer.TaxID,
		ClaveTecnica:   claveTecnica,
		TipoAmbiente:   tipoAmbiente,
	}
	cufe, err := dian.NewCufeCalculatorService().Calculate(params)
	if err != nil {
		return "", err
	}
	inv.CUFE = cufe
	return cufe, nil
}
