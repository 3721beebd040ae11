// Package dian implementa los adaptadores de factura electrónica DIAN
// (Colombia): generación del XML UBL 2.1, firma XAdES y entrega al proveedor
// tecnológico.
package dian

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/pkg/dian"
)

// Namespaces oficiales UBL 2.1 y DIAN (Anexo Técnico 1.9).
const (
	NsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCac     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NsExt     = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	NsSts     = "dian:gov:co:facturaelectronica:v1"
	NsDs      = "http://www.w3.org/2000/09/xmldsig#"
	NsXades   = "http://uri.etsi.org/01903/v1.3.2#"
	nsXsi     = "http://www.w3.org/2001/XMLSchema-instance"

	schemaLocationInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2 http://docs.oasis-open.org/ubl/os-UBL-2.1/xsd/maindoc/UBL-Invoice-2.1.xsd"
)

// XMLBuilderService construye el XML UBL 2.1 de la factura (sin firma XAdES).
type XMLBuilderService struct {
	softwareID  string
	environment string // "1" producción, "2" habilitación
}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService(softwareID, environment string) *XMLBuilderService {
	return &XMLBuilderService{softwareID: softwareID, environment: environment}
}

// Build genera el []byte del documento Invoice según UBL 2.1 y extensiones
// DIAN. El CUFE debe venir ya calculado en in.Invoice.CUFE (va en cbc:UUID).
func (s *XMLBuilderService) Build(in *billing.RenderInput) ([]byte, error) {
	if in == nil || in.Invoice == nil || in.Organization == nil || in.Customer == nil {
		return nil, fmt.Errorf("dian: faltan invoice, organization o customer")
	}
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	// Root <Invoice> con atributos obligatorios. Id para Reference URI en firma XAdES.
	root := xml.StartElement{
		Name: xml.Name{Space: NsInvoice, Local: "Invoice"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "Id"}, Value: "invoice-id"},
			{Name: xml.Name{Local: "xmlns"}, Value: NsInvoice},
			{Name: xml.Name{Local: "xmlns:cac"}, Value: NsCac},
			{Name: xml.Name{Local: "xmlns:cbc"}, Value: NsCbc},
			{Name: xml.Name{Local: "xmlns:ds"}, Value: NsDs},
			{Name: xml.Name{Local: "xmlns:ext"}, Value: NsExt},
			{Name: xml.Name{Local: "xmlns:sts"}, Value: NsSts},
			{Name: xml.Name{Local: "xmlns:xades"}, Value: NsXades},
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: nsXsi},
			{Name: xml.Name{Space: nsXsi, Local: "schemaLocation"}, Value: schemaLocationInvoice},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	// ext:UBLExtensions siempre como primer hijo de Invoice (requerido por el firmador).
	if err := s.writeUBLExtensions(enc); err != nil {
		return nil, err
	}

	inv := in.Invoice
	writeCbc(enc, "UBLVersionID", "2.1")
	writeCbc(enc, "CustomizationID", inv.OperationType)
	writeCbc(enc, "ProfileID", "DIAN 2.1: Factura Electrónica de Venta")
	writeCbc(enc, "ProfileExecutionID", s.environment)
	writeCbc(enc, "ID", inv.FullNumber())
	if inv.CUFE != "" {
		writeCbcWithAttr(enc, "UUID", inv.CUFE, "schemeName", "CUFE-SHA384")
	}
	writeCbc(enc, "IssueDate", inv.IssueDate.Format("2006-01-02"))
	writeCbc(enc, "IssueTime", inv.IssueTime)
	writeCbc(enc, "InvoiceTypeCode", "01")
	if inv.Notes != "" {
		writeCbc(enc, "Note", inv.Notes)
	}
	writeCbc(enc, "DocumentCurrencyCode", inv.Currency)
	writeCbc(enc, "LineCountNumeric", strconv.Itoa(len(in.Items)))

	if err := s.writeSupplierParty(enc, in); err != nil {
		return nil, err
	}
	if err := s.writeCustomerParty(enc, in); err != nil {
		return nil, err
	}
	s.writePaymentMeans(enc)
	if err := s.writeTaxTotal(enc, in); err != nil {
		return nil, err
	}
	if err := s.writeLegalMonetaryTotal(enc, in); err != nil {
		return nil, err
	}
	for i, item := range in.Items {
		if err := s.writeInvoiceLine(enc, i+1, item, inv.Currency); err != nil {
			return nil, err
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeUBLExtensions escribe dos extensiones: la DIAN (software y ambiente) y
// un ExtensionContent vacío donde el firmador inyecta <ds:Signature>.
func (s *XMLBuilderService) writeUBLExtensions(enc *xml.Encoder) error {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsExt, Local: "UBLExtensions"}})

	// 1. Extensión DIAN
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsExt, Local: "UBLExtension"}})
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsExt, Local: "ExtensionContent"}})
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsSts, Local: "DianExtensions"}})
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsSts, Local: "SoftwareProvider"}})
	writeSts(enc, "SoftwareID", s.softwareID)
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsSts, Local: "SoftwareProvider"}})
	writeSts(enc, "InvoiceSource", "CO")
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsSts, Local: "DianExtensions"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsExt, Local: "ExtensionContent"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsExt, Local: "UBLExtension"}})

	// 2. Extensión para la firma
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsExt, Local: "UBLExtension"}})
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsExt, Local: "ExtensionContent"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsExt, Local: "ExtensionContent"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsExt, Local: "UBLExtension"}})

	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsExt, Local: "UBLExtensions"}})
	return nil
}

func (s *XMLBuilderService) writeSupplierParty(enc *xml.Encoder, in *billing.RenderInput) error {
	org := in.Organization
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "AccountingSupplierParty"}})
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "Party"}})

	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "PartyIdentification"}})
	writeCbcWithAttr(enc, "ID", normalizeNIT(org.NIT), "schemeID", dian.IdentificationTypeNIT)
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "PartyIdentification"}})

	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "PartyName"}})
	writeCbc(enc, "Name", org.Name)
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "PartyName"}})

	if org.TaxLevelCode != "" {
		_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "PartyTaxScheme"}})
		writeCbc(enc, "TaxLevelCode", org.TaxLevelCode)
		_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "PartyTaxScheme"}})
	}
	if org.Address != "" {
		_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "PostalAddress"}})
		writeCbc(enc, "StreetName", org.Address)
		if org.City != "" {
			writeCbc(enc, "CityName", org.City)
		}
		_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "PostalAddress"}})
	}

	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "Party"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "AccountingSupplierParty"}})
	return nil
}

func (s *XMLBuilderService) writeCustomerParty(enc *xml.Encoder, in *billing.RenderInput) error {
	customer := in.Customer
	scheme := dian.IdentificationTypeCC
	if strings.Contains(customer.TaxID, "-") {
		scheme = dian.IdentificationTypeNIT
	}
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "AccountingCustomerParty"}})
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "Party"}})

	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "PartyIdentification"}})
	writeCbcWithAttr(enc, "ID", normalizeNIT(customer.TaxID), "schemeID", scheme)
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "PartyIdentification"}})

	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "PartyName"}})
	writeCbc(enc, "Name", customer.Name)
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "PartyName"}})

	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "Party"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "AccountingCustomerParty"}})
	return nil
}

func (s *XMLBuilderService) writePaymentMeans(enc *xml.Encoder) {
	// POS: contado en efectivo.
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "PaymentMeans"}})
	writeCbc(enc, "ID", dian.PaymentFormContado)
	writeCbc(enc, "PaymentMeansCode", dian.PaymentMethodEfectivo)
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "PaymentMeans"}})
}

func (s *XMLBuilderService) writeTaxTotal(enc *xml.Encoder, in *billing.RenderInput) error {
	inv := in.Invoice
	percent := inv.TaxRate.StringFixed(2)
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "TaxTotal"}})
	writeCbcAmount(enc, "TaxAmount", formatDecimal(inv.TaxAmount), inv.Currency)
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "TaxSubtotal"}})
	writeCbcAmount(enc, "TaxableAmount", formatDecimal(inv.TaxExclusiveAmount), inv.Currency)
	writeCbcAmount(enc, "TaxAmount", formatDecimal(inv.TaxAmount), inv.Currency)
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "TaxCategory"}})
	writeCbc(enc, "Percent", percent)
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "TaxScheme"}})
	writeCbc(enc, "ID", dian.TaxCodeIVA)
	writeCbc(enc, "Name", "IVA")
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "TaxScheme"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "TaxCategory"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "TaxSubtotal"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "TaxTotal"}})
	return nil
}

func (s *XMLBuilderService) writeLegalMonetaryTotal(enc *xml.Encoder, in *billing.RenderInput) error {
	inv := in.Invoice
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "LegalMonetaryTotal"}})
	writeCbcAmount(enc, "LineExtensionAmount", formatDecimal(inv.LineExtensionAmount), inv.Currency)
	writeCbcAmount(enc, "TaxExclusiveAmount", formatDecimal(inv.TaxExclusiveAmount), inv.Currency)
	writeCbcAmount(enc, "TaxInclusiveAmount", formatDecimal(inv.TaxInclusiveAmount), inv.Currency)
	writeCbcAmount(enc, "AllowanceTotalAmount", formatDecimal(inv.AllowanceTotalAmount), inv.Currency)
	writeCbcAmount(enc, "ChargeTotalAmount", formatDecimal(inv.ChargeTotalAmount), inv.Currency)
	writeCbcAmount(enc, "PayableAmount", formatDecimal(inv.PayableAmount), inv.Currency)
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "LegalMonetaryTotal"}})
	return nil
}

func (s *XMLBuilderService) writeInvoiceLine(enc *xml.Encoder, lineNum int, item *entity.InvoiceItem, currency string) error {
	unitCode := item.UnitMeasure
	if unitCode == "" {
		unitCode = dian.UnitUnit
	}
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "InvoiceLine"}})
	writeCbc(enc, "ID", strconv.Itoa(lineNum))
	writeCbcWithAttr(enc, "InvoicedQuantity", item.Quantity.String(), "unitCode", unitCode)
	writeCbcAmount(enc, "LineExtensionAmount", formatDecimal(item.LineSubtotal), currency)

	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "Item"}})
	desc := item.Description
	if desc == "" {
		desc = "Item " + strconv.Itoa(lineNum)
	}
	writeCbc(enc, "Description", desc)
	if item.ProductCode != "" {
		_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "SellersItemIdentification"}})
		writeCbc(enc, "ID", item.ProductCode)
		_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "SellersItemIdentification"}})
	}
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "Item"}})

	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "Price"}})
	writeCbcAmount(enc, "PriceAmount", formatDecimal(item.UnitPrice), currency)
	writeCbcWithAttr(enc, "BaseQuantity", "1", "unitCode", unitCode)
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "Price"}})

	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "InvoiceLine"}})
	return nil
}

func writeCbc(enc *xml.Encoder, local, value string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCbc, Local: local}})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCbc, Local: local}})
}

func writeCbcAmount(enc *xml.Encoder, local, value, currency string) {
	var attr []xml.Attr
	if currency != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "currencyID"}, Value: currency})
	}
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCbc, Local: local}, Attr: attr})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCbc, Local: local}})
}

func writeCbcWithAttr(enc *xml.Encoder, local, value, attrLocal, attrValue string) {
	_ = enc.EncodeToken(xml.StartElement{
		Name: xml.Name{Space: NsCbc, Local: local},
		Attr: []xml.Attr{{Name: xml.Name{Local: attrLocal}, Value: attrValue}},
	})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCbc, Local: local}})
}

func writeSts(enc *xml.Encoder, local, value string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsSts, Local: local}})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsSts, Local: local}})
}

func normalizeNIT(nit string) string {
	var out []byte
	for _, b := range []byte(nit) {
		if b >= '0' && b <= '9' {
			out = append(out, b)
		}
	}
	return string(out)
}

func formatDecimal(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
