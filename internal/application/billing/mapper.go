package billing

import (
	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	domhacienda "github.com/jhoicas/Comprobantes-api/internal/domain/hacienda"
)

func locationFromDTO(in dto.LocationDTO) entity.Location {
	return entity.Location{Province: in.Province, Canton: in.Canton, District: in.District, Address: in.Address}
}

func locationToDTO(l entity.Location) dto.LocationDTO {
	return dto.LocationDTO{Province: l.Province, Canton: l.Canton, District: l.District, Address: l.Address}
}

func exonerationFromDTO(in *dto.ExonerationDTO) *entity.Exoneration {
	if in == nil {
		return nil
	}
	return &entity.Exoneration{
		DocumentType:      in.DocumentType,
		DocumentTypeOther: in.DocumentTypeOther,
		DocumentNumber:    in.DocumentNumber,
		LawName:           in.LawName,
		Article:           in.Article,
		Subsection:        in.Subsection,
		PurchasePercent:   in.PurchasePercent,
		Institution:       in.Institution,
		InstitutionOther:  in.InstitutionOther,
		IssuedAt:          in.IssuedAt,
		ExemptedRate:      in.ExemptedRate,
	}
}

func exonerationToDTO(e *entity.Exoneration) *dto.ExonerationDTO {
	if e == nil {
		return nil
	}
	return &dto.ExonerationDTO{
		DocumentType:      e.DocumentType,
		DocumentTypeOther: e.DocumentTypeOther,
		DocumentNumber:    e.DocumentNumber,
		LawName:           e.LawName,
		Article:           e.Article,
		Subsection:        e.Subsection,
		PurchasePercent:   e.PurchasePercent,
		Institution:       e.Institution,
		InstitutionOther:  e.InstitutionOther,
		IssuedAt:          e.IssuedAt,
		ExemptedRate:      e.ExemptedRate,
	}
}

func customerToResponse(c *entity.Customer) *dto.CustomerResponse {
	return &dto.CustomerResponse{
		ID:             c.ID,
		CompanyID:      c.CompanyID,
		Name:           c.Name,
		CommercialName: c.CommercialName,
		TaxIDType:      c.TaxIDType,
		TaxID:          c.TaxID,
		Location:       locationToDTO(c.Location),
		Email:          c.Email,
		Phone:          c.Phone,
		Exoneration:    exonerationToDTO(c.Exoneration),
	}
}

// DocumentToResponse arma la respuesta HTTP de un comprobante.
func DocumentToResponse(d *entity.Document) *dto.DocumentResponse {
	out := &dto.DocumentResponse{
		ID:                d.ID,
		CompanyID:         d.CompanyID,
		CustomerID:        d.CustomerID,
		Kind:              string(d.Kind),
		Key:               d.Key,
		Sequence:          d.Sequence,
		IssuedAt:          domhacienda.FormatDateTime(d.IssuedAt),
		CurrencyCode:      d.Summary.CurrencyCode,
		TotalTaxed:        d.Summary.TotalTaxed,
		TotalExempt:       d.Summary.TotalExempt,
		TotalExonerated:   d.Summary.TotalExonerated,
		TotalTax:          d.Summary.TotalTax,
		TotalDocument:     d.Summary.TotalDocument,
		SubmissionState:   string(d.SubmissionState),
		StatusOutcome:     string(d.StatusOutcome),
		FailureStage:      d.FailureStage,
		FailureReason:     d.FailureReason,
		ProviderResponse:  d.ProviderResponse,
		NotificationError: d.NotificationError,
		Lines:             make([]dto.DocumentLineResponse, 0, len(d.Lines)),
	}
	if d.Recipient != nil {
		out.RecipientName = d.Recipient.Name
	}
	if d.Reference != nil {
		out.ReferenceKey = d.Reference.OriginalKey
	}
	for _, l := range d.Lines {
		lr := dto.DocumentLineResponse{
			LineNumber:  l.LineNumber,
			CatalogCode: l.CatalogCode,
			Description: l.Description,
			Quantity:    l.Quantity,
			Unit:        l.Unit,
			UnitPrice:   l.UnitPrice,
			TaxableBase: l.TaxableBase,
			NetTax:      l.NetTax,
			LineTotal:   l.LineTotal,
			Exonerated:  l.Exonerated(),
		}
		if l.Tax != nil {
			lr.TaxAmount = l.Tax.Amount
		}
		out.Lines = append(out.Lines, lr)
	}
	return out
}
