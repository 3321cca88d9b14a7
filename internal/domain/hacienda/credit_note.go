package hacienda

import (
	"time"
	"unicode/utf8"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	pkghacienda "github.com/jhoicas/Comprobantes-api/pkg/hacienda"
)

// MaxReasonLength longitud máxima de la razón de una nota de crédito.
const MaxReasonLength = 180

// DocumentParser lee un comprobante a partir de su XML (firmado o no).
type DocumentParser interface {
	Parse(xmlBytes []byte) (*entity.Document, error)
}

// CreditNoteRequest datos para construir una nota de crédito a partir del comprobante original.
// Se usa OriginalXML si viene; si no, Original (ya leído).
type CreditNoteRequest struct {
	OriginalXML   []byte
	Original      *entity.Document
	AffectedLines []int // Números de línea del original (anulación parcial)
	FullReversal  bool
	ReasonCode    string
	ReasonText    string
	IssuedAt      time.Time
}

// CreditNoteResolver construye notas de crédito leyendo el comprobante original,
// nunca el estado actual del cliente o la empresa.
type CreditNoteResolver struct {
	parser DocumentParser
}

// NewCreditNoteResolver crea el resolvedor.
func NewCreditNoteResolver(parser DocumentParser) *CreditNoteResolver {
	return &CreditNoteResolver{parser: parser}
}

// BuildFromOriginal arma la nota de crédito (sin clave ni consecutivo).
// La exoneración existe en la nota si y solo si estaba en las líneas del original.
// En anulación parcial las líneas elegidas se renumeran desde 1 en el orden del original.
func (r *CreditNoteResolver) BuildFromOriginal(req CreditNoteRequest) (*entity.Document, error) {
	if !req.FullReversal && len(req.AffectedLines) == 0 {
		return nil, domain.ValidationError("indique anulación total o las líneas afectadas")
	}
	if !pkghacienda.ValidReferenceCodes[req.ReasonCode] {
		return nil, domain.ValidationError("código de referencia %q inválido", req.ReasonCode)
	}
	if n := utf8.RuneCountInString(req.ReasonText); n == 0 || n > MaxReasonLength {
		return nil, domain.ValidationError("la razón debe tener entre 1 y %d caracteres", MaxReasonLength)
	}

	original := req.Original
	if len(req.OriginalXML) > 0 {
		parsed, err := r.parser.Parse(req.OriginalXML)
		if err != nil {
			return nil, err
		}
		original = parsed
	}
	if original == nil {
		return nil, domain.ValidationError("comprobante original requerido")
	}
	if original.Kind == entity.KindCreditNote {
		return nil, domain.ValidationError("no se puede emitir una nota de crédito sobre otra nota de crédito")
	}

	lines, err := selectLines(original.Lines, req.AffectedLines, req.FullReversal)
	if err != nil {
		return nil, err
	}

	issuedAt := req.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	var recipient *entity.Party
	if original.Recipient != nil {
		rc := *original.Recipient
		recipient = &rc
	}

	opts := SummaryOptions{
		CurrencyCode: original.Summary.CurrencyCode,
		ExchangeRate: original.Summary.ExchangeRate,
	}
	if req.FullReversal {
		opts.FallbackExonerated = original.Summary.TotalExonerated
	}

	return &entity.Document{
		CompanyID:       original.CompanyID,
		CustomerID:      original.CustomerID,
		OriginalID:      original.ID,
		Kind:            entity.KindCreditNote,
		IssuedAt:        issuedAt,
		Issuer:          original.Issuer,
		Recipient:       recipient,
		SaleCondition:   original.SaleCondition,
		CreditTermDays:  original.CreditTermDays,
		PaymentMethod:   original.PaymentMethod,
		Lines:           lines,
		Summary:         ComputeSummary(lines, opts),
		Situation:       pkghacienda.SituationNormal,
		SubmissionState: entity.StateBuilt,
		Reference: &entity.Reference{
			DocumentType:     original.Kind.Code(),
			OriginalKey:      original.Key,
			OriginalIssuedAt: original.IssuedAt,
			ReasonCode:       req.ReasonCode,
			ReasonText:       req.ReasonText,
		},
	}, nil
}

func selectLines(src []entity.LineItem, affected []int, full bool) ([]entity.LineItem, error) {
	if full {
		out := make([]entity.LineItem, len(src))
		for i, l := range src {
			out[i] = copyLine(l)
			out[i].LineNumber = i + 1
		}
		return out, nil
	}
	wanted := make(map[int]bool, len(affected))
	for _, n := range affected {
		wanted[n] = true
	}
	var out []entity.LineItem
	for _, l := range src {
		if wanted[l.LineNumber] {
			c := copyLine(l)
			c.LineNumber = len(out) + 1
			out = append(out, c)
			delete(wanted, l.LineNumber)
		}
	}
	if len(wanted) > 0 {
		for n := range wanted {
			return nil, domain.ValidationError("la línea %d no existe en el comprobante original", n)
		}
	}
	return out, nil
}

// copyLine copia la línea sin compartir punteros con el original.
func copyLine(l entity.LineItem) entity.LineItem {
	if l.Tax != nil {
		t := *l.Tax
		if t.Exoneration != nil {
			e := *t.Exoneration
			t.Exoneration = &e
		}
		l.Tax = &t
	}
	return l
}
