package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	domhacienda "github.com/jhoicas/Comprobantes-api/internal/domain/hacienda"
)

// CreateCreditNote emite una nota de crédito contra un comprobante propio.
// Las líneas y la exoneración salen del XML del comprobante original, no del cliente actual.
func (uc *DocumentUseCase) CreateCreditNote(ctx context.Context, companyID, originalID string, in dto.CreateCreditNoteRequest) (*dto.DocumentResponse, error) {
	original, err := uc.ownDocument(ctx, companyID, originalID)
	if err != nil {
		return nil, err
	}
	switch original.SubmissionState {
	case entity.StateRejected, entity.StateFailed:
		return nil, fmt.Errorf("%w: el comprobante original está en estado %s", domain.ErrConflict, original.SubmissionState)
	}
	originalXML := firstNonEmpty(original.XMLSigned, original.XMLUnsigned)
	if originalXML == "" {
		return nil, fmt.Errorf("%w: el comprobante original no tiene XML", domain.ErrConflict)
	}
	company, err := uc.activeCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	note, err := uc.resolver.BuildFromOriginal(domhacienda.CreditNoteRequest{
		OriginalXML:   []byte(originalXML),
		AffectedLines: in.AffectedLines,
		FullReversal:  in.FullReversal,
		ReasonCode:    in.ReasonCode,
		ReasonText:    in.ReasonText,
		IssuedAt:      uc.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	// El XML no guarda identificadores internos.
	now := uc.clock.Now()
	note.ID = uuid.New().String()
	note.CompanyID = original.CompanyID
	note.CustomerID = original.CustomerID
	note.OriginalID = original.ID
	note.Situation = uc.cfg.Situation
	note.CreatedAt = now
	note.UpdatedAt = now

	if err := uc.persist(ctx, company, note); err != nil {
		return nil, err
	}
	return DocumentToResponse(note), nil
}
