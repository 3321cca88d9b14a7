package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

// PDFUseCase genera la representación gráfica (PDF) de un comprobante electrónico.
// Solo se permite si el comprobante ya está firmado.
type PDFUseCase struct {
	documents repository.DocumentRepository
	generator DocumentPDFGenerator
}

// NewPDFUseCase construye el caso de uso inyectando sus dependencias.
func NewPDFUseCase(documents repository.DocumentRepository, generator DocumentPDFGenerator) *PDFUseCase {
	return &PDFUseCase{documents: documents, generator: generator}
}

// DownloadDocumentPDF genera el PDF del comprobante.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si el comprobante no existe.
//   - domain.ErrForbidden        si no pertenece a la empresa del token.
//   - domain.ErrInvalidInput     si aún no está firmado.
func (uc *PDFUseCase) DownloadDocumentPDF(ctx context.Context, companyID, documentID string) (pdfBytes []byte, filename string, err error) {
	doc, err := uc.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener comprobante: %w", err)
	}
	if doc == nil {
		return nil, "", domain.ErrNotFound
	}
	if doc.CompanyID != companyID {
		return nil, "", domain.ErrForbidden
	}
	if doc.XMLSigned == "" {
		return nil, "", fmt.Errorf("%w: el comprobante está en estado %s, espere a que sea firmado antes de descargar el PDF",
			domain.ErrInvalidInput, doc.SubmissionState)
	}

	pdfBytes, err = uc.generator.GenerateDocumentPDF(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdfBytes, doc.Key + ".pdf", nil
}
