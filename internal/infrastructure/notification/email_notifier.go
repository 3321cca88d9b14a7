package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/mail"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/pkg/logger"
)

var _ billing.Notifier = (*EmailNotifier)(nil)

// MailSender transporte SMTP. *gomail.Dialer lo implementa.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailConfig remitente y transporte.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailNotifier envía el comprobante aceptado al receptor con el PDF y el XML firmado adjuntos.
// Reintenta según la política del proveedor del destinatario mientras el contexto lo permita.
type EmailNotifier struct {
	sender MailSender
	from   string
	pdf    billing.DocumentPDFGenerator
	log    *logger.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewEmailNotifier construye el notificador con un dialer gomail.
func NewEmailNotifier(cfg EmailConfig, pdf billing.DocumentPDFGenerator, log *logger.Logger) *EmailNotifier {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return NewEmailNotifierWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), from, pdf, log)
}

// NewEmailNotifierWithSender permite inyectar el transporte.
func NewEmailNotifierWithSender(sender MailSender, from string, pdf billing.DocumentPDFGenerator, log *logger.Logger) *EmailNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &EmailNotifier{
		sender: sender,
		from:   from,
		pdf:    pdf,
		log:    log,
		sleep:  sleepContext,
		jitter: rand.Float64,
	}
}

// WithSleep reemplaza la espera entre reintentos (pruebas).
func (n *EmailNotifier) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *EmailNotifier {
	n.sleep = sleep
	return n
}

// NotifyAccepted arma el mensaje y lo envía. Sin correo de receptor no hay nada que enviar.
func (n *EmailNotifier) NotifyAccepted(ctx context.Context, doc *entity.Document, signedXML []byte) error {
	if doc.Recipient == nil || doc.Recipient.Email == "" {
		n.log.Debug().Str("document_id", doc.ID).Msg("notificación: receptor sin correo, se omite")
		return nil
	}
	to, err := mail.ParseAddress(doc.Recipient.Email)
	if err != nil {
		return fmt.Errorf("notificación: correo de receptor inválido %q: %w", doc.Recipient.Email, err)
	}

	var pdfBytes []byte
	if n.pdf != nil {
		pdfBytes, err = n.pdf.GenerateDocumentPDF(ctx, doc)
		if err != nil {
			return fmt.Errorf("notificación: generar PDF: %w", err)
		}
	}
	msg := n.buildMessage(doc, to.Address, pdfBytes, signedXML)

	policy := PolicyFor(ProviderOf(to.Address))
	lg := n.log.With().Str("document_id", doc.ID).Str("proveedor", string(policy.Provider)).Logger()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, lastErr)
		}
		lastErr = n.sender.DialAndSend(msg)
		if lastErr == nil {
			lg.Info().Int("intento", attempt).Msg("notificación: comprobante enviado por correo")
			return nil
		}
		if attempt == policy.MaxAttempts {
			break
		}
		wait := policy.Delay(attempt, lastErr, n.jitter())
		lg.Warn().Err(lastErr).Int("intento", attempt).Dur("espera", wait).Msg("notificación: reintentando envío")
		if err := n.sleep(ctx, wait); err != nil {
			return errors.Join(err, lastErr)
		}
	}
	return fmt.Errorf("notificación: %d intentos fallidos: %w", policy.MaxAttempts, lastErr)
}

func (n *EmailNotifier) buildMessage(doc *entity.Document, to string, pdfBytes, signedXML []byte) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("%s %s de %s", kindLabel(doc.Kind), doc.Sequence, doc.Issuer.Name))
	m.SetBody("text/html", fmt.Sprintf(
		"<p>Estimado(a) %s,</p><p>Adjuntamos su %s <b>%s</b>, aceptado por el Ministerio de Hacienda.</p><p>Clave: %s</p>",
		doc.Recipient.Name, kindLabel(doc.Kind), doc.Sequence, doc.Key,
	))
	if len(pdfBytes) > 0 {
		attach(m, doc.Key+".pdf", "application/pdf", pdfBytes)
	}
	if len(signedXML) > 0 {
		attach(m, doc.Key+".xml", "application/xml", signedXML)
	}
	return m
}

func attach(m *gomail.Message, name, contentType string, data []byte) {
	m.Attach(name,
		gomail.SetHeader(map[string][]string{"Content-Type": {contentType}}),
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}),
	)
}

func kindLabel(k entity.DocumentKind) string {
	switch k {
	case entity.KindTicket:
		return "Tiquete electrónico"
	case entity.KindCreditNote:
		return "Nota de crédito electrónica"
	}
	return "Factura electrónica"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
