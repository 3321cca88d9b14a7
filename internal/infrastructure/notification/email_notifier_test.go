package notification_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/notification"
	"github.com/jhoicas/Comprobantes-api/pkg/logger"
)

type fakeSender struct {
	failures []error
	sent     []*gomail.Message
	calls    int
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	f.sent = append(f.sent, m...)
	return nil
}

type fakePDF struct{ err error }

func (f fakePDF) GenerateDocumentPDF(context.Context, *entity.Document) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.3 prueba"), nil
}

type recordedSleeps struct{ waits []time.Duration }

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func acceptedDoc(email string) *entity.Document {
	return &entity.Document{
		ID:       "doc-1",
		Kind:     entity.KindInvoice,
		Key:      "50607032500310112345600100001010000000001112345678",
		Sequence: "00100001010000000001",
		Issuer:   entity.Party{Name: "Servicios Técnicos S.A."},
		Recipient: &entity.Party{
			Name:  "Juan Pérez",
			Email: email,
		},
		SubmissionState: entity.StateAccepted,
	}
}

func TestNotifyAccepted_AdjuntaPDFyXML(t *testing.T) {
	sender := &fakeSender{}
	n := notification.NewEmailNotifierWithSender(sender, "facturas@tecnicos.cr", fakePDF{}, logger.Nop())

	require.NoError(t, n.NotifyAccepted(context.Background(), acceptedDoc("juan@correo.com"), []byte("<FacturaElectronica/>")))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"juan@correo.com"}, msg.GetHeader("To"))
	assert.Contains(t, msg.GetHeader("Subject")[0], "00100001010000000001")

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "50607032500310112345600100001010000000001112345678.pdf")
	assert.Contains(t, raw, "50607032500310112345600100001010000000001112345678.xml")
	assert.Contains(t, raw, "application/pdf")
}

func TestNotifyAccepted_SinCorreoNoEnvia(t *testing.T) {
	sender := &fakeSender{}
	n := notification.NewEmailNotifierWithSender(sender, "facturas@tecnicos.cr", fakePDF{}, logger.Nop())

	doc := acceptedDoc("")
	require.NoError(t, n.NotifyAccepted(context.Background(), doc, nil))
	doc.Recipient = nil
	require.NoError(t, n.NotifyAccepted(context.Background(), doc, nil))
	assert.Zero(t, sender.calls)
}

func TestNotifyAccepted_ReintentaSegunProveedor(t *testing.T) {
	smtpErr := errors.New("421 4.7.0 try again later")
	sender := &fakeSender{failures: []error{smtpErr, smtpErr}}
	sleeps := &recordedSleeps{}
	n := notification.NewEmailNotifierWithSender(sender, "facturas@tecnicos.cr", fakePDF{}, logger.Nop()).WithSleep(sleeps.sleep)

	require.NoError(t, n.NotifyAccepted(context.Background(), acceptedDoc("juan@outlook.com"), []byte("<x/>")))
	assert.Equal(t, 3, sender.calls)
	require.Len(t, sleeps.waits, 2)
	assert.GreaterOrEqual(t, sleeps.waits[0], 11*time.Second, "outlook: 10 s + 10 %")
	assert.LessOrEqual(t, sleeps.waits[0], 15*time.Second, "outlook: 10 s + 50 %")
	assert.GreaterOrEqual(t, sleeps.waits[1], 22*time.Second)
}

func TestNotifyAccepted_AgotaIntentos(t *testing.T) {
	smtpErr := errors.New("550 5.7.1 Message rejected")
	sender := &fakeSender{failures: []error{smtpErr, smtpErr, smtpErr, smtpErr, smtpErr}}
	sleeps := &recordedSleeps{}
	n := notification.NewEmailNotifierWithSender(sender, "facturas@tecnicos.cr", fakePDF{}, logger.Nop()).WithSleep(sleeps.sleep)

	err := n.NotifyAccepted(context.Background(), acceptedDoc("ana@empresa.cr"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, smtpErr)
	assert.Equal(t, 3, sender.calls, "otros proveedores: 3 intentos")
	assert.Len(t, sleeps.waits, 2)
}

func TestNotifyAccepted_CancelacionDetieneReintentos(t *testing.T) {
	smtpErr := errors.New("421 busy")
	sender := &fakeSender{failures: []error{smtpErr, smtpErr, smtpErr}}
	ctx, cancel := context.WithCancel(context.Background())
	n := notification.NewEmailNotifierWithSender(sender, "f@t.cr", fakePDF{}, logger.Nop()).
		WithSleep(func(context.Context, time.Duration) error {
			cancel()
			return context.Canceled
		})

	err := n.NotifyAccepted(ctx, acceptedDoc("juan@gmail.com"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sender.calls)
}

func TestNotifyAccepted_ErroresPrevios(t *testing.T) {
	sender := &fakeSender{}
	n := notification.NewEmailNotifierWithSender(sender, "f@t.cr", fakePDF{err: errors.New("sin fuente")}, logger.Nop())
	assert.ErrorContains(t, n.NotifyAccepted(context.Background(), acceptedDoc("juan@correo.com"), nil), "sin fuente")

	n = notification.NewEmailNotifierWithSender(sender, "f@t.cr", fakePDF{}, logger.Nop())
	assert.Error(t, n.NotifyAccepted(context.Background(), acceptedDoc("no es un correo"), nil))
	assert.Zero(t, sender.calls)
}
