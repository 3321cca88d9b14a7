package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	domhacienda "github.com/jhoicas/Comprobantes-api/internal/domain/hacienda"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
	pkghacienda "github.com/jhoicas/Comprobantes-api/pkg/hacienda"
	"github.com/jhoicas/Comprobantes-api/pkg/logger"
)

// OrchestratorConfig tiempos del envío a Hacienda. Los valores en cero toman el valor por defecto.
type OrchestratorConfig struct {
	StatusDelay   time.Duration // Espera antes de la única consulta de estado (10 s)
	SignTimeout   time.Duration // 30 s
	AuthTimeout   time.Duration // 15 s
	SubmitTimeout time.Duration // 30 s
	StatusTimeout time.Duration // 15 s
	NotifyTimeout time.Duration // 60 s
}

func (c *OrchestratorConfig) applyDefaults() {
	def := func(d *time.Duration, v time.Duration) {
		if *d <= 0 {
			*d = v
		}
	}
	def(&c.StatusDelay, 10*time.Second)
	def(&c.SignTimeout, 30*time.Second)
	def(&c.AuthTimeout, 15*time.Second)
	def(&c.SubmitTimeout, 30*time.Second)
	def(&c.StatusTimeout, 15*time.Second)
	def(&c.NotifyTimeout, 60*time.Second)
}

// OrchestratorDeps colaboradores del orquestador. Notifier, Clock y Metrics son opcionales.
type OrchestratorDeps struct {
	Documents repository.DocumentRepository
	Companies repository.CompanyRepository
	Signer    pkghacienda.Signer
	Auth      pkghacienda.Authenticator
	Submitter pkghacienda.Submitter
	Status    pkghacienda.StatusChecker
	Locations LocationValidator
	Notifier  Notifier
	Clock     Clock
	Metrics   MetricsRecorder
	Logger    *logger.Logger
}

// SubmissionOrchestrator conduce el envío de un comprobante a Hacienda:
//
//	BUILT → SIGNED → AUTHENTICATED → SUBMITTED → AWAITING_STATUS → {ACCEPTED | REJECTED | SUBMITTED (PROVIDER_ERROR)}
//
// Cualquier etapa puede terminar en FAILED(etapa, motivo). Cada envío corre en su propia
// goroutine; la consulta de estado es un único disparo programado con el reloj inyectado.
// Es el único componente que modifica los campos de envío del comprobante.
type SubmissionOrchestrator struct {
	documents repository.DocumentRepository
	companies repository.CompanyRepository
	signer    pkghacienda.Signer
	auth      pkghacienda.Authenticator
	submitter pkghacienda.Submitter
	status    pkghacienda.StatusChecker
	locations LocationValidator
	notifier  Notifier
	clock     Clock
	metrics   MetricsRecorder
	log       *logger.Logger
	cfg       OrchestratorConfig

	wg sync.WaitGroup
}

// NewSubmissionOrchestrator construye el orquestador.
func NewSubmissionOrchestrator(deps OrchestratorDeps, cfg OrchestratorConfig) *SubmissionOrchestrator {
	cfg.applyDefaults()
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &SubmissionOrchestrator{
		documents: deps.Documents,
		companies: deps.Companies,
		signer:    deps.Signer,
		auth:      deps.Auth,
		submitter: deps.Submitter,
		status:    deps.Status,
		locations: deps.Locations,
		notifier:  deps.Notifier,
		clock:     deps.Clock,
		metrics:   deps.Metrics,
		log:       deps.Logger,
		cfg:       cfg,
	}
}

// Submission seguimiento de un envío en curso.
type Submission struct {
	DocumentID string

	done   chan struct{}
	cancel context.CancelFunc
	doc    *entity.Document
	err    error
}

// Done se cierra cuando el envío termina.
func (s *Submission) Done() <-chan struct{} { return s.done }

// Cancel aborta el envío. Antes de SUBMITTED detiene la tarea; después solo omite
// la consulta de estado pendiente.
func (s *Submission) Cancel() { s.cancel() }

// Result espera el final del envío y devuelve el comprobante y el primer error fatal.
func (s *Submission) Result() (*entity.Document, error) {
	<-s.done
	return s.doc, s.err
}

// Submit inicia el envío del comprobante (que debe estar en BUILT) en una goroutine.
// La cancelación de ctx solo tiene efecto hasta que el comprobante queda SUBMITTED.
func (o *SubmissionOrchestrator) Submit(ctx context.Context, documentID string) *Submission {
	ctx, cancel := context.WithCancel(ctx)
	s := &Submission{DocumentID: documentID, done: make(chan struct{}), cancel: cancel}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		defer close(s.done)
		s.doc, s.err = o.run(ctx, documentID)
	}()
	return s
}

// ProcessAsync dispara el envío desacoplado del ciclo HTTP.
// documentID es el ID del comprobante ya persistido en estado BUILT.
func (o *SubmissionOrchestrator) ProcessAsync(documentID string) *Submission {
	return o.Submit(context.Background(), documentID)
}

// Close espera a que terminen los envíos en curso o a que venza ctx.
func (o *SubmissionOrchestrator) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run es el núcleo síncrono del orquestador.
func (o *SubmissionOrchestrator) run(ctx context.Context, documentID string) (*entity.Document, error) {
	// La persistencia no depende de la cancelación del llamador.
	store := context.WithoutCancel(ctx)

	doc, err := o.documents.GetByID(store, documentID)
	if err != nil {
		return nil, fmt.Errorf("orquestador: obtener comprobante: %w", err)
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	lg := o.log.With().Str("document_id", doc.ID).Str("clave", doc.Key).Logger()

	if doc.SubmissionState != entity.StateBuilt {
		lg.Warn().Str("state", string(doc.SubmissionState)).Msg("hacienda: estado inesperado (ya procesado?), se omite")
		return doc, fmt.Errorf("%w: el comprobante está en estado %s", domain.ErrConflict, doc.SubmissionState)
	}

	// fail deja el comprobante en FAILED(etapa, motivo) y devuelve el error de la etapa.
	fail := func(stage string, kind, cause error) (*entity.Document, error) {
		se := domain.NewStageError(stage, kind, cause)
		doc.SubmissionState = entity.StateFailed
		doc.FailureStage = stage
		doc.FailureReason = se.Message
		if perr := o.persist(store, doc); perr != nil {
			lg.Error().Err(perr).Msg("hacienda: no se pudo persistir FAILED")
		}
		o.metrics.ObserveOutcome(doc.Kind, doc.SubmissionState, doc.StatusOutcome)
		lg.Error().Str("stage", stage).Str("motivo", se.Message).Msg("hacienda: envío fallido")
		return doc, se
	}

	if doc.XMLUnsigned == "" {
		return fail(entity.StageSchema, domain.ErrSchema, errors.New("comprobante sin XML generado"))
	}
	company, err := o.companies.GetByID(store, doc.CompanyID)
	if err != nil || company == nil {
		if err == nil {
			err = domain.ErrNotFound
		}
		return fail(entity.StageSigning, domain.ErrSigning, fmt.Errorf("empresa %s: %w", doc.CompanyID, err))
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 1. Firma XAdES-EPES
	// ═══════════════════════════════════════════════════════════════════════════
	if ctx.Err() != nil {
		return fail(entity.StageSigning, ctx.Err(), errors.New("cancelado por el llamador"))
	}
	start := time.Now()
	signCtx, cancel := context.WithTimeout(ctx, o.cfg.SignTimeout)
	signed, err := o.signer.Sign(signCtx, []byte(doc.XMLUnsigned), company.Certificate, company.CertificatePassword)
	cancel()
	o.metrics.ObserveStage(entity.StageSigning, time.Since(start), err)
	if err != nil {
		return fail(entity.StageSigning, domain.ErrSigning, err)
	}
	doc.XMLSigned = string(signed)
	if err := o.advance(store, doc, entity.StateSigned, lg); err != nil {
		return doc, err
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. Token de acceso (IdP de Hacienda)
	// ═══════════════════════════════════════════════════════════════════════════
	if ctx.Err() != nil {
		return fail(entity.StageAuth, ctx.Err(), errors.New("cancelado por el llamador"))
	}
	start = time.Now()
	authCtx, cancel := context.WithTimeout(ctx, o.cfg.AuthTimeout)
	token, err := o.auth.Authenticate(authCtx, pkghacienda.Credentials{
		ClientID: company.ATVClientID,
		Username: company.ATVUsername,
		Password: company.ATVPassword,
	})
	cancel()
	o.metrics.ObserveStage(entity.StageAuth, time.Since(start), err)
	if err != nil {
		return fail(entity.StageAuth, domain.ErrAuth, err)
	}
	if err := o.advance(store, doc, entity.StateAuthenticated, lg); err != nil {
		return doc, err
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 3. Envío a recepción. Último punto de cancelación: desde aquí el
	//    comprobante puede estar presentado ante Hacienda.
	// ═══════════════════════════════════════════════════════════════════════════
	if ctx.Err() != nil {
		return fail(entity.StageSubmission, ctx.Err(), errors.New("cancelado por el llamador"))
	}
	detached := context.WithoutCancel(ctx)
	start = time.Now()
	submitCtx, cancel := context.WithTimeout(detached, o.cfg.SubmitTimeout)
	res, err := o.submitter.Submit(submitCtx, submissionMetadata(doc), signed, token.AccessToken)
	cancel()
	o.metrics.ObserveStage(entity.StageSubmission, time.Since(start), err)
	if err != nil {
		return fail(entity.StageSubmission, domain.ErrSubmission, err)
	}
	doc.LocationURL = res.Location
	if err := o.advance(store, doc, entity.StateSubmitted, lg); err != nil {
		lg.Error().Err(err).Msg("hacienda: comprobante presentado pero no se pudo persistir SUBMITTED")
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 4. Programar la única consulta de estado
	// ═══════════════════════════════════════════════════════════════════════════
	if o.locations == nil || !o.locations.Allowed(doc.LocationURL) {
		lg.Warn().Str("location", doc.LocationURL).Msg("hacienda: URL de estado fuera de la lista permitida")
		return fail(entity.StageStatusCheck, domain.ErrStatus, errors.New(entity.ReasonInvalidURL))
	}
	if err := o.advance(store, doc, entity.StateAwaitingStatus, lg); err != nil {
		lg.Error().Err(err).Msg("hacienda: no se pudo persistir AWAITING_STATUS")
	}

	fired := make(chan struct{})
	timer := o.clock.AfterFunc(o.cfg.StatusDelay, func() { close(fired) })
	select {
	case <-fired:
	case <-ctx.Done():
		timer.Stop()
		doc.SubmissionState = entity.StateSubmitted
		if err := o.persist(store, doc); err != nil {
			lg.Error().Err(err).Msg("hacienda: no se pudo persistir SUBMITTED")
		}
		o.metrics.ObserveOutcome(doc.Kind, doc.SubmissionState, doc.StatusOutcome)
		lg.Info().Msg("hacienda: consulta de estado omitida por cancelación, queda SUBMITTED")
		return doc, nil
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 5. Consulta de estado e interpretación
	// ═══════════════════════════════════════════════════════════════════════════
	start = time.Now()
	statusCtx, cancel := context.WithTimeout(detached, o.cfg.StatusTimeout)
	st, err := o.status.Check(statusCtx, doc.LocationURL, token.AccessToken)
	cancel()
	o.metrics.ObserveStage(entity.StageStatusCheck, time.Since(start), err)

	switch {
	case err != nil:
		doc.StatusOutcome = entity.OutcomeProviderError
		doc.ProviderResponse = domain.NewStageError(entity.StageStatusCheck, domain.ErrStatus, err).Message
	default:
		doc.StatusOutcome = domhacienda.InterpretStatus(st.State)
		doc.ProviderResponse = firstNonEmpty(st.Detail, st.State)
	}
	switch doc.StatusOutcome {
	case entity.OutcomeAccepted:
		doc.SubmissionState = entity.StateAccepted
	case entity.OutcomeRejected:
		doc.SubmissionState = entity.StateRejected
	default:
		// Estado desconocido: el comprobante sigue presentado, pendiente de conciliación.
		doc.SubmissionState = entity.StateSubmitted
	}
	if err := o.persist(store, doc); err != nil {
		lg.Error().Err(err).Str("state", string(doc.SubmissionState)).Msg("hacienda: no se pudo persistir el estado final")
	}
	lg.Info().Str("state", string(doc.SubmissionState)).Str("outcome", string(doc.StatusOutcome)).
		Str("respuesta", doc.ProviderResponse).Msg("hacienda: consulta de estado")

	// ═══════════════════════════════════════════════════════════════════════════
	// 6. Notificación (solo ACCEPTED, aislada del estado)
	// ═══════════════════════════════════════════════════════════════════════════
	if doc.SubmissionState == entity.StateAccepted && o.notifier != nil {
		o.notify(detached, doc, lg)
	}

	o.metrics.ObserveOutcome(doc.Kind, doc.SubmissionState, doc.StatusOutcome)
	return doc, nil
}

func (o *SubmissionOrchestrator) notify(ctx context.Context, doc *entity.Document, lg zerolog.Logger) {
	start := time.Now()
	notifyCtx, cancel := context.WithTimeout(ctx, o.cfg.NotifyTimeout)
	err := o.notifier.NotifyAccepted(notifyCtx, doc, []byte(doc.XMLSigned))
	cancel()
	o.metrics.ObserveStage(entity.StageNotification, time.Since(start), err)
	if err == nil {
		return
	}
	doc.NotificationError = domain.NewStageError(entity.StageNotification, domain.ErrNotification, err).Message
	lg.Warn().Err(err).Msg("hacienda: notificación fallida, el comprobante sigue ACCEPTED")
	if perr := o.persist(ctx, doc); perr != nil {
		lg.Error().Err(perr).Msg("hacienda: no se pudo anotar el fallo de notificación")
	}
}

// advance persiste el nuevo estado. Un error aquí detiene el envío.
func (o *SubmissionOrchestrator) advance(ctx context.Context, doc *entity.Document, state entity.SubmissionState, lg zerolog.Logger) error {
	doc.SubmissionState = state
	if err := o.persist(ctx, doc); err != nil {
		return fmt.Errorf("orquestador: persistir %s: %w", state, err)
	}
	lg.Debug().Str("state", string(state)).Msg("hacienda: estado actualizado")
	return nil
}

func (o *SubmissionOrchestrator) persist(ctx context.Context, doc *entity.Document) error {
	doc.UpdatedAt = o.clock.Now()
	return o.documents.UpdateSubmission(ctx, doc)
}

// submissionMetadata datos de emisor y receptor que exige la API de recepción.
func submissionMetadata(doc *entity.Document) pkghacienda.SubmissionMetadata {
	meta := pkghacienda.SubmissionMetadata{
		Key:      doc.Key,
		IssuedAt: doc.IssuedAt,
		Issuer: pkghacienda.IdentificationRef{
			Type:   doc.Issuer.TaxIDType,
			Number: pkghacienda.NormalizeTaxID(doc.Issuer.TaxID),
		},
	}
	if doc.Recipient != nil && doc.Recipient.TaxID != "" {
		meta.Recipient = &pkghacienda.IdentificationRef{
			Type:   doc.Recipient.TaxIDType,
			Number: pkghacienda.NormalizeTaxID(doc.Recipient.TaxID),
		}
	}
	return meta
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
