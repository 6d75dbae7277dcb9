// Package webhook turns inbound WhatsApp events into generated, persisted and
// delivered replies.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/wpchat-gateway/internal/audit"
	"github.com/wolfman30/wpchat-gateway/internal/conversation"
	"github.com/wolfman30/wpchat-gateway/internal/events"
	"github.com/wolfman30/wpchat-gateway/internal/messaging"
	"github.com/wolfman30/wpchat-gateway/internal/messaging/whatsapp"
	"github.com/wolfman30/wpchat-gateway/internal/observability/metrics"
	"github.com/wolfman30/wpchat-gateway/internal/tenancy"
	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

var tracer = otel.Tracer("wpchat.internal.webhook")

// ErrRecipientMismatch is returned when the payload's business number names a
// different tenant than the webhook route.
var ErrRecipientMismatch = errors.New("webhook: recipient does not match route")

const (
	DefaultMessageThreshold = 20

	reasonNotMessage = "Not a message event"
	reasonNotText    = "Not a text message"
	reasonDuplicate  = "Duplicate event"
)

type summarizer interface {
	Summarize(ctx context.Context, messages []conversation.Message, existing string) string
}

type generator interface {
	Generate(ctx context.Context, req conversation.GenerateRequest) conversation.Reply
}

// Deliverer sends a reply through the provider.
type Deliverer interface {
	Deliver(ctx context.Context, from, to, text, apiKey string) (*whatsapp.Response, error)
}

type dedupStore interface {
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
	Forget(ctx context.Context, provider, eventID string) error
}

type turnRecorder interface {
	Record(ctx context.Context, turn audit.Turn) error
}

type transcriptArchiver interface {
	ArchiveTranscript(ctx context.Context, businessNumber, waNumber string, messages []conversation.Message, priorSummary, summary string) error
}

// Result is the structured outcome of one webhook event.
type Result struct {
	Success      bool   `json:"success"`
	Skipped      bool   `json:"skipped,omitempty"`
	Reason       string `json:"reason,omitempty"`
	WANumber     string `json:"waNumber,omitempty"`
	ProfileName  string `json:"profileName,omitempty"`
	UserMessage  string `json:"userMessage,omitempty"`
	AIResponse   string `json:"aiResponse,omitempty"`
	MessageCount int    `json:"messageCount,omitempty"`
	Summarized   bool   `json:"summarized,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Orchestrator runs one turn per inbound event.
type Orchestrator struct {
	tenants    tenancy.Resolver
	store      conversation.Store
	summarizer summarizer
	generator  generator
	deliverer  Deliverer
	locker     Locker
	dedup      dedupStore
	audit      turnRecorder
	archive    transcriptArchiver
	threshold  int
	metrics    *metrics.GatewayMetrics
	logger     *logging.Logger
	now        func() time.Time
}

// OrchestratorOption configures optional collaborators.
type OrchestratorOption func(*Orchestrator)

// WithMessageThreshold sets the history length that triggers summarization.
func WithMessageThreshold(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.threshold = n
		}
	}
}

// WithLocker replaces the default in-process user lock.
func WithLocker(l Locker) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.locker = l
		}
	}
}

// WithDedup enables duplicate delivery suppression.
func WithDedup(store dedupStore) OrchestratorOption {
	return func(o *Orchestrator) { o.dedup = store }
}

func WithAudit(r turnRecorder) OrchestratorOption {
	return func(o *Orchestrator) { o.audit = r }
}

func WithArchive(a transcriptArchiver) OrchestratorOption {
	return func(o *Orchestrator) { o.archive = a }
}

func WithMetrics(m *metrics.GatewayMetrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

func NewOrchestrator(tenants tenancy.Resolver, store conversation.Store, summarizer summarizer, generator generator, deliverer Deliverer, logger *logging.Logger, opts ...OrchestratorOption) *Orchestrator {
	if tenants == nil {
		panic("webhook: tenant resolver cannot be nil")
	}
	if store == nil {
		panic("webhook: conversation store cannot be nil")
	}
	if summarizer == nil {
		panic("webhook: summarizer cannot be nil")
	}
	if generator == nil {
		panic("webhook: generator cannot be nil")
	}
	if deliverer == nil {
		panic("webhook: deliverer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	o := &Orchestrator{
		tenants:    tenants,
		store:      store,
		summarizer: summarizer,
		generator:  generator,
		deliverer:  deliverer,
		locker:     NewLocalLocker(),
		threshold:  DefaultMessageThreshold,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process handles one event. routeBusinessID is the tenant id from the URL and
// is used when the payload carries no recipient. Process never returns an
// error: every failure is reported in the Result.
func (o *Orchestrator) Process(ctx context.Context, ev *Event, routeBusinessID string) Result {
	start := o.now()
	ctx, span := tracer.Start(ctx, "webhook.process")
	defer span.End()

	if ev == nil || ev.Event != eventMessageReceived {
		o.metrics.ObserveWebhook("skipped", o.now().Sub(start))
		return Result{Success: true, Skipped: true, Reason: reasonNotMessage}
	}
	if ev.From == "" || ev.Messages == nil || ev.Messages.Type != messageTypeText {
		o.metrics.ObserveWebhook("skipped", o.now().Sub(start))
		return Result{Success: true, Skipped: true, Reason: reasonNotText}
	}

	waNumber := ev.From
	profileName := ev.profileName()
	businessNumber := strings.TrimSpace(routeBusinessID)
	recipient := ev.recipient()
	if businessNumber == "" {
		businessNumber = recipient
	}
	logger := o.logger.With("wa_number", waNumber, "business_number", businessNumber)
	span.SetAttributes(
		attribute.String("wpchat.wa_number", waNumber),
		attribute.String("wpchat.business_number", businessNumber),
	)

	fail := func(err error) Result {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook turn failed")
		logger.Error("webhook processing failed", "error", err)
		o.metrics.ObserveWebhook("failed", o.now().Sub(start))
		return Result{Success: false, Error: err.Error(), WANumber: waNumber, ProfileName: profileName}
	}

	if recipient != "" && messaging.Digits(recipient) != messaging.Digits(businessNumber) {
		return fail(fmt.Errorf("webhook: recipient %q does not match route business id %q: %w", recipient, businessNumber, ErrRecipientMismatch))
	}

	eventID := o.eventID(ev, businessNumber)
	if eventID != "" {
		claimed, err := o.dedup.MarkProcessed(ctx, events.ProviderWhatsApp, eventID)
		switch {
		case err != nil:
			logger.Warn("dedup check failed, processing anyway", "error", err)
			eventID = ""
		case !claimed:
			logger.Info("duplicate webhook suppressed", "event_id", eventID)
			o.metrics.ObserveWebhook("duplicate", o.now().Sub(start))
			return Result{Success: true, Skipped: true, Reason: reasonDuplicate, WANumber: waNumber, ProfileName: profileName}
		}
	}
	// Failures before the turn is persisted release the claim so a provider
	// retry is processed again.
	persisted := false
	defer func() {
		if eventID != "" && !persisted {
			if err := o.dedup.Forget(context.WithoutCancel(ctx), events.ProviderWhatsApp, eventID); err != nil {
				logger.Warn("failed to release dedup claim", "error", err)
			}
		}
	}()

	tenant, err := o.tenants.Resolve(ctx, businessNumber)
	if err != nil {
		if errors.Is(err, tenancy.ErrTenantNotFound) {
			return fail(fmt.Errorf("webhook: no tenant for business number %q: %w", businessNumber, err))
		}
		return fail(fmt.Errorf("webhook: resolve tenant: %w", err))
	}
	businessNumber = tenant.BusinessNumber

	unlock, err := o.locker.Lock(ctx, UserKey(waNumber, businessNumber))
	if err != nil {
		return fail(fmt.Errorf("webhook: lock user: %w", err))
	}
	defer unlock()

	res, deliveryStatus, tools, err := o.runTurn(ctx, span, logger, tenant, ev, waNumber, businessNumber, profileName, &persisted)
	if persisted {
		o.recordAudit(ctx, logger, audit.Turn{
			BusinessNumber: businessNumber,
			WANumber:       waNumber,
			Summarized:     res.Summarized,
			MessageCount:   res.MessageCount,
			DeliveryStatus: deliveryStatus,
			Tools:          tools,
		})
	}
	if err != nil {
		return fail(err)
	}
	o.metrics.ObserveWebhook("processed", o.now().Sub(start))
	logger.Info("webhook turn completed",
		"message_count", res.MessageCount,
		"summarized", res.Summarized,
		"delivery_status", deliveryStatus,
		"tools", tools,
	)
	return res
}

// runTurn does the locked read-modify-write of one user's history followed by
// delivery. persisted is set once the new history is stored.
func (o *Orchestrator) runTurn(ctx context.Context, span trace.Span, logger *logging.Logger, tenant *tenancy.Tenant, ev *Event, waNumber, businessNumber, profileName string, persisted *bool) (Result, string, []string, error) {
	if _, err := o.store.FindOrCreate(ctx, waNumber, businessNumber, profileName); err != nil {
		return Result{}, "", nil, err
	}
	history, summary, err := o.store.GetHistory(ctx, waNumber, businessNumber)
	if err != nil {
		return Result{}, "", nil, err
	}

	summarized := false
	if len(history) >= o.threshold {
		newSummary := o.summarizer.Summarize(ctx, history, summary)
		if err := o.store.ClearWithSummary(ctx, waNumber, businessNumber, newSummary); err != nil {
			return Result{}, "", nil, err
		}
		if o.archive != nil {
			if err := o.archive.ArchiveTranscript(ctx, businessNumber, waNumber, history, summary, newSummary); err != nil {
				logger.Warn("transcript archive failed", "error", err)
			}
		}
		logger.Info("history summarized", "messages", len(history))
		history, summary, summarized = []conversation.Message{}, newSummary, true
	}
	span.SetAttributes(attribute.Bool("wpchat.summarized", summarized))

	body := ev.body()
	received := ev.Messages.Timestamp.Time
	if received.IsZero() {
		received = o.now().UTC()
	}
	reply := o.generator.Generate(ctx, conversation.GenerateRequest{
		SystemPrompt: tenant.CompanyContext,
		Summary:      summary,
		History:      history,
		Message:      body,
	})

	updated := make([]conversation.Message, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated,
		conversation.Message{Role: conversation.RoleUser, Content: body, Timestamp: received},
		conversation.Message{Role: conversation.RoleBot, Content: reply.Text, Timestamp: o.now().UTC()},
	)
	if err := o.store.AppendAndPersist(ctx, waNumber, businessNumber, updated); err != nil {
		return Result{}, "", reply.Tools, err
	}
	*persisted = true

	res := Result{
		Success:      true,
		WANumber:     waNumber,
		ProfileName:  profileName,
		UserMessage:  body,
		AIResponse:   reply.Text,
		MessageCount: len(updated),
		Summarized:   summarized,
	}

	resp, err := o.deliverer.Deliver(ctx, messaging.WithPlus(waNumber), messaging.WithPlus(businessNumber), reply.Text, tenant.APIKey)
	if err != nil {
		return res, audit.DeliveryFailed, reply.Tools, fmt.Errorf("webhook: deliver reply: %w", err)
	}
	status := audit.DeliverySent
	if resp != nil && resp.Status == whatsapp.StatusSkipped {
		status = audit.DeliverySkipped
	}
	return res, status, reply.Tools, nil
}

func (o *Orchestrator) eventID(ev *Event, businessNumber string) string {
	if o.dedup == nil || ev.Messages.Timestamp.Raw == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s", messaging.Digits(businessNumber), messaging.Digits(ev.From), ev.Messages.Timestamp.Raw)
}

func (o *Orchestrator) recordAudit(ctx context.Context, logger *logging.Logger, turn audit.Turn) {
	if o.audit == nil {
		return
	}
	if err := o.audit.Record(context.WithoutCancel(ctx), turn); err != nil {
		logger.Warn("audit record failed", "error", err)
	}
}
