package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	paymentdomain "github.com/smallbiznis/billfold/internal/payment/domain"
	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	eventCheckoutCompleted            = "checkout.session.completed"
	eventCheckoutAsyncPaymentSucceded = "checkout.session.async_payment_succeeded"
	eventPaymentIntentSucceeded       = "payment_intent.succeeded"
)

// metadataInvoiceKeys are read in order; checkout sessions created by older
// clients carry the camel-case key.
var metadataInvoiceKeys = []string{"invoice_id", "invoiceId"}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return paymentdomain.ProviderStripe
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	return &Adapter{webhookSecret: secret}, nil
}

type Adapter struct {
	webhookSecret string
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	_, err := a.construct(payload, headers)
	return err
}

func (a *Adapter) construct(payload []byte, headers http.Header) (stripego.Event, error) {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return stripego.Event{}, paymentdomain.ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, a.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripego.Event{}, errors.Mark(errors.Wrap(err, "verify stripe signature"), paymentdomain.ErrInvalidSignature)
	}
	return event, nil
}

// Parse decodes a verified payload. Events that do not settle an invoice
// return ErrEventIgnored.
func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var event stripego.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" || event.Data == nil {
		return nil, paymentdomain.ErrInvalidEvent
	}

	var metadata map[string]string
	switch string(event.Type) {
	case eventCheckoutCompleted, eventCheckoutAsyncPaymentSucceded:
		var session stripego.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, paymentdomain.ErrInvalidPayload
		}
		// delayed payment methods complete the session before funds arrive
		if session.PaymentStatus == stripego.CheckoutSessionPaymentStatusUnpaid {
			return nil, paymentdomain.ErrEventIgnored
		}
		metadata = session.Metadata
	case eventPaymentIntentSucceeded:
		var intent stripego.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, paymentdomain.ErrInvalidPayload
		}
		metadata = intent.Metadata
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	invoiceID := readMetadataInvoiceID(metadata)
	if invoiceID == "" {
		return nil, paymentdomain.ErrEventIgnored
	}

	occurredAt := time.Now().UTC()
	if event.Created > 0 {
		occurredAt = time.Unix(event.Created, 0).UTC()
	}

	return &paymentdomain.PaymentEvent{
		Provider:        paymentdomain.ProviderStripe,
		ProviderEventID: event.ID,
		ProviderType:    string(event.Type),
		Type:            paymentdomain.EventTypePaymentSucceeded,
		InvoiceID:       invoiceID,
		OccurredAt:      occurredAt,
		RawPayload:      payload,
	}, nil
}

func readMetadataInvoiceID(metadata map[string]string) string {
	for _, key := range metadataInvoiceKeys {
		if value := strings.TrimSpace(metadata[key]); value != "" {
			return value
		}
	}
	return ""
}
