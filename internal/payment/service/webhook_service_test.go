package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"coolmath-pro/backend/internal/device"
	"coolmath-pro/backend/internal/events"
	"coolmath-pro/backend/internal/payment/domain"
	"coolmath-pro/backend/internal/payment/razorpay"
	"coolmath-pro/backend/internal/telemetry"
)

const testSecret = "webhook-test-secret"

type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*domain.Payment
	audits   []*domain.WebhookEvent
	applyErr error
	auditErr error
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[string]*domain.Payment)}
}

func (r *memPaymentRepo) ApplyCaptured(_ context.Context, p *domain.Payment) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyErr != nil {
		return false, r.applyErr
	}
	if _, ok := r.payments[p.ID]; ok {
		return false, nil
	}
	cp := *p
	r.payments[p.ID] = &cp
	return true, nil
}

func (r *memPaymentRepo) RecordWebhookEvent(_ context.Context, e *domain.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.auditErr != nil {
		return r.auditErr
	}
	cp := *e
	r.audits = append(r.audits, &cp)
	return nil
}

func (r *memPaymentRepo) lastAudit(t *testing.T) *domain.WebhookEvent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.audits) == 0 {
		t.Fatal("expected at least one audit record")
	}
	return r.audits[len(r.audits)-1]
}

type chanEmitter struct {
	ch chan *events.Event
}

func (e *chanEmitter) Emit(_ context.Context, ev *events.Event) error {
	e.ch <- ev
	return nil
}

func newTestService(repo *memPaymentRepo, emitter events.Emitter) *WebhookService {
	return NewWebhookService(repo, testSecret, emitter, nil, slog.Default())
}

func capturedBody(paymentID, deviceID string, amountPaise int64) []byte {
	body := `{"event":"payment.captured","payload":{"payment":{"entity":{` +
		`"id":"` + paymentID + `","amount":` + strconv.FormatInt(amountPaise, 10) + `,"currency":"INR",` +
		`"method":"upi","notes":{"device_id":"` + deviceID + `"}}}}}`
	return []byte(body)
}

func TestHandleRazorpayInvalidSignature(t *testing.T) {
	repo := newMemPaymentRepo()
	svc := newTestService(repo, nil)

	body := capturedBody("pay_1", "DEV-1", 49900)
	_, err := svc.HandleRazorpay(context.Background(), body, "deadbeef")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if len(repo.payments) != 0 {
		t.Fatal("payment must not be applied on signature failure")
	}
	a := repo.lastAudit(t)
	if a.SignatureValid || a.Outcome != OutcomeFailed {
		t.Fatalf("audit = %+v, want signature_valid=false outcome=failed", a)
	}
}

func TestHandleRazorpayEmptySignature(t *testing.T) {
	repo := newMemPaymentRepo()
	svc := newTestService(repo, nil)

	body := capturedBody("pay_1", "DEV-1", 49900)
	if _, err := svc.HandleRazorpay(context.Background(), body, ""); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestHandleRazorpayAppliesCapturedPayment(t *testing.T) {
	repo := newMemPaymentRepo()
	emitter := &chanEmitter{ch: make(chan *events.Event, 1)}
	svc := newTestService(repo, emitter)

	body := capturedBody("pay_1", "DEV-1", 49900)
	ack, err := svc.HandleRazorpay(context.Background(), body, razorpay.SignWebhookBody(body, testSecret))
	if err != nil {
		t.Fatalf("HandleRazorpay: %v", err)
	}
	if ack.Status != AckSuccess {
		t.Fatalf("ack = %q, want %q", ack.Status, AckSuccess)
	}

	p, ok := repo.payments["pay_1"]
	if !ok {
		t.Fatal("payment not recorded")
	}
	if p.Amount != 499 {
		t.Fatalf("amount = %d rupees, want 499", p.Amount)
	}
	if p.DeviceKey != device.Key("DEV-1") {
		t.Fatalf("device key = %q, want hashed key of raw id", p.DeviceKey)
	}
	if p.Currency != "INR" || p.Method != "upi" || p.Status != "captured" {
		t.Fatalf("payment = %+v", p)
	}

	a := repo.lastAudit(t)
	if !a.SignatureValid || a.Outcome != OutcomeApplied || a.PaymentID != "pay_1" {
		t.Fatalf("audit = %+v, want signature_valid=true outcome=applied", a)
	}

	select {
	case ev := <-emitter.ch:
		if ev.EventType != events.TypePaymentCaptured || ev.PaymentID != "pay_1" || ev.Amount != 499 {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no payment event emitted")
	}
}

func TestHandleRazorpayReplayIsNoOp(t *testing.T) {
	repo := newMemPaymentRepo()
	emitter := &chanEmitter{ch: make(chan *events.Event, 2)}
	svc := newTestService(repo, emitter)

	body := capturedBody("pay_1", "DEV-1", 49900)
	sig := razorpay.SignWebhookBody(body, testSecret)
	if _, err := svc.HandleRazorpay(context.Background(), body, sig); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	<-emitter.ch

	ack, err := svc.HandleRazorpay(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if ack.Status != AckSuccess {
		t.Fatalf("replay ack = %q, want %q", ack.Status, AckSuccess)
	}
	if a := repo.lastAudit(t); a.Outcome != OutcomeDuplicate {
		t.Fatalf("replay audit outcome = %q, want duplicate", a.Outcome)
	}

	select {
	case ev := <-emitter.ch:
		t.Fatalf("replay must not emit an event, got %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandleRazorpayIgnoresOtherEvents(t *testing.T) {
	repo := newMemPaymentRepo()
	svc := newTestService(repo, nil)

	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2","amount":100}}}}`)
	ack, err := svc.HandleRazorpay(context.Background(), body, razorpay.SignWebhookBody(body, testSecret))
	if err != nil {
		t.Fatalf("HandleRazorpay: %v", err)
	}
	if ack.Status != AckIgnored {
		t.Fatalf("ack = %q, want %q", ack.Status, AckIgnored)
	}
	if len(repo.payments) != 0 {
		t.Fatal("non-captured event must not record a payment")
	}
	if a := repo.lastAudit(t); a.Outcome != OutcomeIgnored || a.EventType != "payment.failed" {
		t.Fatalf("audit = %+v", a)
	}
}

func TestHandleRazorpayMissingDeviceID(t *testing.T) {
	repo := newMemPaymentRepo()
	svc := newTestService(repo, nil)

	// Razorpay sends [] for empty notes.
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_3","amount":49900,"currency":"INR","notes":[]}}}}`)
	ack, err := svc.HandleRazorpay(context.Background(), body, razorpay.SignWebhookBody(body, testSecret))
	if err != nil {
		t.Fatalf("HandleRazorpay: %v", err)
	}
	if ack.Status != AckIgnored {
		t.Fatalf("ack = %q, want %q", ack.Status, AckIgnored)
	}
	if len(repo.payments) != 0 {
		t.Fatal("payment without device id must not be recorded")
	}
	if a := repo.lastAudit(t); a.Outcome != OutcomeIgnored || a.PaymentID != "pay_3" {
		t.Fatalf("audit = %+v", a)
	}
}

func TestHandleRazorpayMalformedBody(t *testing.T) {
	repo := newMemPaymentRepo()
	svc := newTestService(repo, nil)

	body := []byte(`{"event":`)
	_, err := svc.HandleRazorpay(context.Background(), body, razorpay.SignWebhookBody(body, testSecret))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if errors.Is(err, ErrInvalidSignature) {
		t.Fatal("malformed body with valid signature must not report a signature error")
	}
	if a := repo.lastAudit(t); !a.SignatureValid || a.Outcome != OutcomeFailed {
		t.Fatalf("audit = %+v", a)
	}
}

func TestHandleRazorpayStorageError(t *testing.T) {
	repo := newMemPaymentRepo()
	repo.applyErr = errors.New("connection reset")
	svc := newTestService(repo, nil)

	body := capturedBody("pay_4", "DEV-1", 100)
	if _, err := svc.HandleRazorpay(context.Background(), body, razorpay.SignWebhookBody(body, testSecret)); err == nil {
		t.Fatal("expected storage error to surface")
	}
	if a := repo.lastAudit(t); a.Outcome != OutcomeFailed {
		t.Fatalf("audit outcome = %q, want failed", a.Outcome)
	}
}

func TestHandleRazorpayDeliveryCounterByOutcome(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := telemetry.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	repo := newMemPaymentRepo()
	svc := NewWebhookService(repo, testSecret, nil, metrics, slog.Default())

	body := capturedBody("pay_m", "DEV-1", 49900)
	sig := razorpay.SignWebhookBody(body, testSecret)
	if _, err := svc.HandleRazorpay(context.Background(), body, sig); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if _, err := svc.HandleRazorpay(context.Background(), body, sig); err != nil {
		t.Fatalf("replay: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "webhook_deliveries_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				got[outcome.AsString()] += dp.Value
			}
		}
	}
	if got[OutcomeApplied] != 1 || got[OutcomeDuplicate] != 1 {
		t.Fatalf("delivery counts = %v, want applied=1 duplicate=1", got)
	}
}

func TestHandleRazorpayAuditFailureDoesNotChangeAck(t *testing.T) {
	repo := newMemPaymentRepo()
	repo.auditErr = errors.New("audit table missing")
	svc := newTestService(repo, nil)

	body := capturedBody("pay_5", "DEV-1", 49900)
	ack, err := svc.HandleRazorpay(context.Background(), body, razorpay.SignWebhookBody(body, testSecret))
	if err != nil {
		t.Fatalf("HandleRazorpay: %v", err)
	}
	if ack.Status != AckSuccess {
		t.Fatalf("ack = %q, want %q", ack.Status, AckSuccess)
	}
}
