package payment

import (
	"context"
	"errors"
	"net/http"

	"saralpe/internal/config"
	"saralpe/internal/domain/transaction"
	"saralpe/internal/metrics"
	"saralpe/internal/provider"
	"saralpe/internal/store/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Gateway executes one provider operation and classifies the outcome.
type Gateway interface {
	Execute(ctx context.Context, req provider.Request) provider.Result
}

// Service builds operation payloads for the reseller and merchant identities
// and keeps the local transaction ledger in step with what the provider reports.
type Service struct {
	reseller channel
	merchant channel
	txRepo   repositories.TransactionRepository
	metrics  *metrics.Metrics
}

// channel is one provider identity: the gateway carrying its token and the
// fields stamped on each of its payloads.
type channel struct {
	gateway    Gateway
	rid        string // empty on the merchant channel
	defaultMID string
	boundMID   bool // the token belongs to defaultMID, so caller mids are ignored
}

// NewService creates a new payment service. merchant may be nil when no
// merchant credentials are configured; merchant operations then fail with 503.
func NewService(reseller, merchant Gateway, txRepo repositories.TransactionRepository, cfg config.PaygicCfg, m *metrics.Metrics) *Service {
	return &Service{
		reseller: channel{gateway: reseller, rid: cfg.RID, defaultMID: cfg.DefaultMID},
		merchant: channel{gateway: merchant, defaultMID: cfg.DefaultMID, boundMID: true},
		txRepo:   txRepo,
		metrics:  m,
	}
}

// CreatePaymentRequest asks the provider for a UPI payment intent. On success
// a pending transaction is recorded and returned alongside the result.
func (s *Service) CreatePaymentRequest(ctx context.Context, in PaymentInput) (provider.Result, *transaction.Transaction) {
	return s.createPayment(ctx, s.reseller, in)
}

// CreateCollectRequest pushes a collect request to the payer's VPA.
func (s *Service) CreateCollectRequest(ctx context.Context, in CollectInput) (provider.Result, *transaction.Transaction) {
	return s.createCollect(ctx, s.reseller, in)
}

// CheckPaymentStatus queries the provider and, when the transaction is known
// locally, records a status change.
func (s *Service) CheckPaymentStatus(ctx context.Context, in StatusInput) provider.Result {
	return s.checkStatus(ctx, s.reseller, in)
}

// CreatePaymentPage requests a hosted payment page with the merchant's own
// token. Nothing is recorded locally.
func (s *Service) CreatePaymentPage(ctx context.Context, in PaymentInput) provider.Result {
	payload := s.merchant.payload(s.merchant.mid(in.MID))
	payload["merchantReferenceId"] = provider.String(newReference("ref_"))
	addCustomer(payload, in)

	return s.merchant.execute(ctx, provider.Request{Operation: provider.OpCreatePaymentPage, Payload: payload})
}

func (s *Service) CreateMerchantPaymentRequest(ctx context.Context, in PaymentInput) (provider.Result, *transaction.Transaction) {
	return s.createPayment(ctx, s.merchant, in)
}

func (s *Service) CreateMerchantCollectRequest(ctx context.Context, in CollectInput) (provider.Result, *transaction.Transaction) {
	return s.createCollect(ctx, s.merchant, in)
}

func (s *Service) CheckMerchantPaymentStatus(ctx context.Context, in StatusInput) provider.Result {
	return s.checkStatus(ctx, s.merchant, in)
}

// SyncStatus refreshes one pending transaction from the provider and returns
// its status afterwards.
func (s *Service) SyncStatus(ctx context.Context, t *transaction.Transaction) (transaction.Status, error) {
	ch := s.channelFor(t)
	res := ch.execute(ctx, statusRequest(ch.payload(ch.mid(t.MID)), t.MerchantReferenceID))
	if !res.OK() {
		return t.Status, ServiceError{Op: "sync_status", Message: res.String()}
	}
	return s.applyStatus(ctx, t, res)
}

func (s *Service) MerchantFetchIndividual(ctx context.Context, in MerchantInput) provider.Result {
	return s.reseller.execute(ctx, provider.Request{
		Operation: provider.OpMerchantFetchIndividual,
		Payload:   s.reseller.payload(s.reseller.mid(in.MID)),
	})
}

func (s *Service) MerchantDueDiligence(ctx context.Context, in DueDiligenceInput) provider.Result {
	payload := s.reseller.payload(s.reseller.mid(in.MID))
	payload["id"] = provider.String(in.ID)
	payload["name"] = provider.String(in.Name)
	payload["pan"] = provider.String(in.PAN)
	payload["type"] = provider.String(in.Type)
	payload["poa"] = provider.String(in.POA)
	payload["dob"] = provider.String(in.DOB)
	payload["gender"] = provider.String(in.Gender)

	return s.reseller.execute(ctx, provider.Request{Operation: provider.OpMerchantDueDiligence, Payload: payload})
}

func (s *Service) MerchantCompleteOnboarding(ctx context.Context, in MerchantInput) provider.Result {
	return s.reseller.execute(ctx, provider.Request{
		Operation: provider.OpMerchantCompleteOnboarding,
		Payload:   s.reseller.payload(s.reseller.mid(in.MID)),
	})
}

// ProcessCallback applies a provider callback to the matching transaction,
// creating it when the reference is unknown.
func (s *Service) ProcessCallback(ctx context.Context, cb transaction.Callback) (*transaction.Transaction, error) {
	t, err := s.txRepo.UpsertCallback(ctx, cb)
	if err != nil {
		return nil, ServiceError{Op: "process_callback", Message: "failed to store callback", Err: err}
	}

	s.metrics.IncCallback(t.Status.Label())
	log.Info().
		Str("paygic_reference_id", cb.PaygicReferenceID).
		Str("status", string(t.Status)).
		Int64("transaction_id", t.ID).
		Msg("transaction callback processed")
	return t, nil
}

// ListTransactions retrieves transactions newest first with pagination
func (s *Service) ListTransactions(ctx context.Context, limit, offset int) ([]*transaction.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.txRepo.List(ctx, limit, offset)
}

func (s *Service) createPayment(ctx context.Context, ch channel, in PaymentInput) (provider.Result, *transaction.Transaction) {
	mid := ch.mid(in.MID)
	ref := newReference("ref_")

	payload := ch.payload(mid)
	payload["merchantReferenceId"] = provider.String(ref)
	addCustomer(payload, in)

	res := ch.execute(ctx, provider.Request{Operation: provider.OpCreatePaymentRequest, Payload: payload})
	return res, s.recordPending(ctx, ch, mid, ref, in, res)
}

func (s *Service) createCollect(ctx context.Context, ch channel, in CollectInput) (provider.Result, *transaction.Transaction) {
	mid := ch.mid(in.MID)
	ref := newReference("ref_")

	remark := in.Remark
	if remark == "" {
		remark = defaultCollectRemark
	}

	payload := ch.payload(mid)
	payload["merchantReferenceId"] = provider.String(ref)
	addCustomer(payload, in.PaymentInput)
	payload["vpa"] = provider.String(in.VPA)
	payload["remark"] = provider.String(remark)

	res := ch.execute(ctx, provider.Request{Operation: provider.OpCreateCollectRequest, Payload: payload})
	return res, s.recordPending(ctx, ch, mid, ref, in.PaymentInput, res)
}

func (s *Service) checkStatus(ctx context.Context, ch channel, in StatusInput) provider.Result {
	res := ch.execute(ctx, statusRequest(ch.payload(ch.mid(in.MID)), in.MerchantReferenceID))
	if !res.OK() {
		return res
	}

	t, err := s.txRepo.FindByMerchantReference(ctx, in.MerchantReferenceID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
	case err != nil:
		log.Warn().Err(err).Str("merchant_reference_id", in.MerchantReferenceID).Msg("status lookup: local transaction read failed")
	default:
		if _, err := s.applyStatus(ctx, t, res); err != nil {
			log.Warn().Err(err).Int64("transaction_id", t.ID).Msg("status lookup: local update failed")
		}
	}
	return res
}

// channelFor picks the identity that created t. Merchant-surface rows carry no rid.
func (s *Service) channelFor(t *transaction.Transaction) channel {
	if t.RID == "" && s.merchant.gateway != nil && t.MID == s.merchant.defaultMID {
		return s.merchant
	}
	return s.reseller
}

// mid returns the caller's merchant id, or the configured default when none
// was given or the channel is bound to it.
func (c channel) mid(requested string) string {
	if requested == "" || c.boundMID {
		return c.defaultMID
	}
	return requested
}

func (c channel) payload(mid string) provider.Payload {
	p := provider.Payload{"mid": provider.String(mid)}
	if c.rid != "" {
		p["rid"] = provider.String(c.rid)
	}
	return p
}

func (c channel) execute(ctx context.Context, req provider.Request) provider.Result {
	if c.gateway == nil {
		return provider.Result{
			Outcome:     provider.OutcomeRequestFailure,
			StatusCode:  http.StatusServiceUnavailable,
			ErrorDetail: "merchant credentials are not configured",
		}
	}
	return c.gateway.Execute(ctx, req)
}

func (s *Service) recordPending(ctx context.Context, ch channel, mid, ref string, in PaymentInput, res provider.Result) *transaction.Transaction {
	if !res.OK() {
		return nil
	}

	paygicRef, _ := res.Lookup("data", "paygicReferenceId")
	t, err := transaction.NewPending(ch.rid, mid, newReference("slp_"), ref, paygicRef,
		in.Amount, in.CustomerName, in.CustomerEmail, in.CustomerMobile)
	if err != nil {
		log.Error().Err(err).Str("merchant_reference_id", ref).Msg("failed to build pending transaction")
		return nil
	}

	// the provider already accepted the request, so a local write failure is logged, not surfaced
	if err := s.txRepo.Create(ctx, t); err != nil {
		log.Error().Err(err).Str("merchant_reference_id", ref).Msg("failed to record pending transaction")
		return nil
	}

	log.Info().
		Str("merchant_reference_id", ref).
		Str("paygic_reference_id", paygicRef).
		Float64("amount", t.Amount).
		Msg("pending transaction recorded")
	return t
}

// applyStatus writes the provider's status to t when it moved. A terminal
// local status is never reverted to a non-terminal one.
func (s *Service) applyStatus(ctx context.Context, t *transaction.Transaction, res provider.Result) (transaction.Status, error) {
	raw, ok := remoteStatus(res)
	if !ok {
		return t.Status, nil
	}

	status := transaction.ParseStatus(raw)
	if status == t.Status || (t.Status.IsTerminal() && !status.IsTerminal()) {
		return t.Status, nil
	}

	if err := s.txRepo.UpdateStatus(ctx, t.ID, status); err != nil {
		return t.Status, ServiceError{Op: "apply_status", Message: "failed to update transaction status", Err: err}
	}

	log.Info().
		Int64("transaction_id", t.ID).
		Str("merchant_reference_id", t.MerchantReferenceID).
		Str("from", string(t.Status)).
		Str("to", string(status)).
		Msg("transaction status updated")
	return status, nil
}

// remoteStatus finds txnStatus at the top level or inside data.
func remoteStatus(res provider.Result) (string, bool) {
	if v, ok := res.Lookup("txnStatus"); ok && v != "" {
		return v, true
	}
	if v, ok := res.Lookup("data", "txnStatus"); ok && v != "" {
		return v, true
	}
	return "", false
}

func statusRequest(payload provider.Payload, merchantRef string) provider.Request {
	payload["merchantReferenceId"] = provider.String(merchantRef)
	return provider.Request{Operation: provider.OpCheckPaymentStatus, Payload: payload}
}

func addCustomer(p provider.Payload, in PaymentInput) {
	p["amount"] = provider.Number(in.Amount)
	p["customer_name"] = provider.String(in.CustomerName)
	p["customer_email"] = provider.String(in.CustomerEmail)
	p["customer_mobile"] = provider.String(in.CustomerMobile)
}

func newReference(prefix string) string {
	return prefix + uuid.NewString()
}
