package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xavierca1/pmp-enrollment/internal/entity"
	"github.com/xavierca1/pmp-enrollment/internal/infra/logger"
)

const (
	CallToActionEmbedded = "ENROLL NOW"
	CallToActionHosted   = "GO TO CHECKOUT"

	msgFillRequired       = "Please fill in all required fields."
	msgPaymentUnavailable = "Payment system is not available. Please try again later."
	msgPaymentFailed      = "An error occurred while processing your payment. Please try again."
	msgRedirectFailed     = "Error processing payment. Please try again."

	defaultStepTimeout = 15 * time.Second
	defaultMountDelay  = 100 * time.Millisecond
)

var (
	ErrBusy             = errors.New("an enrollment step is already in progress")
	ErrInvalidForm      = errors.New("registration form is incomplete")
	ErrNoPaymentModal   = errors.New("payment modal is not open")
	ErrCardUnavailable  = errors.New("card widget is not configured")
	ErrRedirectDisabled = errors.New("navigator is not configured")
)

// API is the server surface the workflow calls.
type API interface {
	GeoInfo(ctx context.Context) (entity.GeoInfo, error)
	SaveLead(ctx context.Context, lead LeadSubmission) (string, error)
	CreatePaymentIntent(ctx context.Context, req PaymentRequest) (*PaymentIntent, error)
	CreateCheckoutSession(ctx context.Context, req PaymentRequest) (*CheckoutSession, error)
}

// Presenter shows and hides the payment and success modals.
type Presenter interface {
	OpenPaymentModal(name, email string)
	ClosePaymentModal()
	ShowSuccess()
}

// Navigator leaves the page for the processor's hosted checkout.
type Navigator interface {
	Redirect(url string) error
}

// CardWidget is the processor-supplied secure card entry element.
type CardWidget interface {
	Mount(ctx context.Context) error
	Unmount()
	CreatePaymentMethod(ctx context.Context, billing BillingDetails) (string, error)
	ConfirmCardPayment(ctx context.Context, clientSecret, paymentMethodID string) error
}

type BillingDetails struct {
	Name  string
	Email string
}

// Plan is the product being sold, priced in minor units.
type Plan struct {
	Name     string
	Amount   int64
	Currency string
}

var DefaultPlan = Plan{Name: "PMP Success Program", Amount: 1999900, Currency: "inr"}

type Options struct {
	Presenter   Presenter
	Navigator   Navigator
	Card        CardWidget
	Plan        Plan
	StepTimeout time.Duration
	MountDelay  time.Duration
	Logger      *logger.Logger
}

// Workflow is the enrollment state machine. Only one step runs at a time.
type Workflow struct {
	api       API
	presenter Presenter
	navigator Navigator
	card      CardWidget
	plan      Plan

	stepTimeout time.Duration
	mountDelay  time.Duration
	logg        *logger.Logger

	mu               sync.Mutex
	state            State
	method           string
	form             Form
	geo              entity.GeoInfo
	leadID           string
	modalOpen        bool
	message          string
	validationErrors []ValidationError
}

func NewWorkflow(api API, opts Options) *Workflow {
	if opts.Plan == (Plan{}) {
		opts.Plan = DefaultPlan
	}
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = defaultStepTimeout
	}
	if opts.MountDelay <= 0 {
		opts.MountDelay = defaultMountDelay
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Workflow{
		api:         api,
		presenter:   opts.Presenter,
		navigator:   opts.Navigator,
		card:        opts.Card,
		plan:        opts.Plan,
		stepTimeout: opts.StepTimeout,
		mountDelay:  opts.MountDelay,
		logg:        opts.Logger,
		state:       StateIdle,
		method:      entity.PaymentMethodEmbedded,
	}
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) PaymentMethod() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.method
}

// Message is the user-visible error text for the last failed step.
func (w *Workflow) Message() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.message
}

func (w *Workflow) ValidationErrors() []ValidationError {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]ValidationError(nil), w.validationErrors...)
}

// LeadID is empty until a lead save succeeds.
func (w *Workflow) LeadID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.leadID
}

func (w *Workflow) PaymentModalOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.modalOpen
}

// DetectLocation fetches the caller's location once so it can travel with the lead.
// Failures fall back to the default location.
func (w *Workflow) DetectLocation(ctx context.Context) entity.GeoInfo {
	stepCtx, cancel := context.WithTimeout(ctx, w.stepTimeout)
	defer cancel()

	geo, err := w.api.GeoInfo(stepCtx)
	if err != nil {
		w.logg.Error(ctx, "location detection failed", err)
		geo = entity.FallbackGeoInfo()
	}

	w.mu.Lock()
	w.geo = geo
	w.mu.Unlock()
	return geo
}

// SelectPaymentMethod only changes the branch Submit takes and the button label.
func (w *Workflow) SelectPaymentMethod(method string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.method = entity.NormalizePaymentMethod(method)
}

func (w *Workflow) CallToAction() string {
	if w.PaymentMethod() == entity.PaymentMethodHostedRedirect {
		return CallToActionHosted
	}
	return CallToActionEmbedded
}

// Submit validates the form, saves the lead and starts the selected payment branch.
// A failed lead save is logged and does not stop the payment step.
func (w *Workflow) Submit(ctx context.Context, form Form) error {
	if err := w.begin(StateValidating); err != nil {
		return err
	}

	if errs := Validate(form); len(errs) > 0 {
		w.mu.Lock()
		w.validationErrors = errs
		w.mu.Unlock()
		w.fail(msgFillRequired)
		return fmt.Errorf("%w: %d empty fields", ErrInvalidForm, len(errs))
	}

	w.mu.Lock()
	w.form = form
	w.validationErrors = nil
	method := w.method
	w.mu.Unlock()

	w.transition(StateAwaitingLeadSave)
	w.saveLead(ctx, form, method)

	if method == entity.PaymentMethodHostedRedirect {
		return w.redirectToCheckout(ctx, form)
	}
	return w.openPaymentModal(ctx, form)
}

func (w *Workflow) saveLead(ctx context.Context, form Form, method string) {
	stepCtx, cancel := context.WithTimeout(ctx, w.stepTimeout)
	defer cancel()

	// A failed save must not reuse the id from an earlier submission.
	w.mu.Lock()
	w.leadID = ""
	geo := w.geo
	w.mu.Unlock()

	id, err := w.api.SaveLead(stepCtx, LeadSubmission{Form: form, IPInfo: geo, PaymentMethod: method})
	if err != nil {
		w.logg.Error(w.logg.WithField(ctx, "email", form.Email), "lead save failed, continuing to payment", err)
		return
	}

	w.mu.Lock()
	w.leadID = id
	w.mu.Unlock()
}

func (w *Workflow) redirectToCheckout(ctx context.Context, form Form) error {
	if w.navigator == nil {
		w.fail(msgRedirectFailed)
		return ErrRedirectDisabled
	}

	w.transition(StateAwaitingIntent)
	stepCtx, cancel := context.WithTimeout(ctx, w.stepTimeout)
	defer cancel()

	session, err := w.api.CreateCheckoutSession(stepCtx, w.paymentRequest(form.FullName, form.Email))
	if err != nil {
		w.fail(msgRedirectFailed)
		return fmt.Errorf("create checkout session: %w", err)
	}

	if err := w.navigator.Redirect(session.URL); err != nil {
		w.fail(msgRedirectFailed)
		return fmt.Errorf("redirect to checkout: %w", err)
	}

	w.transition(StateSuccess)
	return nil
}

// openPaymentModal pre-fills the modal and mounts the card widget once the
// modal's display transition has had mountDelay to finish.
func (w *Workflow) openPaymentModal(ctx context.Context, form Form) error {
	if w.card == nil || w.presenter == nil {
		w.fail(msgPaymentUnavailable)
		return ErrCardUnavailable
	}

	w.presenter.OpenPaymentModal(form.FullName, form.Email)
	w.mu.Lock()
	w.modalOpen = true
	w.mu.Unlock()

	select {
	case <-ctx.Done():
		w.fail(msgPaymentUnavailable)
		return ctx.Err()
	case <-time.After(w.mountDelay):
	}

	stepCtx, cancel := context.WithTimeout(ctx, w.stepTimeout)
	defer cancel()
	if err := w.card.Mount(stepCtx); err != nil {
		w.fail(msgPaymentUnavailable)
		return fmt.Errorf("mount card widget: %w", err)
	}

	w.transition(StateIdle)
	return nil
}

// ConfirmCard runs the embedded branch: tokenize, create the intent, confirm.
// Any failure leaves the modal open with the error shown so the user can retry.
func (w *Workflow) ConfirmCard(ctx context.Context, billing BillingDetails) error {
	w.mu.Lock()
	open := w.modalOpen
	form := w.form
	w.mu.Unlock()
	if !open {
		return ErrNoPaymentModal
	}

	if err := w.begin(StateConfirming); err != nil {
		return err
	}
	if strings.TrimSpace(billing.Name) == "" {
		billing.Name = form.FullName
	}
	if strings.TrimSpace(billing.Email) == "" {
		billing.Email = form.Email
	}

	tokenCtx, cancel := context.WithTimeout(ctx, w.stepTimeout)
	paymentMethodID, err := w.card.CreatePaymentMethod(tokenCtx, billing)
	cancel()
	if err != nil {
		w.fail(err.Error())
		return fmt.Errorf("tokenize card: %w", err)
	}

	w.transition(StateAwaitingIntent)
	intentCtx, cancel := context.WithTimeout(ctx, w.stepTimeout)
	intent, err := w.api.CreatePaymentIntent(intentCtx, w.paymentRequest(billing.Name, billing.Email))
	cancel()
	if err != nil {
		w.fail(msgPaymentFailed)
		return fmt.Errorf("create payment intent: %w", err)
	}

	w.transition(StateConfirming)
	confirmCtx, cancel := context.WithTimeout(ctx, w.stepTimeout)
	err = w.card.ConfirmCardPayment(confirmCtx, intent.ClientSecret, paymentMethodID)
	cancel()
	if err != nil {
		w.fail(err.Error())
		return fmt.Errorf("confirm card payment: %w", err)
	}

	w.closeModal()
	w.presenter.ShowSuccess()
	w.transition(StateSuccess)
	return nil
}

// ClosePaymentModal dismisses the modal without paying.
func (w *Workflow) ClosePaymentModal() {
	w.closeModal()
	w.mu.Lock()
	if !w.state.Busy() {
		w.state = StateIdle
	}
	w.mu.Unlock()
}

func (w *Workflow) closeModal() {
	w.mu.Lock()
	wasOpen := w.modalOpen
	w.modalOpen = false
	w.mu.Unlock()
	if !wasOpen {
		return
	}
	w.presenter.ClosePaymentModal()
	w.card.Unmount()
}

func (w *Workflow) paymentRequest(name, email string) PaymentRequest {
	return PaymentRequest{
		Amount:        w.plan.Amount,
		Currency:      w.plan.Currency,
		PlanName:      w.plan.Name,
		CustomerEmail: email,
		CustomerName:  name,
		LeadID:        w.LeadID(),
	}
}

// begin claims the workflow for one step, refusing while another is in flight.
func (w *Workflow) begin(next State) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Busy() {
		return ErrBusy
	}
	w.state = next
	w.message = ""
	return nil
}

func (w *Workflow) transition(next State) {
	w.mu.Lock()
	w.state = next
	w.mu.Unlock()
}

func (w *Workflow) fail(message string) {
	w.mu.Lock()
	w.state = StateError
	w.message = message
	w.mu.Unlock()
}
