package enrollment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/pmp-enrollment/internal/entity"
)

type fakeAPI struct {
	mu           sync.Mutex
	geo          entity.GeoInfo
	geoErr       error
	leadID       string
	saveErr      error
	saved        []LeadSubmission
	intentErr    error
	intents      []PaymentRequest
	sessionErr   error
	sessions     []PaymentRequest
	blockIntent  chan struct{}
	intentCalled chan struct{}
}

func (f *fakeAPI) GeoInfo(context.Context) (entity.GeoInfo, error) {
	return f.geo, f.geoErr
}

func (f *fakeAPI) SaveLead(_ context.Context, lead LeadSubmission) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, lead)
	return f.leadID, f.saveErr
}

func (f *fakeAPI) CreatePaymentIntent(ctx context.Context, req PaymentRequest) (*PaymentIntent, error) {
	f.mu.Lock()
	f.intents = append(f.intents, req)
	f.mu.Unlock()
	if f.intentCalled != nil {
		close(f.intentCalled)
	}
	if f.blockIntent != nil {
		select {
		case <-f.blockIntent:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.intentErr != nil {
		return nil, f.intentErr
	}
	return &PaymentIntent{ClientSecret: "pi_1_secret", PaymentIntentID: "pi_1"}, nil
}

func (f *fakeAPI) CreateCheckoutSession(_ context.Context, req PaymentRequest) (*CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, req)
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return &CheckoutSession{SessionID: "cs_1", URL: "https://checkout.stripe.com/c/pay/cs_1"}, nil
}

type fakePresenter struct {
	opened       []string
	closed       int
	successShown bool
}

func (p *fakePresenter) OpenPaymentModal(name, email string) { p.opened = append(p.opened, name+"|"+email) }
func (p *fakePresenter) ClosePaymentModal() { p.closed++ }
func (p *fakePresenter) ShowSuccess() { p.successShown = true }

type fakeNavigator struct {
	urls []string
	err  error
}

func (n *fakeNavigator) Redirect(url string) error {
	n.urls = append(n.urls, url)
	return n.err
}

type fakeCard struct {
	mounted    bool
	unmounted  bool
	mountErr   error
	tokenErr   error
	confirmErr error
	billing    BillingDetails
	confirmed  []string
}

func (c *fakeCard) Mount(context.Context) error {
	c.mounted = c.mountErr == nil
	return c.mountErr
}

func (c *fakeCard) Unmount() { c.unmounted = true }

func (c *fakeCard) CreatePaymentMethod(_ context.Context, billing BillingDetails) (string, error) {
	c.billing = billing
	if c.tokenErr != nil {
		return "", c.tokenErr
	}
	return "pm_card_visa", nil
}

func (c *fakeCard) ConfirmCardPayment(_ context.Context, clientSecret, paymentMethodID string) error {
	c.confirmed = append(c.confirmed, clientSecret+"|"+paymentMethodID)
	return c.confirmErr
}

type harness struct {
	api       *fakeAPI
	presenter *fakePresenter
	navigator *fakeNavigator
	card      *fakeCard
	wf        *Workflow
}

func newHarness() *harness {
	h := &harness{
		api:       &fakeAPI{leadID: "lead-1"},
		presenter: &fakePresenter{},
		navigator: &fakeNavigator{},
		card:      &fakeCard{},
	}
	h.wf = NewWorkflow(h.api, Options{
		Presenter:   h.presenter,
		Navigator:   h.navigator,
		Card:        h.card,
		StepTimeout: time.Second,
		MountDelay:  time.Millisecond,
	})
	return h
}

func TestCallToActionFollowsPaymentMethod(t *testing.T) {
	h := newHarness()
	assert.Equal(t, CallToActionEmbedded, h.wf.CallToAction())

	h.wf.SelectPaymentMethod(entity.PaymentMethodHostedRedirect)
	assert.Equal(t, CallToActionHosted, h.wf.CallToAction())

	h.wf.SelectPaymentMethod(entity.PaymentMethodEmbedded)
	assert.Equal(t, "ENROLL NOW", h.wf.CallToAction())
}

func TestSubmitInvalidFormMakesNoNetworkCall(t *testing.T) {
	h := newHarness()
	form := completeForm()
	form.Phone = " "

	err := h.wf.Submit(context.Background(), form)

	assert.ErrorIs(t, err, ErrInvalidForm)
	assert.Equal(t, StateError, h.wf.State())
	assert.Equal(t, "Please fill in all required fields.", h.wf.Message())
	assert.Equal(t, []ValidationError{{Field: FieldPhone, Message: "is required"}}, h.wf.ValidationErrors())
	assert.Empty(t, h.api.saved)
	assert.Empty(t, h.presenter.opened)
}

func TestSubmitEmbeddedOpensModalAndMountsCard(t *testing.T) {
	h := newHarness()
	h.api.geo = entity.GeoInfo{CountryCode: "IN"}
	h.wf.DetectLocation(context.Background())

	require.NoError(t, h.wf.Submit(context.Background(), completeForm()))

	assert.Equal(t, StateIdle, h.wf.State())
	assert.True(t, h.wf.PaymentModalOpen())
	assert.Equal(t, []string{"A B|a@b.com"}, h.presenter.opened)
	assert.True(t, h.card.mounted)
	require.Len(t, h.api.saved, 1)
	assert.Equal(t, entity.PaymentMethodEmbedded, h.api.saved[0].PaymentMethod)
	assert.Equal(t, "IN", h.api.saved[0].IPInfo.CountryCode)
	assert.Equal(t, "lead-1", h.wf.LeadID())
}

func TestSubmitContinuesWhenLeadSaveFails(t *testing.T) {
	h := newHarness()
	h.api.saveErr = errors.New("500")

	require.NoError(t, h.wf.Submit(context.Background(), completeForm()))

	assert.True(t, h.wf.PaymentModalOpen())
	assert.Empty(t, h.wf.LeadID())
}

func TestResubmitAfterFailedSaveDropsPreviousLeadID(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.wf.Submit(context.Background(), completeForm()))
	require.Equal(t, "lead-1", h.wf.LeadID())
	h.wf.ClosePaymentModal()

	h.api.saveErr = errors.New("500")
	second := completeForm()
	second.Email = "c@d.com"
	require.NoError(t, h.wf.Submit(context.Background(), second))
	require.NoError(t, h.wf.ConfirmCard(context.Background(), BillingDetails{}))

	require.Len(t, h.api.intents, 1)
	assert.Equal(t, "c@d.com", h.api.intents[0].CustomerEmail)
	assert.Empty(t, h.api.intents[0].LeadID)
	assert.Empty(t, h.wf.LeadID())
}

func TestSubmitEmbeddedWithoutCardWidget(t *testing.T) {
	api := &fakeAPI{}
	wf := NewWorkflow(api, Options{Presenter: &fakePresenter{}})

	err := wf.Submit(context.Background(), completeForm())

	assert.ErrorIs(t, err, ErrCardUnavailable)
	assert.Equal(t, StateError, wf.State())
	assert.Equal(t, "Payment system is not available. Please try again later.", wf.Message())
}

func TestSubmitHostedRedirect(t *testing.T) {
	h := newHarness()
	h.wf.SelectPaymentMethod("hosted-redirect")

	require.NoError(t, h.wf.Submit(context.Background(), completeForm()))

	assert.Equal(t, StateSuccess, h.wf.State())
	assert.Equal(t, []string{"https://checkout.stripe.com/c/pay/cs_1"}, h.navigator.urls)
	require.Len(t, h.api.sessions, 1)
	assert.Equal(t, PaymentRequest{
		Amount:        1999900,
		Currency:      "inr",
		PlanName:      "PMP Success Program",
		CustomerEmail: "a@b.com",
		CustomerName:  "A B",
		LeadID:        "lead-1",
	}, h.api.sessions[0])
	assert.Empty(t, h.presenter.opened)
	assert.Empty(t, h.api.intents)
}

func TestSubmitHostedRedirectSessionFailure(t *testing.T) {
	h := newHarness()
	h.api.sessionErr = &APIError{Status: 500, Message: "No such price"}
	h.wf.SelectPaymentMethod("hosted-redirect")

	err := h.wf.Submit(context.Background(), completeForm())

	assert.Error(t, err)
	assert.Equal(t, StateError, h.wf.State())
	assert.Equal(t, "Error processing payment. Please try again.", h.wf.Message())
	assert.Empty(t, h.navigator.urls)
}

func TestConfirmCardRequiresOpenModal(t *testing.T) {
	h := newHarness()
	assert.ErrorIs(t, h.wf.ConfirmCard(context.Background(), BillingDetails{}), ErrNoPaymentModal)
}

func TestConfirmCardSuccess(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.wf.Submit(context.Background(), completeForm()))

	require.NoError(t, h.wf.ConfirmCard(context.Background(), BillingDetails{}))

	assert.Equal(t, StateSuccess, h.wf.State())
	assert.Equal(t, BillingDetails{Name: "A B", Email: "a@b.com"}, h.card.billing)
	assert.Equal(t, []string{"pi_1_secret|pm_card_visa"}, h.card.confirmed)
	assert.Equal(t, 1, h.presenter.closed)
	assert.True(t, h.card.unmounted)
	assert.True(t, h.presenter.successShown)
	assert.False(t, h.wf.PaymentModalOpen())
	require.Len(t, h.api.intents, 1)
	assert.Equal(t, "lead-1", h.api.intents[0].LeadID)
}

func TestConfirmCardUsesEditedBillingDetails(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.wf.Submit(context.Background(), completeForm()))

	require.NoError(t, h.wf.ConfirmCard(context.Background(), BillingDetails{Name: "X Y", Email: "x@y.com"}))

	assert.Equal(t, "x@y.com", h.api.intents[0].CustomerEmail)
	assert.Equal(t, "X Y", h.api.intents[0].CustomerName)
}

func TestConfirmCardTokenizationErrorAllowsRetry(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.wf.Submit(context.Background(), completeForm()))
	h.card.tokenErr = errors.New("Your card number is incomplete.")

	err := h.wf.ConfirmCard(context.Background(), BillingDetails{})

	assert.Error(t, err)
	assert.Equal(t, StateError, h.wf.State())
	assert.Equal(t, "Your card number is incomplete.", h.wf.Message())
	assert.True(t, h.wf.PaymentModalOpen())
	assert.Empty(t, h.api.intents)

	h.card.tokenErr = nil
	require.NoError(t, h.wf.ConfirmCard(context.Background(), BillingDetails{}))
	assert.Equal(t, StateSuccess, h.wf.State())
	assert.Empty(t, h.wf.Message())
}

func TestConfirmCardIntentFailure(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.wf.Submit(context.Background(), completeForm()))
	h.api.intentErr = &APIError{Status: 500, Message: "Invalid API Key provided"}

	err := h.wf.ConfirmCard(context.Background(), BillingDetails{})

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, StateError, h.wf.State())
	assert.Equal(t, "An error occurred while processing your payment. Please try again.", h.wf.Message())
	assert.Empty(t, h.card.confirmed)
}

func TestConfirmCardDeclined(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.wf.Submit(context.Background(), completeForm()))
	h.card.confirmErr = errors.New("Your card was declined.")

	assert.Error(t, h.wf.ConfirmCard(context.Background(), BillingDetails{}))

	assert.Equal(t, StateError, h.wf.State())
	assert.Equal(t, "Your card was declined.", h.wf.Message())
	assert.False(t, h.presenter.successShown)
	assert.True(t, h.wf.PaymentModalOpen())
}

func TestConfirmCardRejectsConcurrentSubmit(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.wf.Submit(context.Background(), completeForm()))

	h.api.blockIntent = make(chan struct{})
	h.api.intentCalled = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- h.wf.ConfirmCard(context.Background(), BillingDetails{}) }()

	<-h.api.intentCalled
	assert.Equal(t, StateAwaitingIntent, h.wf.State())
	assert.ErrorIs(t, h.wf.ConfirmCard(context.Background(), BillingDetails{}), ErrBusy)
	assert.ErrorIs(t, h.wf.Submit(context.Background(), completeForm()), ErrBusy)

	close(h.api.blockIntent)
	require.NoError(t, <-done)
	assert.Equal(t, StateSuccess, h.wf.State())
}

func TestConfirmCardStepTimeout(t *testing.T) {
	h := newHarness()
	h.wf.stepTimeout = 20 * time.Millisecond
	require.NoError(t, h.wf.Submit(context.Background(), completeForm()))
	h.api.blockIntent = make(chan struct{})

	err := h.wf.ConfirmCard(context.Background(), BillingDetails{})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateError, h.wf.State())
	assert.False(t, h.wf.State().Busy())
}

func TestClosePaymentModal(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.wf.Submit(context.Background(), completeForm()))

	h.wf.ClosePaymentModal()

	assert.False(t, h.wf.PaymentModalOpen())
	assert.True(t, h.card.unmounted)
	assert.Equal(t, StateIdle, h.wf.State())
	assert.ErrorIs(t, h.wf.ConfirmCard(context.Background(), BillingDetails{}), ErrNoPaymentModal)
}

func TestDetectLocationFallsBack(t *testing.T) {
	h := newHarness()
	h.api.geoErr = errors.New("offline")

	assert.Equal(t, entity.FallbackGeoInfo(), h.wf.DetectLocation(context.Background()))
}
