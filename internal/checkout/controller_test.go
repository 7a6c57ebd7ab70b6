package checkout

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"storefront/internal/affiliate"
	"storefront/internal/cart"
	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockOrderClient counts CreateOrder calls and can block to simulate a slow
// network.
type mockOrderClient struct {
	mu       sync.Mutex
	calls    int
	payloads []*models.OrderPayload
	err      error
	block    chan struct{}
}

func (m *mockOrderClient) CreateOrder(ctx context.Context, payload *models.OrderPayload) (*models.OrderConfirmation, error) {
	m.mu.Lock()
	m.calls++
	m.payloads = append(m.payloads, payload)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	if m.err != nil {
		return nil, m.err
	}
	return &models.OrderConfirmation{
		OrderID:     101,
		TotalAmount: payload.TotalAmount,
		Status:      "PENDING",
		Items:       payload.Items,
		CreatedAt:   "2024-01-01T00:00:00Z",
	}, nil
}

func (m *mockOrderClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// memCartStore keeps the cart mirror in memory for tests.
type memCartStore struct {
	saved   []models.CartLine
	cleared bool
}

func (s *memCartStore) Load() []models.CartLine { return s.saved }
func (s *memCartStore) Save(lines []models.CartLine) error {
	s.saved = append([]models.CartLine(nil), lines...)
	s.cleared = false
	return nil
}
func (s *memCartStore) Clear() error {
	s.saved = nil
	s.cleared = true
	return nil
}

type fixture struct {
	cart       *cart.Manager
	cartMirror *memCartStore
	orders     *mockOrderClient
	affiliates *affiliate.Store
	ctrl       *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mirror := &memCartStore{}
	cartManager := cart.NewManager(mirror)
	orders := &mockOrderClient{}
	affiliates, err := affiliate.NewStore(t.TempDir())
	require.NoError(t, err)

	return &fixture{
		cart:       cartManager,
		cartMirror: mirror,
		orders:     orders,
		affiliates: affiliates,
		ctrl: NewController(Config{
			Cart:         cartManager,
			Orders:       orders,
			Affiliates:   affiliates,
			UPIID:        "shop@upi",
			MerchantName: "Divaksha",
		}),
	}
}

func buyer() *models.User {
	return &models.User{ID: 42, Username: "anita", Email: "anita@example.com"}
}

func (f *fixture) addProduct(id int64, name, price string, qty int, stock *int) {
	f.cart.AddItem(models.Product{
		ProductID: id,
		Name:      name,
		Price:     models.MustAmount(price),
		Stock:     stock,
	}, qty)
}

// pngBytes renders a small solid PNG for proof uploads.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// toPayment drives a fixture through Start and a valid details step.
func (f *fixture) toPayment(t *testing.T) {
	t.Helper()
	require.NoError(t, f.ctrl.Start(buyer()))
	require.NoError(t, f.ctrl.SubmitDetails(validForm()))
}

func TestStartGuardEmptyCart(t *testing.T) {
	f := newFixture(t)

	err := f.ctrl.Start(buyer())

	assert.ErrorIs(t, err, ErrEmptyCart)
	_, open := f.ctrl.Session()
	assert.False(t, open)
}

func TestStartGuardLoginRequired(t *testing.T) {
	f := newFixture(t)
	f.addProduct(1, "A", "10.00", 1, nil)

	assert.ErrorIs(t, f.ctrl.Start(nil), ErrLoginRequired)
	assert.ErrorIs(t, f.ctrl.Start(&models.User{}), ErrLoginRequired)
}

func TestStartGuardOutOfStock(t *testing.T) {
	f := newFixture(t)
	stock := 2
	f.addProduct(1, "G1 Prash", "499.00", 3, &stock)

	err := f.ctrl.Start(buyer())

	var oos *OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, "G1 Prash", oos.ProductName)
	assert.Contains(t, err.Error(), "G1 Prash")
}

func TestStartUnknownStockIsAllowed(t *testing.T) {
	f := newFixture(t)
	f.addProduct(1, "A", "10.00", 99, nil)

	require.NoError(t, f.ctrl.Start(buyer()))

	sess, open := f.ctrl.Session()
	require.True(t, open)
	assert.Equal(t, StepDetails, sess.Step)
	assert.Equal(t, SubmissionIdle, sess.Submission)
}

func TestSubmitDetailsInvalidKeepsStep(t *testing.T) {
	f := newFixture(t)
	f.addProduct(1, "A", "10.00", 1, nil)
	require.NoError(t, f.ctrl.Start(buyer()))

	form := validForm()
	form.Phone = "12345"
	err := f.ctrl.SubmitDetails(form)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "Phone")

	sess, _ := f.ctrl.Session()
	assert.Equal(t, StepDetails, sess.Step)
	assert.Nil(t, sess.Delivery)
}

func TestSubmitDetailsTransitionsToPayment(t *testing.T) {
	f := newFixture(t)
	f.addProduct(1, "A", "10.00", 1, nil)
	require.NoError(t, f.ctrl.Start(buyer()))

	require.NoError(t, f.ctrl.SubmitDetails(validForm()))

	sess, _ := f.ctrl.Session()
	assert.Equal(t, StepPayment, sess.Step)
	require.NotNil(t, sess.Delivery)
	assert.Equal(t, "9876543210", sess.Delivery.Phone)
}

func TestAttachProofRejectsWrongType(t *testing.T) {
	f := newFixture(t)
	f.addProduct(1, "A", "10.00", 1, nil)
	f.toPayment(t)

	err := f.ctrl.AttachProof("application/pdf", []byte("%PDF-"))

	require.Error(t, err)
	sess, _ := f.ctrl.Session()
	assert.False(t, sess.HasProof)
}

func TestAttachProofRejectsOversized(t *testing.T) {
	f := newFixture(t)
	f.addProduct(1, "A", "10.00", 1, nil)
	f.toPayment(t)

	big := make([]byte, 3*1024*1024)
	err := f.ctrl.AttachProof("image/png", big)

	require.Error(t, err)
	sess, _ := f.ctrl.Session()
	assert.False(t, sess.HasProof)
}

func TestAttachProofBeforePaymentStep(t *testing.T) {
	f := newFixture(t)
	f.addProduct(1, "A", "10.00", 1, nil)
	require.NoError(t, f.ctrl.Start(buyer()))

	err := f.ctrl.AttachProof("image/png", pngBytes(t, 10, 10))
	assert.ErrorIs(t, err, ErrNotOnPaymentStep)
}

func TestAttachAndReplaceProof(t *testing.T) {
	f := newFixture(t)
	f.addProduct(1, "A", "10.00", 1, nil)
	f.toPayment(t)

	require.NoError(t, f.ctrl.AttachProof("image/png", pngBytes(t, 20, 10)))
	sess, _ := f.ctrl.Session()
	assert.True(t, sess.HasProof)

	require.NoError(t, f.ctrl.RemoveProof())
	sess, _ = f.ctrl.Session()
	assert.False(t, sess.HasProof)

	require.NoError(t, f.ctrl.AttachProof("image/jpeg", pngBytes(t, 10, 20)))
	sess, _ = f.ctrl.Session()
	assert.True(t, sess.HasProof)
}

func TestBackDiscardsProofKeepsDelivery(t *testing.T) {
	f := newFixture(t)
	f.addProduct(1, "A", "10.00", 1, nil)
	f.toPayment(t)
	require.NoError(t, f.ctrl.AttachProof("image/png", pngBytes(t, 10, 10)))

	require.NoError(t, f.ctrl.Back())

	sess, _ := f.ctrl.Session()
	assert.Equal(t, StepDetails, sess.Step)
	assert.False(t, sess.HasProof)
	require.NotNil(t, sess.Delivery)
	assert.Equal(t, "Anita Rao", sess.Delivery.Name)
}

func TestSubmitRequiresProof(t *testing.T) {
	f := newFixture(t)
	f.addProduct(1, "A", "10.00", 1, nil)
	f.toPayment(t)

	_, err := f.ctrl.Submit(context.Background())

	assert.ErrorIs(t, err, ErrProofRequired)
	assert.Equal(t, 0, f.orders.callCount())
}

func TestSubmitSuccessClearsCartAndAffiliate(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.affiliates.Set(7, "REF-7"))
	f.addProduct(5, "G1 Prash", "499.00", 2, nil)
	f.toPayment(t)
	require.NoError(t, f.ctrl.AttachProof("image/png", pngBytes(t, 10, 10)))

	conf, err := f.ctrl.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(101), conf.OrderID)
	assert.Equal(t, "PENDING", conf.Status)

	// Payload carried the cart total, the affiliate attribution and the
	// compressed proof.
	require.Equal(t, 1, f.orders.callCount())
	payload := f.orders.payloads[0]
	assert.Equal(t, int64(42), payload.BuyerID)
	assert.Equal(t, "998.00", payload.TotalAmount.String())
	require.Len(t, payload.Items, 1)
	require.NotNil(t, payload.Items[0].SellerID)
	assert.Equal(t, int64(7), *payload.Items[0].SellerID)
	require.NotNil(t, payload.AffiliateCode)
	assert.Equal(t, "REF-7", *payload.AffiliateCode)
	assert.Contains(t, payload.PaymentProofURL, "data:image/jpeg;base64,")

	// Cart and mirror are wiped, affiliate record is gone.
	assert.True(t, f.cart.IsEmpty())
	assert.True(t, f.cartMirror.cleared)
	assert.Nil(t, f.affiliates.Get())

	sess, _ := f.ctrl.Session()
	assert.Equal(t, SubmissionSucceeded, sess.Submission)
	require.NotNil(t, sess.Confirmation)
	assert.Equal(t, int64(101), sess.Confirmation.OrderID)
}

func TestSubmitFailurePreservesCart(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.affiliates.Set(7, "REF-7"))
	f.orders.err = errors.New("payment proof could not be verified")
	f.addProduct(5, "G1 Prash", "499.00", 2, nil)
	f.addProduct(9, "Churna", "120.50", 1, nil)
	f.toPayment(t)
	require.NoError(t, f.ctrl.AttachProof("image/png", pngBytes(t, 10, 10)))

	before := f.cart.Lines()
	_, err := f.ctrl.Submit(context.Background())

	require.EqualError(t, err, "payment proof could not be verified")
	assert.Equal(t, before, f.cart.Lines())
	assert.NotNil(t, f.affiliates.Get())

	sess, _ := f.ctrl.Session()
	assert.Equal(t, SubmissionFailed, sess.Submission)
	assert.Equal(t, "payment proof could not be verified", sess.LastError)
}

func TestSubmitRetryAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.orders.err = errors.New("temporarily unavailable")
	f.addProduct(1, "A", "10.00", 1, nil)
	f.toPayment(t)
	require.NoError(t, f.ctrl.AttachProof("image/png", pngBytes(t, 10, 10)))

	_, err := f.ctrl.Submit(context.Background())
	require.Error(t, err)

	f.orders.err = nil
	conf, err := f.ctrl.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(101), conf.OrderID)
	assert.Equal(t, 2, f.orders.callCount())
}

func TestSubmitIsIdempotentWhilePending(t *testing.T) {
	f := newFixture(t)
	f.orders.block = make(chan struct{})
	f.addProduct(1, "A", "10.00", 1, nil)
	f.toPayment(t)
	require.NoError(t, f.ctrl.AttachProof("image/png", pngBytes(t, 10, 10)))

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Submit(context.Background())
		done <- err
	}()

	// Wait for the first submission to be in flight.
	require.Eventually(t, func() bool {
		sess, _ := f.ctrl.Session()
		return sess.Submission == SubmissionSubmitting
	}, time.Second, time.Millisecond)

	_, err := f.ctrl.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(f.orders.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.orders.callCount())
}

func TestSubmitAfterSuccessRejected(t *testing.T) {
	f := newFixture(t)
	f.addProduct(1, "A", "10.00", 1, nil)
	f.toPayment(t)
	require.NoError(t, f.ctrl.AttachProof("image/png", pngBytes(t, 10, 10)))

	_, err := f.ctrl.Submit(context.Background())
	require.NoError(t, err)

	_, err = f.ctrl.Submit(context.Background())
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, 1, f.orders.callCount())
}

func TestAbandonKeepsCart(t *testing.T) {
	f := newFixture(t)
	f.addProduct(1, "A", "10.00", 2, nil)
	f.toPayment(t)
	require.NoError(t, f.ctrl.AttachProof("image/png", pngBytes(t, 10, 10)))

	require.NoError(t, f.ctrl.Abandon())

	_, open := f.ctrl.Session()
	assert.False(t, open)
	assert.Equal(t, 2, f.cart.ItemCount())
}

func TestAbandonWithoutSession(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.ctrl.Abandon())
}

func TestPaymentInstructions(t *testing.T) {
	f := newFixture(t)
	f.addProduct(5, "G1 Prash", "499.00", 2, nil)
	f.toPayment(t)

	uri, err := f.ctrl.PaymentInstructions()
	require.NoError(t, err)
	assert.Equal(t, "upi://pay?pa=shop@upi&pn=Divaksha&am=998.00&cu=INR", uri)
}

func TestPaymentInstructionsOnDetailsStep(t *testing.T) {
	f := newFixture(t)
	f.addProduct(1, "A", "10.00", 1, nil)
	require.NoError(t, f.ctrl.Start(buyer()))

	_, err := f.ctrl.PaymentInstructions()
	assert.ErrorIs(t, err, ErrNotOnPaymentStep)
}
