package checkout

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"storefront/internal/affiliate"
	"storefront/internal/broker"
	"storefront/internal/cart"
	"storefront/internal/imaging"
	"storefront/internal/models"
	"storefront/internal/orderclient"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Controller drives the two-step checkout state machine: delivery details,
// then payment proof, then exactly one order-submission call per completed
// flow. Transitions are strictly sequential; the mutex gates every one of
// them behind the current step and submission state.
type Controller struct {
	mu         sync.Mutex
	cart       *cart.Manager
	orders     orderclient.Client
	affiliates *affiliate.Store
	events     *broker.EventPublisher
	upiID      string
	merchant   string
	logger     *zap.Logger

	buyer   *models.User
	session *Session
}

// Config wires the controller's collaborators. Events may be nil.
type Config struct {
	Cart         *cart.Manager
	Orders       orderclient.Client
	Affiliates   *affiliate.Store
	Events       *broker.EventPublisher
	UPIID        string
	MerchantName string
}

// NewController creates a checkout controller. One controller serves one
// storefront profile; the session inside it is transient.
func NewController(cfg Config) *Controller {
	return &Controller{
		cart:       cfg.Cart,
		orders:     cfg.Orders,
		affiliates: cfg.Affiliates,
		events:     cfg.Events,
		upiID:      cfg.UPIID,
		merchant:   cfg.MerchantName,
		logger:     util.GetLogger(),
	}
}

// Start opens the checkout flow. Entry is guarded: the cart must be
// non-empty, no line may exceed its advisory stock, and the buyer must be
// authenticated. Any violation blocks entry with a specific error and no
// session is created.
func (c *Controller) Start(user *models.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.Submission == SubmissionSubmitting {
		return ErrSubmissionInFlight
	}

	if user == nil || user.ID == 0 {
		util.CheckoutsBlockedTotal.WithLabelValues("login_required").Inc()
		return ErrLoginRequired
	}

	lines := c.cart.Lines()
	if len(lines) == 0 {
		util.CheckoutsBlockedTotal.WithLabelValues("empty_cart").Inc()
		return ErrEmptyCart
	}
	for _, l := range lines {
		if l.StockAtAdd != nil && l.Quantity > *l.StockAtAdd {
			util.CheckoutsBlockedTotal.WithLabelValues("out_of_stock").Inc()
			return &OutOfStockError{
				ProductName: l.ProductName,
				Quantity:    l.Quantity,
				Stock:       *l.StockAtAdd,
			}
		}
	}

	c.buyer = user
	c.session = newSession()
	util.CheckoutsStartedTotal.Inc()
	c.logger.Info("Checkout started",
		zap.Int64("buyer_id", user.ID),
		zap.Int("lines", len(lines)))
	return nil
}

// SubmitDetails validates the delivery form and moves DETAILS -> PAYMENT.
// On validation failure the step does not change and field errors are
// returned.
func (c *Controller) SubmitDetails(form DeliveryForm) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return ErrNoActiveSession
	}
	if c.session.Step != StepDetails {
		return ErrNotOnDetailsStep
	}

	delivery, err := ValidateDelivery(form)
	if err != nil {
		return err
	}

	c.session.Delivery = delivery
	c.session.Step = StepPayment
	return nil
}

// AttachProof validates and compresses a payment proof image, then holds it
// on the session. A rejected file is not stored. Replacing an existing
// proof is allowed until submission.
func (c *Controller) AttachProof(contentType string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return ErrNoActiveSession
	}
	if c.session.Step != StepPayment {
		return ErrNotOnPaymentStep
	}
	if c.session.Submission == SubmissionSubmitting {
		return ErrSubmissionInFlight
	}

	if err := imaging.ValidateUpload(contentType, len(data)); err != nil {
		switch err {
		case imaging.ErrUnsupportedType:
			util.ProofRejectedTotal.WithLabelValues("unsupported_type").Inc()
		case imaging.ErrTooLarge:
			util.ProofRejectedTotal.WithLabelValues("too_large").Inc()
		}
		return err
	}

	start := time.Now()
	compressed, err := imaging.Compress(data)
	util.ProofCompressLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.ProofRejectedTotal.WithLabelValues("decode_failed").Inc()
		return err
	}

	c.session.ProofDataURI = compressed
	return nil
}

// RemoveProof discards the held proof so a different file can be uploaded.
func (c *Controller) RemoveProof() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return ErrNoActiveSession
	}
	if c.session.Submission == SubmissionSubmitting {
		return ErrSubmissionInFlight
	}
	c.session.ProofDataURI = ""
	return nil
}

// Back returns PAYMENT -> DETAILS. The proof is discarded and must be
// re-uploaded; delivery details are preserved as editable defaults.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return ErrNoActiveSession
	}
	if c.session.Step != StepPayment {
		return ErrNotOnPaymentStep
	}
	if c.session.Submission == SubmissionSubmitting {
		return ErrSubmissionInFlight
	}

	c.session.Step = StepDetails
	c.session.ProofDataURI = ""
	c.session.Submission = SubmissionIdle
	c.session.LastError = ""
	return nil
}

// Abandon discards the whole session without mutating the cart. There is
// no cancel-in-flight: while a submission is pending the flow stays open.
func (c *Controller) Abandon() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	if c.session.Submission == SubmissionSubmitting {
		return ErrSubmissionInFlight
	}
	c.session = nil
	return nil
}

// Submit issues the single order-creation call for this flow. It requires
// delivery details and a held proof, and flips the submission state to
// SUBMITTING before releasing the lock, so a second Submit while the call
// is pending is rejected immediately rather than producing a duplicate
// order. On success the cart and the affiliate record are cleared; on
// failure both are preserved and the server's message is returned verbatim.
func (c *Controller) Submit(ctx context.Context) (*models.OrderConfirmation, error) {
	c.mu.Lock()

	if c.session == nil {
		c.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	sess := c.session
	switch {
	case sess.Submission == SubmissionSubmitting:
		c.mu.Unlock()
		return nil, ErrSubmissionInFlight
	case sess.Submission == SubmissionSucceeded:
		c.mu.Unlock()
		return nil, ErrAlreadySubmitted
	case sess.Step != StepPayment:
		c.mu.Unlock()
		return nil, ErrNotOnPaymentStep
	case sess.Delivery == nil:
		c.mu.Unlock()
		return nil, ErrDeliveryRequired
	case sess.ProofDataURI == "":
		c.mu.Unlock()
		return nil, ErrProofRequired
	}

	payload := c.buildPayloadLocked(sess)
	buyerID := c.buyer.ID
	sess.Submission = SubmissionSubmitting
	sess.LastError = ""
	c.mu.Unlock()

	ctx, span := util.StartSpan(ctx, "Checkout.Submit")
	defer span.End()

	conf, err := c.orders.CreateOrder(ctx, payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		sess.Submission = SubmissionFailed
		sess.LastError = err.Error()
		util.OrdersFailedTotal.WithLabelValues("submission").Inc()
		c.logger.Warn("Order submission failed",
			zap.Int64("buyer_id", buyerID),
			zap.Error(err))
		return nil, err
	}

	sess.Submission = SubmissionSucceeded
	sess.Confirmation = conf
	c.cart.ClearCart()
	if err := c.affiliates.Clear(); err != nil {
		c.logger.Warn("Failed to clear affiliate record", zap.Error(err))
	}
	util.OrdersSubmittedTotal.Inc()
	c.logger.Info("Order placed",
		zap.Int64("order_id", conf.OrderID),
		zap.Int64("buyer_id", buyerID),
		zap.String("status", conf.Status))

	c.publishOrderSubmitted(ctx, conf, payload)
	return conf, nil
}

// Session returns a snapshot of the current session, or false when no flow
// is open.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Session{}, false
	}
	return c.session.snapshot(), true
}

// PaymentInstructions builds the UPI payment URI for the cart total shown
// on the PAYMENT step.
func (c *Controller) PaymentInstructions() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return "", ErrNoActiveSession
	}
	if c.session.Step != StepPayment {
		return "", ErrNotOnPaymentStep
	}

	total := c.cart.Total()
	return fmt.Sprintf("upi://pay?pa=%s&pn=%s&am=%s&cu=INR",
		c.upiID, url.QueryEscape(c.merchant), total.String()), nil
}

// buildPayloadLocked assembles the order payload from the cart snapshot,
// the delivery record and the stored affiliate attribution. The total is
// taken from the cart manager at this moment, so it always matches the
// items being sent.
func (c *Controller) buildPayloadLocked(sess *Session) *models.OrderPayload {
	lines := c.cart.Lines()

	var sellerID *int64
	var affiliateCode *string
	if rec := c.affiliates.Get(); rec != nil {
		id := rec.AffiliateUserID
		code := rec.AffiliateCode
		sellerID = &id
		affiliateCode = &code
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice,
			SellerID:  sellerID,
		})
	}

	return &models.OrderPayload{
		BuyerID:         c.buyer.ID,
		Items:           items,
		TotalAmount:     c.cart.Total(),
		PaymentProofURL: sess.ProofDataURI,
		DeliveryAddress: sess.Delivery.Address,
		DeliveryPhone:   sess.Delivery.Phone,
		DeliveryName:    sess.Delivery.Name,
		DeliveryEmail:   sess.Delivery.Email,
		AffiliateCode:   affiliateCode,
	}
}

func (c *Controller) publishOrderSubmitted(ctx context.Context, conf *models.OrderConfirmation, payload *models.OrderPayload) {
	event := &models.OrderSubmittedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderSubmitted,
			Timestamp: time.Now(),
		},
		OrderID:       conf.OrderID,
		BuyerID:       payload.BuyerID,
		TotalAmount:   payload.TotalAmount,
		Items:         payload.Items,
		AffiliateCode: payload.AffiliateCode,
	}

	if err := c.events.PublishOrderSubmitted(ctx, event); err != nil {
		c.logger.Error("Failed to publish OrderSubmitted event", zap.Error(err))
	}
}
