package checkout

import "storefront/internal/models"

// Step is the checkout flow position.
type Step string

const (
	StepDetails Step = "DETAILS"
	StepPayment Step = "PAYMENT"
)

// SubmissionState tracks the single order-creation call of a session.
type SubmissionState string

const (
	SubmissionIdle       SubmissionState = "IDLE"
	SubmissionSubmitting SubmissionState = "SUBMITTING"
	SubmissionSucceeded  SubmissionState = "SUCCEEDED"
	SubmissionFailed     SubmissionState = "FAILED"
)

// Session is the transient checkout state. It exists only while the flow is
// open and is discarded on abandon or completion. The proof artifact is
// only ever set on the PAYMENT step.
type Session struct {
	Step         Step                      `json:"step"`
	Delivery     *models.DeliveryDetails   `json:"delivery,omitempty"`
	ProofDataURI string                    `json:"-"`
	HasProof     bool                      `json:"hasProof"`
	Submission   SubmissionState           `json:"submission"`
	Confirmation *models.OrderConfirmation `json:"confirmation,omitempty"`
	LastError    string                    `json:"lastError,omitempty"`
}

func newSession() *Session {
	return &Session{
		Step:       StepDetails,
		Submission: SubmissionIdle,
	}
}

// snapshot returns a copy safe to hand outside the controller lock.
func (s *Session) snapshot() Session {
	out := *s
	out.HasProof = s.ProofDataURI != ""
	if s.Delivery != nil {
		d := *s.Delivery
		out.Delivery = &d
	}
	if s.Confirmation != nil {
		c := *s.Confirmation
		out.Confirmation = &c
	}
	return out
}
