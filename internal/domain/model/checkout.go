package model

// CheckoutSession mirrors the payment processor's session. It is never
// persisted; everything needed to build the Application travels in Metadata.
type CheckoutSession struct {
	ID              string            `json:"id"`
	URL             string            `json:"url,omitempty"`
	PaymentStatus   string            `json:"paymentStatus"`
	PaymentIntentID string            `json:"paymentIntentId,omitempty"`
	AmountTotal     int64             `json:"amountTotal"` // minor currency units
	Metadata        map[string]string `json:"metadata,omitempty"`
}

const SessionPaymentStatusPaid = "paid"

// Metadata keys written at checkout creation and read back on finalization.
const (
	MetaUserEmail         = "userEmail"
	MetaScholarshipID     = "scholarshipId"
	MetaScholarshipName   = "scholarshipName"
	MetaUniversityName    = "universityName"
	MetaUniversityCity    = "universityCity"
	MetaUniversityCountry = "universityCountry"
	MetaSubjectCategory   = "subjectCategory"
	MetaDegree            = "degree"
	MetaApplicationFees   = "applicationFees"
)

// CheckoutLineItem is the single product charged for an application.
type CheckoutLineItem struct {
	Name        string
	Description string
	Currency    string
	UnitAmount  int64 // minor currency units
	Quantity    int64
}

type CheckoutSessionParams struct {
	LineItem   CheckoutLineItem
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}
