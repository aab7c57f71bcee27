package model

import "time"

// ApplicationStatus is open-ended: pending and paid are set by the system,
// staff may assign any other value (accepted, rejected, processing, ...).
type ApplicationStatus string

const (
	ApplicationPending    ApplicationStatus = "pending"
	ApplicationPaid       ApplicationStatus = "paid"
	ApplicationProcessing ApplicationStatus = "processing"
	ApplicationAccepted   ApplicationStatus = "accepted"
	ApplicationRejected   ApplicationStatus = "rejected"
	ApplicationCompleted  ApplicationStatus = "completed"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

type Application struct {
	ID                string            `json:"id"`
	ScholarshipID     string            `json:"scholarshipId"`
	ScholarshipName   string            `json:"scholarshipName,omitempty"`
	UniversityName    string            `json:"universityName,omitempty"`
	UniversityCity    string            `json:"universityCity,omitempty"`
	UniversityCountry string            `json:"universityCountry,omitempty"`
	SubjectCategory   string            `json:"subjectCategory,omitempty"`
	Degree            string            `json:"degree,omitempty"`
	UserEmail         string            `json:"userEmail"`
	UserName          string            `json:"userName,omitempty"`
	UserPhone         string            `json:"userPhone,omitempty"`
	UserAddress       string            `json:"userAddress,omitempty"`
	ApplicationFees   float64           `json:"applicationFees"`
	ServiceCharge     float64           `json:"serviceCharge"`
	ApplicationStatus ApplicationStatus `json:"applicationStatus"`
	PaymentStatus     PaymentStatus     `json:"paymentStatus"`
	TransactionID     *string           `json:"transactionId,omitempty"` // unique; processor payment intent id
	Feedback          string            `json:"feedback,omitempty"`
	AppliedAt         time.Time         `json:"appliedAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// Editable reports whether the owner may still edit the application.
func (a *Application) Editable() bool {
	return a.ApplicationStatus == ApplicationPending
}

// ApplicationPatch is the full set of patchable columns. Identity, ownership,
// transaction id and timestamps are never patchable.
type ApplicationPatch struct {
	ScholarshipName   *string            `json:"scholarshipName,omitempty"`
	UniversityName    *string            `json:"universityName,omitempty"`
	UniversityCity    *string            `json:"universityCity,omitempty"`
	UniversityCountry *string            `json:"universityCountry,omitempty"`
	SubjectCategory   *string            `json:"subjectCategory,omitempty"`
	Degree            *string            `json:"degree,omitempty"`
	UserName          *string            `json:"userName,omitempty"`
	UserPhone         *string            `json:"userPhone,omitempty"`
	UserAddress       *string            `json:"userAddress,omitempty"`
	ApplicationFees   *float64           `json:"applicationFees,omitempty"`
	ServiceCharge     *float64           `json:"serviceCharge,omitempty"`
	ApplicationStatus *ApplicationStatus `json:"applicationStatus,omitempty"`
	PaymentStatus     *PaymentStatus     `json:"paymentStatus,omitempty"`
	Feedback          *string            `json:"feedback,omitempty"`
}

func (p ApplicationPatch) Empty() bool {
	return p == ApplicationPatch{}
}

func (p ApplicationPatch) Apply(a *Application) {
	setString(&a.ScholarshipName, p.ScholarshipName)
	setString(&a.UniversityName, p.UniversityName)
	setString(&a.UniversityCity, p.UniversityCity)
	setString(&a.UniversityCountry, p.UniversityCountry)
	setString(&a.SubjectCategory, p.SubjectCategory)
	setString(&a.Degree, p.Degree)
	setString(&a.UserName, p.UserName)
	setString(&a.UserPhone, p.UserPhone)
	setString(&a.UserAddress, p.UserAddress)
	setFloat(&a.ApplicationFees, p.ApplicationFees)
	setFloat(&a.ServiceCharge, p.ServiceCharge)
	if p.ApplicationStatus != nil {
		a.ApplicationStatus = *p.ApplicationStatus
	}
	if p.PaymentStatus != nil {
		a.PaymentStatus = *p.PaymentStatus
	}
	setString(&a.Feedback, p.Feedback)
}

// ApplicationOwnerPatch is what an applicant may change on their own pending
// application. Status, payment and fee fields are deliberately absent, so
// they are dropped when decoding an owner request.
type ApplicationOwnerPatch struct {
	UserName        *string `json:"userName,omitempty"`
	UserPhone       *string `json:"userPhone,omitempty"`
	UserAddress     *string `json:"userAddress,omitempty"`
	Degree          *string `json:"degree,omitempty"`
	SubjectCategory *string `json:"subjectCategory,omitempty"`
}

func (p ApplicationOwnerPatch) ToPatch() ApplicationPatch {
	return ApplicationPatch{
		UserName:        p.UserName,
		UserPhone:       p.UserPhone,
		UserAddress:     p.UserAddress,
		Degree:          p.Degree,
		SubjectCategory: p.SubjectCategory,
	}
}
