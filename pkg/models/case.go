package models

import (
	"time"

	"github.com/google/uuid"
)

// Case is the case-store row the deduplication engine reads. Case lifecycle
// is owned by the case-CRUD service; only the identifying fields matter here.
type Case struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	CaseNumber        string     `json:"caseNumber" db:"case_number"`
	ApplicantName     string     `json:"applicantName" db:"applicant_name"`
	Status            string     `json:"status" db:"status"`
	ClientID          uuid.UUID  `json:"clientId" db:"client_id"`
	ProductID         *uuid.UUID `json:"productId,omitempty" db:"product_id"`
	PANNumber         *string    `json:"panNumber,omitempty" db:"pan_number"`
	AadhaarNumber     *string    `json:"aadhaarNumber,omitempty" db:"aadhaar_number"`
	ApplicantPhone    *string    `json:"applicantPhone,omitempty" db:"applicant_phone"`
	ApplicantEmail    *string    `json:"applicantEmail,omitempty" db:"applicant_email"`
	BankAccountNumber *string    `json:"bankAccountNumber,omitempty" db:"bank_account_number"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time  `json:"updatedAt" db:"updated_at"`
}
