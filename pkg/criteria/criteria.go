// Package criteria cleans and validates deduplication search criteria before
// they reach the search engine.
package criteria

import (
	"regexp"

	"github.com/Ramsey-B/clover/pkg/apierror"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// panPattern is the India PAN format: 5 letters, 4 digits, 1 letter.
var panPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]{1}$`)

// minPhoneDigits is the minimum digit count for a usable phone criterion.
const minPhoneDigits = 10

// Normalize trims and normalizes every criterion, dropping fields that are
// empty or unusable after cleaning.
//
// PAN is the only hard-failing field: a non-empty PAN that does not match the
// format is rejected. Phones with fewer than 10 digits are dropped silently.
// An all-empty result fails with INVALID_SEARCH_CRITERIA.
func Normalize(raw models.SearchCriteria) (models.SearchCriteria, error) {
	out := models.SearchCriteria{}

	if name := normalizers.Trim(raw.CustomerName); name != "" {
		out.CustomerName = name
	}

	if pan := normalizers.ApplyChain(raw.PANNumber, "trim", "npan"); pan != "" {
		if !panPattern.MatchString(pan) {
			return models.SearchCriteria{}, apierror.BadRequest(apierror.CodeInvalidPANFormat, "invalid PAN format")
		}
		out.PANNumber = pan
	}

	if phone := normalizers.ApplyChain(raw.CustomerPhone, "trim", "nphone"); len(phone) >= minPhoneDigits {
		out.CustomerPhone = phone
	}

	if aadhaar := normalizers.ApplyChain(raw.AadhaarNumber, "trim", "digits_only"); aadhaar != "" {
		out.AadhaarNumber = aadhaar
	}

	if account := normalizers.ApplyChain(raw.BankAccountNumber, "trim", "alphanumeric"); account != "" {
		out.BankAccountNumber = account
	}

	if out.IsEmpty() {
		return models.SearchCriteria{}, apierror.BadRequest(apierror.CodeInvalidSearchCriteria, "at least one search criterion is required")
	}

	return out, nil
}
