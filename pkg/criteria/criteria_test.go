package criteria

import (
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/apierror"
	"github.com/Ramsey-B/clover/pkg/models"
)

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	require.True(t, httperror.IsHTTPError(err))
	return apierror.Code(err, "")
}

func TestNormalize_PAN(t *testing.T) {
	t.Run("valid PAN passes through uppercased", func(t *testing.T) {
		out, err := Normalize(models.SearchCriteria{PANNumber: " abcde1234f "})
		require.NoError(t, err)
		assert.Equal(t, "ABCDE1234F", out.PANNumber)
	})

	t.Run("internal whitespace is stripped", func(t *testing.T) {
		out, err := Normalize(models.SearchCriteria{PANNumber: "ABCDE 1234 F"})
		require.NoError(t, err)
		assert.Equal(t, "ABCDE1234F", out.PANNumber)
	})

	t.Run("malformed PAN hard-fails", func(t *testing.T) {
		for _, pan := range []string{"1234567890", "ABCD1234F", "ABCDE12345", "ABCDE1234FX"} {
			_, err := Normalize(models.SearchCriteria{PANNumber: pan, CustomerName: "fallback"})
			assert.Equal(t, apierror.CodeInvalidPANFormat, errCode(t, err), "pan=%s", pan)
		}
	})

	t.Run("malformed PAN fails even when other criteria are present", func(t *testing.T) {
		_, err := Normalize(models.SearchCriteria{
			PANNumber:     "NOTAPAN",
			CustomerPhone: "9876543210",
		})
		assert.Equal(t, apierror.CodeInvalidPANFormat, errCode(t, err))
	})
}

func TestNormalize_Phone(t *testing.T) {
	t.Run("formatting characters are stripped", func(t *testing.T) {
		out, err := Normalize(models.SearchCriteria{CustomerPhone: "+91 98765-43210"})
		require.NoError(t, err)
		assert.Equal(t, "919876543210", out.CustomerPhone)
	})

	t.Run("short phone is dropped silently", func(t *testing.T) {
		out, err := Normalize(models.SearchCriteria{
			CustomerPhone: "12345",
			CustomerName:  "Asha Patel",
		})
		require.NoError(t, err)
		assert.Empty(t, out.CustomerPhone)
		assert.Equal(t, "Asha Patel", out.CustomerName)
	})

	t.Run("short phone alone leaves criteria empty", func(t *testing.T) {
		_, err := Normalize(models.SearchCriteria{CustomerPhone: "12345"})
		assert.Equal(t, apierror.CodeInvalidSearchCriteria, errCode(t, err))
	})
}

func TestNormalize_EmptyCriteria(t *testing.T) {
	t.Run("all empty", func(t *testing.T) {
		_, err := Normalize(models.SearchCriteria{})
		assert.Equal(t, apierror.CodeInvalidSearchCriteria, errCode(t, err))
	})

	t.Run("whitespace only", func(t *testing.T) {
		_, err := Normalize(models.SearchCriteria{CustomerName: "   ", AadhaarNumber: " - "})
		assert.Equal(t, apierror.CodeInvalidSearchCriteria, errCode(t, err))
	})
}

func TestNormalize_OtherFields(t *testing.T) {
	out, err := Normalize(models.SearchCriteria{
		CustomerName:      "  Asha Patel  ",
		AadhaarNumber:     "1234-5678-9012",
		BankAccountNumber: "AB 12-34 cd",
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha Patel", out.CustomerName)
	assert.Equal(t, "123456789012", out.AadhaarNumber)
	assert.Equal(t, "AB1234cd", out.BankAccountNumber)
}
