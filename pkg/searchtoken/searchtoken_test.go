package searchtoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func testCandidates(ids ...uuid.UUID) []models.DuplicateCandidate {
	out := make([]models.DuplicateCandidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.DuplicateCandidate{Case: models.Case{ID: id}})
	}
	return out
}

func TestSignVerify_RoundTrip(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)
	userID := uuid.New()
	criteria := models.SearchCriteria{PANNumber: "ABCDE1234F"}
	candidates := testCandidates(uuid.New(), uuid.New())

	token, err := signer.Sign(userID, criteria, candidates)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, signer.Verify(token, userID, criteria, candidates))
}

func TestVerify_CandidateOrderDoesNotMatter(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)
	userID := uuid.New()
	criteria := models.SearchCriteria{CustomerPhone: "9876543210"}
	a, b := uuid.New(), uuid.New()

	token, err := signer.Sign(userID, criteria, testCandidates(a, b))
	require.NoError(t, err)

	assert.NoError(t, signer.Verify(token, userID, criteria, testCandidates(b, a)))
}

func TestVerify_Mismatches(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)
	userID := uuid.New()
	criteria := models.SearchCriteria{PANNumber: "ABCDE1234F"}
	candidates := testCandidates(uuid.New())

	token, err := signer.Sign(userID, criteria, candidates)
	require.NoError(t, err)

	t.Run("different user", func(t *testing.T) {
		assert.Error(t, signer.Verify(token, uuid.New(), criteria, candidates))
	})

	t.Run("different criteria", func(t *testing.T) {
		other := models.SearchCriteria{PANNumber: "FGHIJ5678K"}
		assert.Error(t, signer.Verify(token, userID, other, candidates))
	})

	t.Run("different candidates", func(t *testing.T) {
		assert.Error(t, signer.Verify(token, userID, criteria, testCandidates(uuid.New())))
	})

	t.Run("garbage token", func(t *testing.T) {
		assert.Error(t, signer.Verify("not.a.token", userID, criteria, candidates))
		assert.Error(t, signer.Verify("", userID, criteria, candidates))
	})

	t.Run("tampered signature", func(t *testing.T) {
		assert.Error(t, signer.Verify(token+"x", userID, criteria, candidates))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewSigner("other-secret", time.Hour)
		assert.Error(t, other.Verify(token, userID, criteria, candidates))
	})
}

func TestVerify_Expiry(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)
	now := time.Now()
	signer.now = func() time.Time { return now }

	userID := uuid.New()
	criteria := models.SearchCriteria{AadhaarNumber: "123456789012"}
	candidates := testCandidates(uuid.New())

	token, err := signer.Sign(userID, criteria, candidates)
	require.NoError(t, err)

	signer.now = func() time.Time { return now.Add(30 * time.Minute) }
	assert.NoError(t, signer.Verify(token, userID, criteria, candidates))

	signer.now = func() time.Time { return now.Add(2 * time.Hour) }
	assert.Error(t, signer.Verify(token, userID, criteria, candidates))
}

func TestNewSigner_EmptySecretDisables(t *testing.T) {
	assert.Nil(t, NewSigner("", time.Hour))
}
