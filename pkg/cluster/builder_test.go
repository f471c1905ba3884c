package cluster

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/repositories/clusters"
	"github.com/Ramsey-B/clover/pkg/models"
)

func groupRow(field models.FieldName, value string, c models.Case) clusters.GroupRow {
	return clusters.GroupRow{Field: field, GroupValue: value, Case: c}
}

func newCase(createdAt time.Time) models.Case {
	return models.Case{ID: uuid.New(), ClientID: uuid.New(), CreatedAt: createdAt}
}

func TestBuildClusters_SharedPAN(t *testing.T) {
	now := time.Now()
	a := newCase(now.Add(-2 * time.Hour))
	b := newCase(now.Add(-time.Hour))
	c := newCase(now)

	rows := []clusters.GroupRow{
		groupRow(models.FieldPANNumber, "ABCDE1234F", a),
		groupRow(models.FieldPANNumber, "ABCDE1234F", b),
		groupRow(models.FieldPANNumber, "ABCDE1234F", c),
	}

	result := BuildClusters(rows)
	require.Len(t, result, 1)

	got := result[0]
	assert.Equal(t, "ABCDE1234F", got.GroupKey)
	assert.Equal(t, []models.FieldName{models.FieldPANNumber}, got.Fields)
	assert.Equal(t, 3, got.CaseCount)
	require.Len(t, got.Cases, 3)
	// newest first
	assert.Equal(t, c.ID, got.Cases[0].ID)
	assert.Equal(t, b.ID, got.Cases[1].ID)
	assert.Equal(t, a.ID, got.Cases[2].ID)
}

func TestBuildClusters_TransitiveMergeAcrossFields(t *testing.T) {
	now := time.Now()
	a := newCase(now)
	b := newCase(now)
	c := newCase(now)

	// a and b share a PAN; b and c share a phone. All three belong together.
	rows := []clusters.GroupRow{
		groupRow(models.FieldPANNumber, "ABCDE1234F", a),
		groupRow(models.FieldPANNumber, "ABCDE1234F", b),
		groupRow(models.FieldCustomerPhone, "9876543210", b),
		groupRow(models.FieldCustomerPhone, "9876543210", c),
	}

	result := BuildClusters(rows)
	require.Len(t, result, 1)
	assert.Equal(t, 3, result[0].CaseCount)
	assert.ElementsMatch(t, []models.FieldName{models.FieldPANNumber, models.FieldCustomerPhone}, result[0].Fields)
}

func TestBuildClusters_SameValueDifferentFieldsStaysSeparate(t *testing.T) {
	now := time.Now()
	a := newCase(now)
	b := newCase(now)
	c := newCase(now)
	d := newCase(now)

	// the same raw digits in two different identifier columns must not link
	// the two pairs
	rows := []clusters.GroupRow{
		groupRow(models.FieldCustomerPhone, "123456789012", a),
		groupRow(models.FieldCustomerPhone, "123456789012", b),
		groupRow(models.FieldAadhaarNumber, "123456789012", c),
		groupRow(models.FieldAadhaarNumber, "123456789012", d),
	}

	result := BuildClusters(rows)
	require.Len(t, result, 2)
	assert.Equal(t, 2, result[0].CaseCount)
	assert.Equal(t, 2, result[1].CaseCount)
}

func TestBuildClusters_OrderedBySizeThenKey(t *testing.T) {
	now := time.Now()

	big := []clusters.GroupRow{}
	for i := 0; i < 3; i++ {
		big = append(big, groupRow(models.FieldPANNumber, "ZZZZZ9999Z", newCase(now)))
	}
	small := []clusters.GroupRow{
		groupRow(models.FieldPANNumber, "AAAAA1111A", newCase(now)),
		groupRow(models.FieldPANNumber, "AAAAA1111A", newCase(now)),
	}

	result := BuildClusters(append(big, small...))
	require.Len(t, result, 2)
	assert.Equal(t, "ZZZZZ9999Z", result[0].GroupKey)
	assert.Equal(t, "AAAAA1111A", result[1].GroupKey)
}

func TestBuildClusters_Empty(t *testing.T) {
	assert.Empty(t, BuildClusters(nil))
}

func TestUnionFind(t *testing.T) {
	uf := newUnionFind(5)
	uf.union(0, 1)
	uf.union(3, 4)
	assert.Equal(t, uf.find(0), uf.find(1))
	assert.NotEqual(t, uf.find(1), uf.find(3))

	uf.union(1, 3)
	assert.Equal(t, uf.find(0), uf.find(4))
	assert.NotEqual(t, uf.find(0), uf.find(2))
}
