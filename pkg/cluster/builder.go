package cluster

import (
	"sort"

	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/internal/repositories/clusters"
	"github.com/Ramsey-B/clover/pkg/models"
)

// BuildClusters merges identifier group rows into duplicate clusters. Cases
// are connected when they share any (field, value) group, so a case matching
// cluster A by PAN and cluster B by phone pulls both into one cluster.
//
// Grouping is per field: the same raw value appearing in different identifier
// columns never links cases by itself.
func BuildClusters(rows []clusters.GroupRow) []models.DuplicateCluster {
	if len(rows) == 0 {
		return []models.DuplicateCluster{}
	}

	caseIndex := make(map[uuid.UUID]int)
	caseList := make([]models.Case, 0)
	for _, row := range rows {
		if _, ok := caseIndex[row.Case.ID]; !ok {
			caseIndex[row.Case.ID] = len(caseList)
			caseList = append(caseList, row.Case)
		}
	}

	uf := newUnionFind(len(caseList))

	type groupKey struct {
		field models.FieldName
		value string
	}
	firstMember := make(map[groupKey]int)
	for _, row := range rows {
		key := groupKey{field: row.Field, value: row.GroupValue}
		idx := caseIndex[row.Case.ID]
		if first, ok := firstMember[key]; ok {
			uf.union(first, idx)
		} else {
			firstMember[key] = idx
		}
	}

	type clusterAgg struct {
		members map[int]bool
		fields  map[models.FieldName]bool
		values  []string
	}
	byRoot := make(map[int]*clusterAgg)
	for _, row := range rows {
		root := uf.find(caseIndex[row.Case.ID])
		agg, ok := byRoot[root]
		if !ok {
			agg = &clusterAgg{
				members: make(map[int]bool),
				fields:  make(map[models.FieldName]bool),
			}
			byRoot[root] = agg
		}
		agg.members[caseIndex[row.Case.ID]] = true
		agg.fields[row.Field] = true
		agg.values = append(agg.values, row.GroupValue)
	}

	result := make([]models.DuplicateCluster, 0, len(byRoot))
	for _, agg := range byRoot {
		if len(agg.members) < 2 {
			continue
		}

		cs := make([]models.Case, 0, len(agg.members))
		for idx := range agg.members {
			cs = append(cs, caseList[idx])
		}
		sort.Slice(cs, func(i, j int) bool {
			if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
				return cs[i].CreatedAt.After(cs[j].CreatedAt)
			}
			return cs[i].ID.String() < cs[j].ID.String()
		})

		fields := make([]models.FieldName, 0, len(agg.fields))
		for field := range agg.fields {
			fields = append(fields, field)
		}
		sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })

		sort.Strings(agg.values)
		key := agg.values[0]

		result = append(result, models.DuplicateCluster{
			GroupKey:  key,
			Fields:    fields,
			CaseCount: len(cs),
			Cases:     cs,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CaseCount != result[j].CaseCount {
			return result[i].CaseCount > result[j].CaseCount
		}
		return result[i].GroupKey < result[j].GroupKey
	})

	return result
}
