package models

// DuplicateCluster is a read-only grouping of cases sharing identifier
// values, produced by the cluster miner. Never persisted.
type DuplicateCluster struct {
	GroupKey  string      `json:"groupKey"`
	Fields    []FieldName `json:"fields"`
	CaseCount int         `json:"caseCount"`
	Cases     []Case      `json:"cases"`
}

// Pagination describes a page of a larger result set.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ClusterResult is a page of duplicate clusters.
type ClusterResult struct {
	Clusters   []DuplicateCluster `json:"clusters"`
	Pagination Pagination         `json:"pagination"`
}
