// Package model defines the core data types exchanged between the job item API, the query cache,
// and the resolvers built on top of it.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// JobItemQueryScope is the first element of every job item cache key.
const JobItemQueryScope = "job-item"

// JobItemID identifies a job item on the remote API.
// The zero value means "no active selection".
type JobItemID int64

// Valid reports whether the identifier can be resolved remotely.
func (id JobItemID) Valid() bool {
	return id > 0
}

// String implements fmt.Stringer.
func (id JobItemID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseJobItemID parses a decimal identifier. Surrounding whitespace is ignored.
func ParseJobItemID(s string) (JobItemID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid job item id %q: %w", s, err)
	}
	return JobItemID(v), nil
}

// ParseJobItemIDs parses a comma-delimited identifier list, preserving order and duplicates.
// Empty segments are skipped so "1,,2" and "" are accepted.
func ParseJobItemIDs(s string) ([]JobItemID, error) {
	ids := make([]JobItemID, 0)
	for part := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := ParseJobItemID(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// JobItem is the summary shape of a job item as listed by the remote API.
type JobItem struct {
	ID             JobItemID `json:"id"`
	BadgeLetters   string    `json:"badgeLetters"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	Date           string    `json:"date,omitempty"`
	RelevanceScore float64   `json:"relevanceScore"`
	DaysAgo        int       `json:"daysAgo"`
}

// JobItemExpanded is the full detail record returned for a single job item.
// Resolvers pass it through untouched.
type JobItemExpanded struct {
	JobItem

	Description    string   `json:"description"`
	Qualifications []string `json:"qualifications"`
	Reviews        []string `json:"reviews"`
	Duration       string   `json:"duration"`
	Salary         string   `json:"salary"`
	Location       string   `json:"location"`
	CoverImgURL    string   `json:"coverImgURL"`
	CompanyURL     string   `json:"companyURL"`
}

// JobItemEnvelope is the wire-level response of GET {base}/{id}.
// Public is decoded for completeness but nothing reads it.
type JobItemEnvelope struct {
	Public  bool            `json:"public"`
	JobItem JobItemExpanded `json:"jobItem"`
}
