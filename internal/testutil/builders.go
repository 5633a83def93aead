// Package testutil provides testing utilities and helpers for the job item resolver.
package testutil

import (
	"fmt"

	"github.com/target/mmk-jobitems/internal/domain/model"
)

// JobItemBuilder provides a fluent interface for building job item records for testing.
type JobItemBuilder struct {
	item model.JobItemExpanded
}

// NewJobItem creates a new JobItemBuilder with sensible defaults for id.
func NewJobItem(id model.JobItemID) *JobItemBuilder {
	return &JobItemBuilder{
		item: model.JobItemExpanded{
			JobItem: model.JobItem{
				ID:             id,
				BadgeLetters:   "JI",
				Title:          fmt.Sprintf("Job %d", id),
				Company:        "Acme",
				RelevanceScore: 0.5,
				DaysAgo:        1,
			},
			Description:    "Build and run services.",
			Qualifications: []string{"Go"},
			Reviews:        []string{},
			Duration:       "Full-Time",
			Salary:         "$100,000+",
			Location:       "Remote",
		},
	}
}

// WithTitle sets the title.
func (b *JobItemBuilder) WithTitle(title string) *JobItemBuilder {
	b.item.Title = title
	return b
}

// WithCompany sets the company.
func (b *JobItemBuilder) WithCompany(company string) *JobItemBuilder {
	b.item.Company = company
	return b
}

// Build returns the record.
func (b *JobItemBuilder) Build() model.JobItemExpanded {
	return b.item
}

// Envelope returns the record wrapped the way the remote API serves it.
func (b *JobItemBuilder) Envelope() *model.JobItemEnvelope {
	return &model.JobItemEnvelope{Public: true, JobItem: b.item}
}
