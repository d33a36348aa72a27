// Package testutil provides testing utilities and helpers for the surveystats service.
package testutil

import "github.com/target/surveystats/internal/domain/model"

// DatasetBuilder provides a fluent interface for assembling small datasets in tests.
type DatasetBuilder struct {
	records []model.Record
	lower   []string
}

// NewDataset creates an empty DatasetBuilder.
func NewDataset() *DatasetBuilder {
	return &DatasetBuilder{}
}

// Row appends an unstratified record.
func (b *DatasetBuilder) Row(location, question string, value float64) *DatasetBuilder {
	b.records = append(b.records, model.Record{Location: location, Question: question, Value: value})
	return b
}

// Stratified appends a record with stratification fields.
func (b *DatasetBuilder) Stratified(location, question string, value float64, category, stratum string) *DatasetBuilder {
	b.records = append(b.records, model.Record{
		Location:               location,
		Question:               question,
		Value:                  value,
		StratificationCategory: model.StringPtr(category),
		Stratification:         model.StringPtr(stratum),
	})
	return b
}

// LowerIsBetter marks questions where smaller values are favorable.
func (b *DatasetBuilder) LowerIsBetter(questions ...string) *DatasetBuilder {
	b.lower = append(b.lower, questions...)
	return b
}

// Build returns the assembled dataset.
func (b *DatasetBuilder) Build() *model.Dataset {
	return model.NewDataset(b.records, b.lower)
}
