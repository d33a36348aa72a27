package model

// Record is one dataset row. Stratification fields are nil when the source cell was empty.
type Record struct {
	Location               string
	Question               string
	Value                  float64
	StratificationCategory *string
	Stratification         *string
}

// Dataset is the immutable, shared collection of records plus the lower-is-better classification.
type Dataset struct {
	Records       []Record
	LowerIsBetter map[string]struct{}
}

// NewDataset builds a Dataset from records and the questions where a smaller value is favorable.
func NewDataset(records []Record, lowerIsBetter []string) *Dataset {
	set := make(map[string]struct{}, len(lowerIsBetter))
	for _, q := range lowerIsBetter {
		set[q] = struct{}{}
	}
	return &Dataset{Records: records, LowerIsBetter: set}
}

// IsLowerBetter reports whether question is classified as lower-is-better.
func (d *Dataset) IsLowerBetter(question string) bool {
	if d == nil {
		return false
	}
	_, ok := d.LowerIsBetter[question]
	return ok
}

// Questions returns the distinct questions in first-appearance order.
func (d *Dataset) Questions() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range d.Records {
		if _, ok := seen[r.Question]; ok {
			continue
		}
		seen[r.Question] = struct{}{}
		out = append(out, r.Question)
	}
	return out
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
