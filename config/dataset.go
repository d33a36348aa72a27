package config

import "strings"

// DatasetConfig locates the survey dataset loaded at startup.
type DatasetConfig struct {
	// Path to a .csv or .xlsx export of the nutrition/activity/obesity survey.
	Path string `env:"DATASET_PATH" envDefault:"nutrition_activity_obesity_usa_subset.csv"`

	// LowerIsBetter overrides the built-in lower-is-better question list. Questions are '|'-separated
	// because the question texts themselves contain commas.
	LowerIsBetter []string `env:"DATASET_LOWER_IS_BETTER" envSeparator:"|"`
}

// Sanitize trims whitespace and drops empty entries.
func (d *DatasetConfig) Sanitize() {
	d.Path = strings.TrimSpace(d.Path)
	out := d.LowerIsBetter[:0]
	for _, q := range d.LowerIsBetter {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		out = nil
	}
	d.LowerIsBetter = out
}
