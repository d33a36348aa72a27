package dataset

// DefaultLowerIsBetter lists the survey questions where a smaller value is the favorable outcome.
func DefaultLowerIsBetter() []string {
	return []string{
		"Percent of adults aged 18 years and older who have an overweight classification",
		"Percent of adults aged 18 years and older who have obesity",
		"Percent of adults who engage in no leisure-time physical activity",
		"Percent of adults who report consuming fruit less than one time daily",
		"Percent of adults who report consuming vegetables less than one time daily",
	}
}
