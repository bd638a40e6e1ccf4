package state

// FieldFrequency counts how often a field appears in the change log.
type FieldFrequency struct {
	FieldName string `json:"field_name"`
	Changes   int    `json:"changes"`
}

// DailyCount is the number of commits on one UTC day.
type DailyCount struct {
	Day     string `json:"day"` // "2006-01-02"
	Commits int    `json:"commits"`
}
