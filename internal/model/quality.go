package model

// Confidence is a coarse trust level attached to an output field.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// NormalizeConfidence maps free text onto a Confidence, defaulting to low.
func NormalizeConfidence(s string) Confidence {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium:
		return Confidence(s)
	}
	return ConfidenceLow
}

// QualityMetric explains how far a field can be trusted.
type QualityMetric struct {
	Confidence Confidence `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
}

// Quality holds one metric per output field.
type Quality struct {
	Location QualityMetric `json:"location"`
	Revenue  QualityMetric `json:"revenue"`
	Size     QualityMetric `json:"size"`
	Industry QualityMetric `json:"industry"`
}

// IndustryCode is a 6-digit NAICS code with its description.
type IndustryCode struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Prefix returns the first n digits of the code, or the whole code if shorter.
func (c IndustryCode) Prefix(n int) string {
	if len(c.Code) <= n {
		return c.Code
	}
	return c.Code[:n]
}
