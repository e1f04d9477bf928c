// Package model provides capability-based model selection.
// Callers ask for a capability (extraction, classification) and the
// registry resolves it to configured endpoints with a fallback chain.
package model

// Capability names the kind of work a model call performs.
type Capability string

const (
	// CapabilityExtraction turns catalog chunks into structured records.
	CapabilityExtraction Capability = "extraction"

	// CapabilityClassification maps free text onto controlled vocabularies.
	CapabilityClassification Capability = "classification"
)

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityExtraction, CapabilityClassification:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}
