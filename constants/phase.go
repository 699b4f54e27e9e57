package constants

// Phase is one pipeline stage with its own failure policy.
type Phase string

const (
	PhaseExtraction    Phase = "extraction"
	PhaseAnonymization Phase = "anonymization"
	PhaseRestructuring Phase = "restructuring"
)

// PhaseOrder is the fixed order phases are recorded in.
var PhaseOrder = []Phase{PhaseExtraction, PhaseAnonymization, PhaseRestructuring}
