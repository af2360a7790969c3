package track

// Status is the vessel operating mode. Besides the two modes the engine
// reasons about, it carries any other value the host reports (anchored,
// moored, ...) verbatim.
type Status string

// Statuses with engine-level meaning.
const (
	StatusUnknown  Status = ""
	StatusSailing  Status = "sailing"
	StatusMotoring Status = "motoring"
)

// Promote returns the status to record after a movement-triggered flush:
// unknown or externally reported values become sailing, but a reported
// motoring status is never demoted.
func (s Status) Promote() Status {
	if s == StatusMotoring {
		return s
	}
	return StatusSailing
}
