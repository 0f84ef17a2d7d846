package enums

// CheckoutState is the step a booking session's checkout is in.
type CheckoutState string

const (
	CheckoutClosed          CheckoutState = "CLOSED"
	CheckoutMethodSelection CheckoutState = "METHOD_SELECTION"
	CheckoutProcessing      CheckoutState = "PROCESSING"
	CheckoutSuccess         CheckoutState = "SUCCESS"
	CheckoutFailed          CheckoutState = "FAILED"
)

// IsTerminal reports whether no further checkout transitions are possible.
func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutSuccess
}

// EditMode is the itinerary editor's mode.
type EditMode string

const (
	EditModeViewing EditMode = "VIEWING"
	EditModeEditing EditMode = "EDITING"
)
