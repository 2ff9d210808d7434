package workflow

// ValidationMode tells the claim validator which rules apply while a transition runs.
// It is computed per transition and passed explicitly; it is never stored on the claim.
type ValidationMode string

const (
	// ValidationFull applies every rule
	ValidationFull ValidationMode = "none"

	// ValidationSuppressAll skips peripheral rules entirely
	ValidationSuppressAll ValidationMode = "all"

	// ValidationOnlyAmountAssessed checks the assessed amount only
	ValidationOnlyAmountAssessed ValidationMode = "only_amount_assessed"
)

// ValidationModeFor returns the mode for firing trigger into target
func ValidationModeFor(trigger Trigger, target State) ValidationMode {
	if !InClassification(NonValidation, target) {
		return ValidationFull
	}
	if trigger == TriggerAuthorise || trigger == TriggerAuthorisePart {
		return ValidationOnlyAmountAssessed
	}
	return ValidationSuppressAll
}
