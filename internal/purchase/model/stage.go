package model

// Stage is a state of the purchase state machine.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageLocating     Stage = "locating"
	StageProbing      Stage = "probing"
	StageProvisioning Stage = "provisioning"
	StageSubmitting   Stage = "submitting"
	StageEscrowing    Stage = "escrowing"
	StageSucceeded    Stage = "succeeded"
	StageFailed       Stage = "failed"
)

// Terminal reports whether the stage ends an attempt.
func (s Stage) Terminal() bool {
	return s == StageSucceeded || s == StageFailed
}
