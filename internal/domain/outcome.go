package domain

// OutcomeCode classifies the terminal state of an assignment operation.
type OutcomeCode string

const (
	OutcomeAssigned         OutcomeCode = "assigned"
	OutcomeRemoved          OutcomeCode = "removed"
	OutcomeCancelled        OutcomeCode = "cancelled"
	OutcomeNoOp             OutcomeCode = "noop"
	OutcomeInvalidContainer OutcomeCode = "invalid_container"
	OutcomeUnauthorized     OutcomeCode = "unauthorized"
	OutcomeFailed           OutcomeCode = "failed"
	OutcomeStaleConflict    OutcomeCode = "stale_conflict"
)

// Outcome is the single value every assignment operation resolves to.
// No error escapes the operation boundary; failures are carried in Err.
type Outcome struct {
	Code OutcomeCode
	// ItemID is the coffee the operation acted on.
	ItemID string
	// ContainerIDs are the containers the operation targeted.
	ContainerIDs []string
	// Evicted lists the coffees whose assignments were removed to make room.
	Evicted []Coffee
	// Conflicts lists the container/occupant pairs that required confirmation.
	Conflicts []Conflict
	Err       error
}

// Mutated reports whether the outcome committed any store write.
func (o Outcome) Mutated() bool {
	return o.Code == OutcomeAssigned || o.Code == OutcomeRemoved
}
