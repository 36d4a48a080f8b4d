package app

// ControllerOperation tracks a CLI operation that may mutate the database.
// Operations are created in memory with ID=0. Only mutating commands
// persist them (giving them an auto-increment ID from the database).
type ControllerOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "success" or "error"
}

// NewControllerOperation creates a new in-memory operation record.
func NewControllerOperation(operation, parameters string) *ControllerOperation {
	return &ControllerOperation{
		Operation:  operation,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *ControllerOperation) Persisted() bool {
	return op.ID != 0
}
