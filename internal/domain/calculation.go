package domain

import "time"

// CalculationType enumerates supported arithmetic operations.
type CalculationType string

const (
	CalculationTypeAddition       CalculationType = "addition"
	CalculationTypeSubtraction    CalculationType = "subtraction"
	CalculationTypeMultiplication CalculationType = "multiplication"
	CalculationTypeDivision       CalculationType = "division"
)

// Valid reports whether the type is one of the supported operations.
func (t CalculationType) Valid() bool {
	switch t {
	case CalculationTypeAddition, CalculationTypeSubtraction,
		CalculationTypeMultiplication, CalculationTypeDivision:
		return true
	}
	return false
}

// Calculation is a persisted arithmetic record owned by a user.
// The result is computed server-side when the record is created or its
// inputs change; the operation type is immutable after creation.
type Calculation struct {
	ID        string
	UserID    string
	Type      CalculationType
	Inputs    []float64
	Result    float64
	CreatedAt time.Time
	UpdatedAt time.Time
}
