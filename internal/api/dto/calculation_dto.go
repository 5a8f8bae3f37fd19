package dto

import (
	"time"

	"github.com/spec-kit/calculation-service/internal/domain"
)

// CreateCalculationRequest payload for new calculations.
type CreateCalculationRequest struct {
	Type   string    `json:"type"`
	Inputs []float64 `json:"inputs"`
}

// UpdateCalculationRequest payload. Only inputs may change; the operation
// type is immutable.
type UpdateCalculationRequest struct {
	Inputs []float64 `json:"inputs"`
}

// CalculationResponse is the public view of a calculation record.
type CalculationResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Inputs    []float64 `json:"inputs"`
	Result    float64   `json:"result"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCalculationResponse converts the domain model.
func NewCalculationResponse(calc *domain.Calculation) CalculationResponse {
	return CalculationResponse{
		ID:        calc.ID,
		UserID:    calc.UserID,
		Type:      string(calc.Type),
		Inputs:    calc.Inputs,
		Result:    calc.Result,
		CreatedAt: calc.CreatedAt,
		UpdatedAt: calc.UpdatedAt,
	}
}
