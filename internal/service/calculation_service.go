package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/calculation-service/internal/domain"
	"github.com/spec-kit/calculation-service/internal/events"
	"github.com/spec-kit/calculation-service/internal/repository"
	apperrors "github.com/spec-kit/calculation-service/pkg/util"
)

// CalculationService manages calculation records and computes results.
type CalculationService struct {
	calcs      repository.CalculationRepository
	dispatcher events.Dispatcher
}

// NewCalculationService constructs the service.
func NewCalculationService(calcs repository.CalculationRepository, dispatcher events.Dispatcher) *CalculationService {
	return &CalculationService{calcs: calcs, dispatcher: dispatcher}
}

// Compute evaluates the operation as a left fold over the inputs.
func Compute(typ domain.CalculationType, inputs []float64) (float64, error) {
	if !typ.Valid() {
		return 0, apperrors.NewValidationError("unsupported calculation type", map[string]any{"type": string(typ)})
	}
	if len(inputs) < 2 {
		return 0, apperrors.NewValidationError("at least two inputs required", nil)
	}

	result := inputs[0]
	for _, value := range inputs[1:] {
		switch typ {
		case domain.CalculationTypeAddition:
			result += value
		case domain.CalculationTypeSubtraction:
			result -= value
		case domain.CalculationTypeMultiplication:
			result *= value
		case domain.CalculationTypeDivision:
			if value == 0 {
				return 0, apperrors.NewValidationError("division by zero", nil)
			}
			result /= value
		}
	}
	return result, nil
}

// Create computes and persists a new calculation for the user.
func (s *CalculationService) Create(ctx context.Context, userID string, typ domain.CalculationType, inputs []float64) (*domain.Calculation, error) {
	result, err := Compute(typ, inputs)
	if err != nil {
		return nil, err
	}

	calc := &domain.Calculation{
		UserID: userID,
		Type:   typ,
		Inputs: inputs,
		Result: result,
	}
	if err := s.calcs.Create(ctx, calc); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventCalculationCreated, userID, events.CalculationCreatedPayload{
		CalculationID: calc.ID,
		Type:          calc.Type,
		Result:        calc.Result,
	})
	return calc, nil
}

// List returns the user's calculations, newest first.
func (s *CalculationService) List(ctx context.Context, userID string) ([]domain.Calculation, error) {
	return s.calcs.ListByUser(ctx, userID)
}

// Get returns a single owned calculation.
func (s *CalculationService) Get(ctx context.Context, userID, id string) (*domain.Calculation, error) {
	return s.calcs.GetByID(ctx, userID, id)
}

// Update replaces the inputs and recomputes the result. The operation type
// is immutable after creation.
func (s *CalculationService) Update(ctx context.Context, userID, id string, inputs []float64) (*domain.Calculation, error) {
	calc, err := s.calcs.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	result, err := Compute(calc.Type, inputs)
	if err != nil {
		return nil, err
	}

	calc.Inputs = inputs
	calc.Result = result
	if err := s.calcs.Update(ctx, calc); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventCalculationUpdated, userID, events.CalculationUpdatedPayload{
		CalculationID: calc.ID,
		Result:        calc.Result,
	})
	return calc, nil
}

// Delete removes an owned calculation.
func (s *CalculationService) Delete(ctx context.Context, userID, id string) error {
	if err := s.calcs.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, events.EventCalculationDeleted, userID, events.CalculationDeletedPayload{CalculationID: id})
	return nil
}

func (s *CalculationService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
