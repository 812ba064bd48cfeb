package attribution

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sponsorlens-backend/pkg/errors"
)

var (
	// ErrInvalidModelType is returned when a caller names a model the engine does not know.
	ErrInvalidModelType = errors.New("invalid attribution model type")
	// ErrUpstreamRead is returned when touchpoint events could not be read.
	ErrUpstreamRead = errors.New("touchpoint event read failed")
	// ErrPersistence is returned when a path or result snapshot could not be written.
	ErrPersistence = errors.New("attribution snapshot write failed")
	// ErrDuplicateResult is returned when a result with the same run key already exists.
	ErrDuplicateResult = errors.New("attribution result already recorded")
)

func invalidModelError(modelType enums.AttributionModelType) error {
	return pkgerrors.Wrap(
		pkgerrors.CodeValidation,
		fmt.Errorf("%w %q", ErrInvalidModelType, modelType),
		"unsupported attribution model",
	).WithDetails(map[string]any{
		"model_type": string(modelType),
		"supported":  enums.AllAttributionModelTypes(),
	})
}

func upstreamError(err error) error {
	return pkgerrors.Wrap(
		pkgerrors.CodeDependency,
		fmt.Errorf("%w: %w", ErrUpstreamRead, err),
		"touchpoint events unavailable",
	)
}

func persistenceError(what string, err error) error {
	if errors.Is(err, ErrDuplicateResult) {
		return pkgerrors.Wrap(
			pkgerrors.CodeConflict,
			fmt.Errorf("%w: %s: %w", ErrPersistence, what, err),
			"attribution run already recorded",
		)
	}
	return pkgerrors.Wrap(
		pkgerrors.CodeDependency,
		fmt.Errorf("%w: %s: %w", ErrPersistence, what, err),
		"attribution results could not be saved",
	)
}

func validationError(message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message)
}
