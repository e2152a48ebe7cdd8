package costing

import "errors"

var (
	// ErrEmptyRecipe is returned when a cost is requested for a recipe
	// whose item list is empty.
	ErrEmptyRecipe = errors.New("recipe has no items")

	// ErrInvalidItem is returned for a line that references both or
	// neither of {ingredient, preparation}.
	ErrInvalidItem = errors.New("item must reference exactly one of ingredient or preparation")

	// ErrCyclicComposition is returned when a preparation is reached again
	// while it is still on the current walk's call stack.
	ErrCyclicComposition = errors.New("cyclic preparation composition")

	// ErrCompositionTooDeep is the resource guard for pathologically deep
	// preparation trees that are not strictly cyclic.
	ErrCompositionTooDeep = errors.New("preparation nesting exceeds depth limit")
)
