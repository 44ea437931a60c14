package greendonut

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Wrap with fmt.Errorf("...: %w", ErrX) and check
// with errors.Is.
var (
	// ErrInvalidArgument is returned synchronously from a calling
	// operation that received a disallowed argument (a nil key where one
	// is required, or an empty LoadMany key set).
	ErrInvalidArgument = errors.New("greendonut: invalid argument")

	// ErrInvalidState is returned by an operation performed on a closed
	// LoaderCore, or by Promise.Set called on an already-settled promise.
	ErrInvalidState = errors.New("greendonut: invalid state")

	// ErrBatchShapeMismatch marks a rejected Result produced for a key
	// whose position fetch did not return a result for.
	ErrBatchShapeMismatch = errors.New("greendonut: fetch result count does not match the requested chunk")

	// ErrFetchFailure wraps a panic recovered from the user-supplied
	// FetchFunc. A rejected Result that FetchFunc returns for a key is
	// passed through to that key's promise as-is, without this tag.
	ErrFetchFailure = errors.New("greendonut: fetch failed")
)

// ErrLoaderClosed is returned by Load, LoadMany, DispatchBatch and Start
// once Close has run. Set, Remove and Clear do not check for Close and
// return nil.
var ErrLoaderClosed = fmt.Errorf("%w: loader is closed", ErrInvalidState)

// fetchFailure wraps cause with ErrFetchFailure so errors.Is(err,
// ErrFetchFailure) succeeds while errors.Unwrap still reaches cause.
func fetchFailure(cause error) error {
	return fmt.Errorf("%w: %w", ErrFetchFailure, cause)
}

// batchShapeMismatch reports the expected vs. actual result count for a
// chunk that fetch under-returned.
func batchShapeMismatch(want, got int) error {
	return fmt.Errorf("%w: expected %d results, got %d", ErrBatchShapeMismatch, want, got)
}

// wrapInvalidArgument tags reason with ErrInvalidArgument.
func wrapInvalidArgument(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, reason)
}

// wrapInvalidState tags reason with ErrInvalidState.
func wrapInvalidState(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, reason)
}
