package boards

import "errors"

var (
	// ErrNotFound indicates the requested board does not exist.
	ErrNotFound = errors.New("boards: board not found")
	// ErrForbidden indicates the caller does not own the board.
	ErrForbidden = errors.New("boards: caller does not own this board")
	// ErrCategoryNotFound indicates the named category is not on the board.
	ErrCategoryNotFound = errors.New("boards: category not found")
	// ErrNoData indicates there are no video records to derive a board from,
	// either because every channel came back empty or because the cached
	// candidate set expired and no durable copy exists.
	ErrNoData = errors.New("boards: no video data available")
	// ErrVersionConflict indicates a concurrent writer updated the board's
	// keyword blob between read and write.
	ErrVersionConflict = errors.New("boards: concurrent board update")
	// ErrNotGenerated indicates an operation that needs a completed board was
	// invoked while the board is still pending.
	ErrNotGenerated = errors.New("boards: board has not been generated yet")
)
