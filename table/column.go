package table

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "descending"
	}

	return "ascending"
}

// Column describes one projected column of the row type T.
type Column[T any] struct {
	// Key identifies the column in sort state.
	Key string

	// Value extracts the cell value used for sorting and filtering.
	Value func(row T) any

	// Sortable marks the column as a valid sort target.
	Sortable bool

	// Searchable includes the column in free-text filtering.
	Searchable bool
}

// Sort is the active sort state: one column at a time.
type Sort struct {
	Key       string
	Direction Direction
}

// PageState is the pagination tuple: zero-based page index and page size.
type PageState struct {
	Index int
	Size  int
}
