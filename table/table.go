// Package table implements the generic client-side data-table engine:
// free-text filtering, stable single-column sorting, and pagination over a
// row collection.
//
// A Table runs in one of two modes, fixed at construction. In client mode it
// owns the complete row set and computes filter, sort, and page slices in
// memory. In manual mode it holds only the current page as fetched by the
// caller; sort and filter changes are recorded and reported through intent
// callbacks, and the caller re-queries the backend.
//
// Page state is either owned internally (uncontrolled) or owned by the
// caller through a getter/setter pair (controlled) — never both. The engine
// performs no I/O and cannot fail; it is safe for use from a single
// goroutine per instance.
package table

import "iter"

// DefaultPageSize is the page size used until SetPageSize is called.
const DefaultPageSize = 10

// Table projects a row collection through the current filter, sort, and page
// state.
type Table[T any] struct {
	columns []Column[T]
	manual  bool
	rows    []T

	manualRowCount  int
	manualPageCount int

	sort       Sort
	sortActive bool
	filter     string

	page    PageState
	pageGet func() PageState
	pageSet func(PageState)

	onSortChange   func(sort Sort, active bool)
	onFilterChange func(text string)
}

// Option defines a function signature for setting Table options.
type Option[T any] func(*Table[T])

// WithPageSize sets the initial page size. (default: 10)
func WithPageSize[T any](size int) Option[T] {
	return func(t *Table[T]) {
		if size > 0 {
			t.page.Size = size
		}
	}
}

// ControlledPage hands ownership of the pagination tuple to the caller. The
// engine reads current state through get and delivers clamped updates
// through set; it keeps no page state of its own. Required when rows are
// paged remotely.
func ControlledPage[T any](get func() PageState, set func(PageState)) Option[T] {
	return func(t *Table[T]) {
		t.pageGet = get
		t.pageSet = set
	}
}

// OnSortChange registers the sort-intent callback. In manual mode this is
// how the caller learns it must re-query the backend.
func OnSortChange[T any](fn func(sort Sort, active bool)) Option[T] {
	return func(t *Table[T]) {
		t.onSortChange = fn
	}
}

// OnFilterChange registers the filter-intent callback.
func OnFilterChange[T any](fn func(text string)) Option[T] {
	return func(t *Table[T]) {
		t.onFilterChange = fn
	}
}

// New creates a client-mode table: the engine owns the complete row set and
// computes everything in memory.
func New[T any](columns []Column[T], opts ...Option[T]) *Table[T] {
	t := &Table[T]{
		columns:         columns,
		page:            PageState{Index: 0, Size: DefaultPageSize},
		manualRowCount:  -1,
		manualPageCount: -1,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// NewManual creates a manual-mode table: rows are the current page as
// supplied by the caller, totals come from SetRowCount/SetPageCount, and
// sort/filter changes are only reported, never applied locally.
func NewManual[T any](columns []Column[T], opts ...Option[T]) *Table[T] {
	t := New(columns, opts...)
	t.manual = true

	return t
}

// SetRows replaces the row collection. In client mode the page index is
// re-clamped against the new data; in manual mode the rows are the fetched
// page and totals are left to SetRowCount.
func (t *Table[T]) SetRows(rows []T) {
	t.rows = rows
	if !t.manual {
		t.clampPage()
	}
}

// SetRowCount supplies the externally known total row count (manual mode).
func (t *Table[T]) SetRowCount(count int) {
	t.manualRowCount = count
	t.clampPage()
}

// SetPageCount supplies an externally known page count (manual mode),
// overriding the count derived from SetRowCount.
func (t *Table[T]) SetPageCount(count int) {
	t.manualPageCount = count
	t.clampPage()
}

// ToggleSort cycles the column through ascending, descending, and none.
// Selecting a new column replaces the previous sort: one active sort column
// at a time.
func (t *Table[T]) ToggleSort(key string) {
	if !t.sortable(key) {
		return
	}

	switch {
	case !t.sortActive || t.sort.Key != key:
		t.sort = Sort{Key: key, Direction: Ascending}
		t.sortActive = true
	case t.sort.Direction == Ascending:
		t.sort.Direction = Descending
	default:
		t.sortActive = false
	}

	if t.onSortChange != nil {
		t.onSortChange(t.sort, t.sortActive)
	}
}

// SetSort sets the sort state explicitly.
func (t *Table[T]) SetSort(key string, direction Direction) {
	if !t.sortable(key) {
		return
	}

	t.sort = Sort{Key: key, Direction: direction}
	t.sortActive = true

	if t.onSortChange != nil {
		t.onSortChange(t.sort, t.sortActive)
	}
}

// SetFilter sets the free-text filter. Matching is a case-insensitive
// substring check across Searchable columns. In manual mode the text is only
// recorded and reported; the caller re-fetches.
func (t *Table[T]) SetFilter(text string) {
	t.filter = text

	if t.onFilterChange != nil {
		t.onFilterChange(text)
	}

	if !t.manual {
		t.clampPage()
	}
}

// SetPage moves to the given zero-based page index, clamped into the valid
// range.
func (t *Table[T]) SetPage(index int) {
	p := t.currentPage()
	p.Index = index
	t.commitPage(p)
}

// SetPageSize changes the page size and re-clamps the page index so it never
// points past the new last page. Sizes below 1 are ignored.
func (t *Table[T]) SetPageSize(size int) {
	if size < 1 {
		return
	}

	p := t.currentPage()
	p.Size = size
	t.commitPage(p)
}

// VisibleRows returns the rows of the current page under the active filter
// and sort. The sequence is finite and restartable: each call recomputes
// from current state.
func (t *Table[T]) VisibleRows() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, row := range t.visible() {
			if !yield(row) {
				return
			}
		}
	}
}

// RowCount returns the total matching rows: post-filter in client mode, the
// externally supplied count in manual mode.
func (t *Table[T]) RowCount() int {
	if t.manual {
		if t.manualRowCount >= 0 {
			return t.manualRowCount
		}

		return len(t.rows)
	}

	return len(t.filterRows())
}

// PageCount returns the number of pages under the current page size. An
// empty dataset has zero pages.
func (t *Table[T]) PageCount() int {
	return t.pageCountFor(t.currentPage().Size)
}

// Page returns the current pagination tuple.
func (t *Table[T]) Page() PageState {
	return t.currentPage()
}

// Sort returns the active sort state. ok is false when no sort is active.
func (t *Table[T]) Sort() (sort Sort, ok bool) {
	return t.sort, t.sortActive
}

// Filter returns the current free-text filter.
func (t *Table[T]) Filter() string {
	return t.filter
}

func (t *Table[T]) visible() []T {
	p := t.clamped(t.currentPage())

	if t.manual {
		// Rows are already the fetched page; never re-filter or re-sort
		// data the engine does not fully own.
		if p.Size > 0 && len(t.rows) > p.Size {
			return t.rows[:p.Size]
		}

		return t.rows
	}

	rows := t.sortRows(t.filterRows())

	start := p.Index * p.Size
	if start >= len(rows) {
		return nil
	}
	end := start + p.Size
	if end > len(rows) {
		end = len(rows)
	}

	return rows[start:end]
}

func (t *Table[T]) sortable(key string) bool {
	for _, col := range t.columns {
		if col.Key == key {
			return col.Sortable
		}
	}

	return false
}

func (t *Table[T]) currentPage() PageState {
	if t.pageGet != nil {
		p := t.pageGet()
		if p.Size < 1 {
			p.Size = DefaultPageSize
		}

		return p
	}

	return t.page
}

// commitPage clamps and stores the pagination tuple. In controlled mode the
// tuple is handed to the caller's setter and the engine's own copy is never
// written: the single source of truth stays with the caller.
func (t *Table[T]) commitPage(p PageState) {
	p = t.clamped(p)

	if t.pageSet != nil {
		t.pageSet(p)

		return
	}

	t.page = p
}

// clampPage re-clamps the current index after a data, filter, or total
// change.
func (t *Table[T]) clampPage() {
	p := t.currentPage()
	if clamped := t.clamped(p); clamped != p {
		t.commitPage(clamped)
	}
}

func (t *Table[T]) clamped(p PageState) PageState {
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}

	last := t.pageCountFor(p.Size) - 1
	if last < 0 {
		last = 0
	}

	if p.Index > last {
		p.Index = last
	}
	if p.Index < 0 {
		p.Index = 0
	}

	return p
}

func (t *Table[T]) pageCountFor(size int) int {
	if size < 1 {
		return 0
	}

	if t.manual {
		if t.manualPageCount >= 0 {
			return t.manualPageCount
		}
		if t.manualRowCount >= 0 {
			return (t.manualRowCount + size - 1) / size
		}

		return (len(t.rows) + size - 1) / size
	}

	return (len(t.filterRows()) + size - 1) / size
}
