package xlmap

import (
	"errors"
	"fmt"
)

var (
	// ErrSheetNotFound indicates a rule references a sheet the workbook does not have.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrInvalidCellRef indicates a malformed cell reference such as "1A" or "".
	ErrInvalidCellRef = errors.New("invalid cell reference")

	// ErrInvalidColumn indicates a malformed column name.
	ErrInvalidColumn = errors.New("invalid column name")

	// ErrNoSource indicates a job without a source workbook.
	ErrNoSource = errors.New("no source workbook")

	// ErrNoTemplate indicates a job without a template workbook.
	ErrNoTemplate = errors.New("no template workbook")

	// ErrHyperlink indicates a cell value was written but its hyperlink was not.
	ErrHyperlink = errors.New("hyperlink not copied")
)

// TaskError is the terminal failure of a processing run. Stage names the
// step that failed ("load source", "save", "columns", ...).
type TaskError struct {
	TaskID string
	Stage  string
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

func newTaskError(taskID, stage string, err error) *TaskError {
	return &TaskError{TaskID: taskID, Stage: stage, Err: err}
}
