package web

import (
	"github.com/desertthunder/alchemy/internal/manager"
	"github.com/desertthunder/alchemy/internal/models"
)

// Client-side helpers invoked by form callbacks.
const (
	AddRowCallback     = "MyAMS.helpers.addTableRow"
	RefreshRowCallback = "MyAMS.helpers.refreshTableRow"
	DeleteRowCallback  = "MyAMS.helpers.deleteTableRow"
)

const noChangesMessage = "No changes were applied."

// Callback is a client-side function call returned by a form submit.
type Callback struct {
	Callback string          `json:"callback"`
	Options  CallbackOptions `json:"options"`
}

// CallbackOptions locate the row a callback acts on.
type CallbackOptions struct {
	TableID string `json:"table_id"`
	RowID   string `json:"row_id"`
	Data    *Row   `json:"data,omitempty"`
}

// FormResult is the JSON answer of a form submit.
type FormResult struct {
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	Callbacks []Callback `json:"callbacks,omitempty"`
}

// FormErrorResult is the JSON answer of a rejected form submit.
type FormErrorResult struct {
	Status string      `json:"status"`
	Error  FormErrBody `json:"error"`
}

// FormErrBody lists the global and per-widget errors of a rejected form.
type FormErrBody struct {
	Messages []string            `json:"messages"`
	Widgets  []models.FieldError `json:"widgets"`
}

// NewFormErrorResult converts a [manager.FormError] to its JSON answer.
func NewFormErrorResult(err *manager.FormError) FormErrorResult {
	body := FormErrBody{Messages: err.Messages, Widgets: err.Fields}
	if body.Messages == nil {
		body.Messages = []string{}
	}
	if body.Widgets == nil {
		body.Widgets = []models.FieldError{}
	}
	return FormErrorResult{Status: "error", Error: body}
}

// RenderAdd renders the result of the add and clone forms: nil when nothing was created,
// otherwise a callback adding the new row to the engines table.
func RenderAdd(m models.Manager, created *models.Engine) *FormResult {
	if created == nil {
		return nil
	}
	row := NewRow(m, created)
	return &FormResult{
		Status: "success",
		Callbacks: []Callback{{
			Callback: AddRowCallback,
			Options:  CallbackOptions{TableID: m.TableID, RowID: row.ID, Data: &row},
		}},
	}
}

// RenderEdit renders the result of the edit form: nil without changes,
// otherwise a callback refreshing the engine row.
func RenderEdit(m models.Manager, e *models.Engine, changes []string) *FormResult {
	if len(changes) == 0 {
		return nil
	}
	row := NewRow(m, e)
	return &FormResult{
		Status: "success",
		Callbacks: []Callback{{
			Callback: RefreshRowCallback,
			Options:  CallbackOptions{TableID: m.TableID, RowID: row.ID, Data: &row},
		}},
	}
}

// RenderDelete renders the removal of an engine as a callback deleting its row.
func RenderDelete(m models.Manager, e *models.Engine) *FormResult {
	return &FormResult{
		Status: "success",
		Callbacks: []Callback{{
			Callback: DeleteRowCallback,
			Options:  CallbackOptions{TableID: m.TableID, RowID: m.RowID(e.ID())},
		}},
	}
}

// orNoChanges substitutes the informational answer for a nil render.
func orNoChanges(r *FormResult) *FormResult {
	if r != nil {
		return r
	}
	return &FormResult{Status: "info", Message: noChangesMessage}
}
