package web

import (
	"fmt"

	"github.com/desertthunder/alchemy/internal/models"
)

// Field modes.
const (
	InputMode   = "input"
	DisplayMode = "display"
)

// Field is one widget of a form.
type Field struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"` // text, bool or int
	Required    bool   `json:"required,omitempty"`
	Mode        string `json:"mode"`
	Value       any    `json:"value"`
}

// Form describes an admin form.
type Form struct {
	Name   string  `json:"name"`
	Title  string  `json:"title"`
	Legend string  `json:"legend"`
	Action string  `json:"action"`
	Fields []Field `json:"fields"`
}

// Field returns the widget with the given name.
func (f Form) Field(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// engineFields lists the widgets of every engine property filled from p.
func engineFields(p models.EngineProperties) []Field {
	return []Field{
		{Name: "name", Label: "Engine name", Description: "Name under which the engine is registered", Type: "text", Required: true, Mode: InputMode, Value: p.Name},
		{Name: "dsn", Label: "DSN", Description: "RFC-1738 compliant URL for the database connection", Type: "text", Required: true, Mode: InputMode, Value: p.DSN},
		{Name: "echo", Label: "Echo SQL?", Description: "Log all SQL statements", Type: "bool", Mode: InputMode, Value: p.Echo},
		{Name: "use_pool", Label: "Use connections pool?", Description: "If 'no', idle connections are closed instead of being kept", Type: "bool", Mode: InputMode, Value: p.UsePool},
		{Name: "pool_size", Label: "Pool size", Description: "Maximum number of open connections, 0 for unlimited", Type: "int", Mode: InputMode, Value: p.PoolSize},
		{Name: "pool_recycle", Label: "Pool recycle time", Description: "Seconds after which a connection is replaced, -1 for never", Type: "int", Mode: InputMode, Value: p.PoolRecycle},
		{Name: "pool_timeout", Label: "Pool timeout", Description: "Seconds to wait for a connection", Type: "int", Mode: InputMode, Value: p.PoolTimeout},
		{Name: "echo_pool", Label: "Echo pool?", Description: "Log connection pool events", Type: "bool", Mode: InputMode, Value: p.EchoPool},
	}
}

func formTitle(label, text string) string {
	return fmt.Sprintf("<small>%s</small><br />%s", label, text)
}

// AddForm describes the form adding an engine to the manager.
func AddForm(m models.Manager) Form {
	return Form{
		Name:   "add-sql-engine",
		Title:  formTitle(m.Label, "New SQL engine"),
		Legend: "New engine properties",
		Action: "/api/engines/add",
		Fields: engineFields(models.DefaultEngineProperties()),
	}
}

// CloneForm describes the form cloning e: only the new name is asked.
// The title names the source engine.
func CloneForm(e *models.Engine) Form {
	fields := engineFields(models.EngineProperties{})[:1]
	return Form{
		Name:   "clone-sql-engine",
		Title:  formTitle(e.Name(), "New SQL engine"),
		Legend: "Clone SQL connection",
		Action: fmt.Sprintf("/api/engines/%s/clone", e.ID()),
		Fields: fields,
	}
}

// EditForm describes the properties form of an engine. The name is displayed only.
func EditForm(m models.Manager, e *models.Engine) Form {
	fields := engineFields(e.Properties())
	fields[0].Mode = DisplayMode
	fields[0].Required = false
	return Form{
		Name:   "properties",
		Title:  formTitle(m.Label, fmt.Sprintf("SQL engine: %s", e.Name())),
		Legend: "SQL engine properties",
		Action: fmt.Sprintf("/api/engines/%s/properties", e.ID()),
		Fields: fields,
	}
}
