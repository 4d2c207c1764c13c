package web

import (
	"fmt"
	"sort"

	"github.com/desertthunder/alchemy/internal/models"
	"github.com/desertthunder/alchemy/internal/shared"
)

// Column describes one column of the engines table.
type Column struct {
	Name   string `json:"name"`
	Label  string `json:"label,omitempty"`
	Hint   string `json:"hint,omitempty"`
	Icon   string `json:"icon,omitempty"`
	Href   string `json:"href,omitempty"` // action view, relative to the row engine
	Action bool   `json:"action,omitempty"`
	Weight int    `json:"weight"`
}

// Columns of the engines table, in weight order.
var Columns = sortColumns([]Column{
	{Name: "name", Label: "Name", Weight: 10},
	{Name: "dsn", Label: "DSN", Weight: 20},
	{Name: "pool", Label: "Pool", Weight: 30},
	{Name: "echo", Label: "Echo", Weight: 40},
	{Name: "clone", Hint: "Clone SQL engine", Icon: "far fa-clone", Href: "clone", Action: true, Weight: 100},
	{Name: "trash", Hint: "Delete SQL engine", Icon: "far fa-trash-alt", Action: true, Weight: 900},
})

func sortColumns(cols []Column) []Column {
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Weight < cols[j].Weight })
	return cols
}

// Row is one engine of the engines table.
type Row struct {
	ID       string            `json:"id"`
	OID      string            `json:"oid"`
	Href     string            `json:"href,omitempty"` // element editor, empty for read-only engines
	ReadOnly bool              `json:"read_only,omitempty"`
	Cells    map[string]string `json:"cells"`
	Actions  []string          `json:"actions"`
}

// Action is a toolbar entry of the engines table.
type Action struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Status string `json:"status"`
	Icon   string `json:"icon"`
	Href   string `json:"href"`
	Modal  bool   `json:"modal"`
	Weight int    `json:"weight"`
}

// AddEngineAction is the toolbar entry opening the add form.
var AddEngineAction = Action{
	Name:   "add-sql-engine.menu",
	Label:  "Add SQL engine",
	Status: "success",
	Icon:   "fas fa-plus",
	Href:   "add",
	Modal:  true,
	Weight: 10,
}

// Table is the engines table of a manager.
type Table struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
	Toolbar []Action `json:"toolbar"`
}

// NewTable builds the engines table. Toolbar actions are only listed when manage is set.
func NewTable(m models.Manager, engines []*models.Engine, manage bool) Table {
	t := Table{
		ID:      m.TableID,
		Title:   m.Label,
		Columns: Columns,
		Rows:    make([]Row, 0, len(engines)),
		Toolbar: []Action{},
	}
	for _, e := range engines {
		t.Rows = append(t.Rows, NewRow(m, e))
	}
	if manage {
		t.Toolbar = append(t.Toolbar, AddEngineAction)
	}
	return t
}

// NewRow renders one engine as a table row.
func NewRow(m models.Manager, e *models.Engine) Row {
	p := e.Properties()
	row := Row{
		ID:  m.RowID(e.ID()),
		OID: e.ID(),
		Cells: map[string]string{
			"name": p.Name,
			"dsn":  e.RedactedDSN(),
			"pool": poolCell(p),
			"echo": shared.BoolString(p.Echo),
		},
		Actions: []string{"clone"},
	}

	if e.Static() {
		row.ReadOnly = true
		return row
	}

	row.Href = "properties"
	row.Actions = append(row.Actions, "trash")
	return row
}

func poolCell(p models.EngineProperties) string {
	if !p.UsePool {
		return "no pool"
	}
	size := "unlimited"
	if p.PoolSize > 0 {
		size = fmt.Sprintf("%d", p.PoolSize)
	}
	return fmt.Sprintf("%s / %ds", size, p.PoolTimeout)
}
