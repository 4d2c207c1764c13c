package models

// ManageSQLEnginesPermission guards every operation that changes the engines container.
const ManageSQLEnginesPermission = "manage_sql_engines"

// EnginesTableID is the admin table rendering the engines container.
const EnginesTableID = "alchemy-engines-table"

// Manager describes the container holding the engine utilities of a site.
type Manager struct {
	Label   string `json:"label"`
	TableID string `json:"table_id"`
}

// NewManager creates a [Manager] with the given label rendered into [EnginesTableID].
func NewManager(label string) Manager {
	if label == "" {
		label = "SQL engines"
	}
	return Manager{Label: label, TableID: EnginesTableID}
}

// RowID returns the table row identifier for an engine id.
func (m Manager) RowID(engineID string) string {
	return m.TableID + "-row-" + engineID
}
