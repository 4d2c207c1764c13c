package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/alchemy/internal/formatter"
	"github.com/desertthunder/alchemy/internal/models"
)

var _ list.Item = engineItem{}

// engineItem wraps [models.EngineView] to implement [list.Item].
type engineItem struct {
	engine models.EngineView
}

func (i engineItem) FilterValue() string { return i.engine.Name }
func (i engineItem) Title() string {
	if i.engine.Static {
		return i.engine.Name + " (static)"
	}
	return i.engine.Name
}
func (i engineItem) Description() string {
	return fmt.Sprintf("%s • %s", i.engine.DSN, formatter.PoolSummary(i.engine))
}
