// package formatter provides functions to export engine configurations to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/desertthunder/alchemy/internal/models"
	"github.com/desertthunder/alchemy/internal/shared"
)

// Format is an export format.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "txt"
	JSON     Format = "json"
)

// ParseFormat maps a format name or file extension to a [Format].
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

// EngineExport is a snapshot of the engines of a manager. DSN passwords are always redacted.
type EngineExport struct {
	Manager    models.Manager      `json:"manager"`
	ExportedAt time.Time           `json:"exported_at"`
	Engines    []models.EngineView `json:"engines"`
}

// NewEngineExport snapshots engines.
func NewEngineExport(m models.Manager, engines []*models.Engine) *EngineExport {
	views := make([]models.EngineView, 0, len(engines))
	for _, e := range engines {
		views = append(views, e.View())
	}
	return &EngineExport{Manager: m, ExportedAt: time.Now().UTC(), Engines: views}
}

var csvHeaders = []string{"ID", "Name", "Driver", "DSN", "Echo", "Use Pool", "Pool Size", "Pool Recycle", "Pool Timeout", "Echo Pool", "Static"}

// ExportToCSV converts an EngineExport to CSV format with one row per engine
func ExportToCSV(export *EngineExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range export.Engines {
		record := []string{
			e.ID,
			e.Name,
			e.Driver,
			e.DSN,
			strconv.FormatBool(e.Echo),
			strconv.FormatBool(e.UsePool),
			strconv.Itoa(e.PoolSize),
			strconv.Itoa(e.PoolRecycle),
			strconv.Itoa(e.PoolTimeout),
			strconv.FormatBool(e.EchoPool),
			strconv.FormatBool(e.Static),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts an EngineExport to a Markdown document with a properties table
func ExportToMarkdown(export *EngineExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Manager.Label)
	fmt.Fprintf(&buf, "**Engines**: %d\n", len(export.Engines))
	fmt.Fprintf(&buf, "**Exported**: %s\n\n", export.ExportedAt.Format(time.RFC3339))

	if len(export.Engines) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| Name | Driver | DSN | Echo | Pool | Recycle | Timeout |\n")
	buf.WriteString("|------|--------|-----|------|------|---------|---------|\n")
	for _, e := range export.Engines {
		name := e.Name
		if e.Static {
			name += " *(static)*"
		}
		fmt.Fprintf(&buf, "| %s | %s | `%s` | %s | %s | %d | %d |\n",
			name, e.Driver, e.DSN, shared.BoolString(e.Echo), PoolSummary(e), e.PoolRecycle, e.PoolTimeout)
	}

	return buf.Bytes(), nil
}

// ExportToText converts an EngineExport to an aligned plain text table
func ExportToText(export *EngineExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Manager: %s\n", export.Manager.Label)
	fmt.Fprintf(&buf, "Engines: %d\n\n", len(export.Engines))

	if err := RenderTable(&buf, export.Engines); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportToJSON converts an EngineExport to indented JSON
func ExportToJSON(export *EngineExport) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Export renders export in the given format.
func Export(export *EngineExport, format Format) ([]byte, error) {
	switch format {
	case CSV:
		return ExportToCSV(export)
	case Markdown:
		return ExportToMarkdown(export)
	case Text:
		return ExportToText(export)
	case JSON:
		return ExportToJSON(export)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport writes export to path, creating parent directories as needed.
//
// The format is taken from the path extension when format is empty.
func WriteExport(export *EngineExport, path string, format Format) (Format, error) {
	if format == "" {
		f, err := ParseFormat(filepath.Ext(path))
		if err != nil {
			return "", err
		}
		format = f
	}

	data, err := Export(export, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return format, nil
}

// RenderTable writes engines as an ASCII table.
func RenderTable(w io.Writer, engines []models.EngineView) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Driver", "DSN", "Echo", "Pool", "Static"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, e := range engines {
		table.Append([]string{e.Name, e.Driver, e.DSN, shared.BoolString(e.Echo), PoolSummary(e), shared.BoolString(e.Static)})
	}

	table.Render()
	return nil
}

// RenderDetails writes the properties of one engine as a two column table.
func RenderDetails(w io.Writer, e models.EngineView) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})

	table.AppendBulk([][]string{
		{"ID", e.ID},
		{"Name", e.Name},
		{"Driver", e.Driver},
		{"DSN", e.DSN},
		{"Echo", shared.BoolString(e.Echo)},
		{"Use pool", shared.BoolString(e.UsePool)},
		{"Pool size", strconv.Itoa(e.PoolSize)},
		{"Pool recycle", strconv.Itoa(e.PoolRecycle)},
		{"Pool timeout", strconv.Itoa(e.PoolTimeout)},
		{"Echo pool", shared.BoolString(e.EchoPool)},
		{"Static", shared.BoolString(e.Static)},
	})
	table.Render()
}

// PoolSummary describes the pool settings of an engine in a few words.
func PoolSummary(e models.EngineView) string {
	if !e.UsePool {
		return "no pool"
	}
	if e.PoolSize == 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d conns", e.PoolSize)
}
