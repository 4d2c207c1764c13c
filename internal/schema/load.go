package schema

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/desertthunder/alchemy/internal/shared"
)

// declarations is the TOML layout of a schema file:
//
//	[[tables]]
//	name = "items"
//	columns = [
//	  { name = "id", type = "INTEGER", primary_key = true },
//	  { name = "label", type = "TEXT", not_null = true },
//	]
type declarations struct {
	Tables []Table `toml:"tables"`
}

// Load registers every table declared in TOML data, in file order.
func (b *Base) Load(data []byte) error {
	var decl declarations
	if err := toml.Unmarshal(data, &decl); err != nil {
		return fmt.Errorf("%w: failed to parse schema: %v", shared.ErrInvalidInput, err)
	}
	for _, t := range decl.Tables {
		if err := b.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile registers every table declared in the TOML file at path.
func (b *Base) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	return b.Load(data)
}
