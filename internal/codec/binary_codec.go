package codec

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/vitebski/mysql-table-syncer/internal/connector"
	"github.com/vitebski/mysql-table-syncer/pkg/models"
)

// Artifact format constants, matching the LOAD DATA defaults so the import
// side needs no FIELDS/LINES clauses.
const (
	FieldDelimiter = '\t'
	LineTerminator = '\n'
	EscapeChar     = '\\'
	// NullField marks SQL NULL in the artifact.
	NullField = "\\N"
)

// binaryTypes is the fixed set of declared MySQL types whose values can carry
// arbitrary bytes and therefore cannot travel through the delimited artifact
// as escaped text.
var binaryTypes = map[string]bool{
	"blob":       true,
	"tinyblob":   true,
	"mediumblob": true,
	"longblob":   true,
	"binary":     true,
	"varbinary":  true,
	"bit":        true,
}

// IsBinaryType reports whether a declared column type stores arbitrary bytes.
func IsBinaryType(dataType string) bool {
	return binaryTypes[strings.ToLower(dataType)]
}

// TableCodec knows, per column of one table, whether the value must be
// hex-encoded for transport and how to bind it at load time. Columns are held
// in strict ordinal order: LOAD DATA binds fields to columns by position.
type TableCodec struct {
	Columns []models.Column
	binary  []bool
}

// NewTableCodec builds the codec for one table's columns.
func NewTableCodec(columns []models.Column) (*TableCodec, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("no columns to encode")
	}

	ordered := make([]models.Column, len(columns))
	copy(ordered, columns)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].OrdinalPosition < ordered[j].OrdinalPosition
	})

	binary := make([]bool, len(ordered))
	for i, col := range ordered {
		binary[i] = IsBinaryType(col.DataType)
	}

	return &TableCodec{Columns: ordered, binary: binary}, nil
}

// HasBinary reports whether any column needs the hex staging path.
func (c *TableCodec) HasBinary() bool {
	for _, b := range c.binary {
		if b {
			return true
		}
	}
	return false
}

// ColumnNames returns the quoted column list in ordinal order, for the
// export SELECT.
func (c *TableCodec) ColumnNames() []string {
	names := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		names[i] = connector.QuoteIdentifier(col.Name)
	}
	return names
}

// LoadColumnList returns the LOAD DATA column list. Text columns bind
// directly; binary columns bind to a positional hex staging variable that
// the SET clause decodes. Loading binary bytes directly would let embedded
// control bytes corrupt the delimiter scheme.
func (c *TableCodec) LoadColumnList() string {
	items := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		if c.binary[i] {
			items[i] = hexVariable(i)
		} else {
			items[i] = connector.QuoteIdentifier(col.Name)
		}
	}
	return "(" + strings.Join(items, ", ") + ")"
}

// LoadSetClause returns the SET clause decoding the hex staging variables
// into their real columns, or an empty string when the table has no binary
// columns.
func (c *TableCodec) LoadSetClause() string {
	var assignments []string
	for i, col := range c.Columns {
		if c.binary[i] {
			assignments = append(assignments,
				fmt.Sprintf("%s = UNHEX(%s)", connector.QuoteIdentifier(col.Name), hexVariable(i)))
		}
	}
	if len(assignments) == 0 {
		return ""
	}
	return "SET " + strings.Join(assignments, ", ")
}

// EncodeField renders one column value for the artifact. NULL becomes \N,
// binary values are hex-encoded (the hex alphabet cannot collide with the
// delimiter or escape characters), text values are escaped.
func (c *TableCodec) EncodeField(i int, value []byte, null bool) string {
	if null {
		return NullField
	}
	if c.binary[i] {
		return hex.EncodeToString(value)
	}
	return EscapeField(value)
}

// EscapeField protects a text value for the delimited artifact: the escape
// character itself, the field delimiter, the line terminator, carriage
// returns and NUL bytes are escaped the way LOAD DATA's default ESCAPED BY
// '\\' convention expects.
func EscapeField(value []byte) string {
	var sb strings.Builder
	sb.Grow(len(value))
	for _, b := range value {
		switch b {
		case EscapeChar:
			sb.WriteString(`\\`)
		case FieldDelimiter:
			sb.WriteString(`\t`)
		case LineTerminator:
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case 0x00:
			sb.WriteString(`\0`)
		default:
			sb.WriteByte(b)
		}
	}
	return sb.String()
}

// UnescapeField reverses EscapeField.
func UnescapeField(field string) ([]byte, error) {
	out := make([]byte, 0, len(field))
	for i := 0; i < len(field); i++ {
		b := field[i]
		if b != EscapeChar {
			out = append(out, b)
			continue
		}
		i++
		if i >= len(field) {
			return nil, fmt.Errorf("dangling escape character at end of field")
		}
		switch field[i] {
		case '\\':
			out = append(out, '\\')
		case 't':
			out = append(out, '\t')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case '0':
			out = append(out, 0x00)
		default:
			// LOAD DATA treats \<other> as the literal character.
			out = append(out, field[i])
		}
	}
	return out, nil
}

// hexVariable names the positional staging variable for column index i.
// Positional names avoid quoting concerns in user variable names.
func hexVariable(i int) string {
	return fmt.Sprintf("@hex_%d", i+1)
}
