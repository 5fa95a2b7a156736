package clipboard

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/sjson"
)

// Format names.
const (
	FormatTSV  = "text/plain"
	FormatCSV  = "text/csv"
	FormatHTML = "text/html"
	FormatJSON = "application/json"
)

// DefaultFormats returns the formats used when the host configures none.
// Tab-separated text pastes cleanly into common spreadsheet tools.
func DefaultFormats() []Format {
	return []Format{TSV()}
}

// StandardFormats returns every built-in format.
func StandardFormats() []Format {
	return []Format{TSV(), CSV(), HTML(), JSON()}
}

// FormatsByName resolves configured format names to built-in formats.
// Unknown names are reported as an error.
func FormatsByName(names []string) ([]Format, error) {
	if len(names) == 0 {
		return DefaultFormats(), nil
	}
	byName := make(map[string]Format)
	for _, f := range StandardFormats() {
		byName[f.Name] = f
	}
	aliases := map[string]string{"tsv": FormatTSV, "csv": FormatCSV, "html": FormatHTML, "json": FormatJSON}

	out := make([]Format, 0, len(names))
	for _, n := range names {
		if a, ok := aliases[strings.ToLower(n)]; ok {
			n = a
		}
		f, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown clipboard format %q", n)
		}
		out = append(out, f)
	}
	return out, nil
}

// TSV encodes rows as tab-separated lines. Fields holding a tab, newline or
// double quote are quoted the way spreadsheet tools expect.
func TSV() Format {
	return Format{
		Name: FormatTSV,
		Encode: func(m Matrix) (Payload, error) {
			var b strings.Builder
			for i, row := range m {
				if i > 0 {
					b.WriteByte('\n')
				}
				for j, v := range row {
					if j > 0 {
						b.WriteByte('\t')
					}
					b.WriteString(quoteTSV(FormatValue(v)))
				}
			}
			return Text(b.String()), nil
		},
	}
}

func quoteTSV(s string) string {
	if !strings.ContainsAny(s, "\t\n\r\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// CSV encodes rows as RFC 4180 comma-separated text.
func CSV() Format {
	return Format{
		Name: FormatCSV,
		Encode: func(m Matrix) (Payload, error) {
			var buf bytes.Buffer
			w := csv.NewWriter(&buf)
			for _, row := range m {
				rec := make([]string, len(row))
				for j, v := range row {
					rec[j] = FormatValue(v)
				}
				if err := w.Write(rec); err != nil {
					return nil, err
				}
			}
			w.Flush()
			if err := w.Error(); err != nil {
				return nil, err
			}
			return Text(buf.String()), nil
		},
	}
}

// HTML encodes rows as a bare <table>, which rich-text targets accept.
func HTML() Format {
	return Format{
		Name: FormatHTML,
		Encode: func(m Matrix) (Payload, error) {
			var b strings.Builder
			b.WriteString("<table>")
			for _, row := range m {
				b.WriteString("<tr>")
				for _, v := range row {
					b.WriteString("<td>")
					b.WriteString(html.EscapeString(FormatValue(v)))
					b.WriteString("</td>")
				}
				b.WriteString("</tr>")
			}
			b.WriteString("</table>")
			return Text(b.String()), nil
		},
	}
}

// JSON encodes rows as an array of row arrays, keeping numbers and booleans
// typed.
func JSON() Format {
	return Format{
		Name: FormatJSON,
		Encode: func(m Matrix) (Payload, error) {
			out := "[]"
			for i, row := range m {
				line := "[]"
				for j, v := range row {
					var err error
					line, err = sjson.Set(line, strconv.Itoa(j), jsonValue(v))
					if err != nil {
						return nil, fmt.Errorf("row %d: %w", i, err)
					}
				}
				var err error
				out, err = sjson.SetRaw(out, strconv.Itoa(i), line)
				if err != nil {
					return nil, fmt.Errorf("row %d: %w", i, err)
				}
			}
			return Blob{MediaType: FormatJSON, Data: []byte(out)}, nil
		},
	}
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return v
	}
}

// FormatValue renders a cell value as plain text. nil renders empty.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// DecodeTSV splits tab-separated clipboard text into rows of fields,
// honoring quoted fields written by TSV or by spreadsheet tools.
func DecodeTSV(s string) [][]string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}

	var (
		rows  [][]string
		row   []string
		field strings.Builder
		quote bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote && c == '"' && i+1 < len(s) && s[i+1] == '"':
			field.WriteByte('"')
			i++
		case quote && c == '"':
			quote = false
		case !quote && c == '"' && field.Len() == 0:
			quote = true
		case !quote && c == '\t':
			row = append(row, field.String())
			field.Reset()
		case !quote && c == '\n':
			row = append(row, field.String())
			field.Reset()
			rows = append(rows, row)
			row = nil
		default:
			field.WriteByte(c)
		}
	}
	row = append(row, field.String())
	return append(rows, row)
}
