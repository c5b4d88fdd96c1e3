package render

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// DefaultLocale is the canonical locale.
const DefaultLocale = "en"

// Builtin returns every embedded locale table, sorted by code.
func Builtin() ([]Table, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	var tables []Table
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := localeFS.ReadFile(path.Join("locales", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", e.Name(), err)
		}
		t, err := DecodeTable(data)
		if err != nil {
			return nil, fmt.Errorf("locale %s: %w", e.Name(), err)
		}
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Code < tables[j].Code })
	return tables, nil
}

// DecodeTable parses and validates one YAML locale table.
func DecodeTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("decode locale table: %w", err)
	}
	t.Code = normalizeCode(t.Code)
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// Supported filters tables down to the given locale codes. An empty list keeps all.
// Unknown codes are an error so a typo in configuration surfaces at load time.
func Supported(tables []Table, codes []string) ([]Table, error) {
	if len(codes) == 0 {
		return tables, nil
	}
	byCode := make(map[string]Table, len(tables))
	for _, t := range tables {
		byCode[t.Code] = t
	}
	out := make([]Table, 0, len(codes))
	for _, c := range codes {
		t, ok := byCode[normalizeCode(c)]
		if !ok {
			return nil, fmt.Errorf("supported locale %q has no table", c)
		}
		out = append(out, t)
	}
	return out, nil
}

// normalizeCode lowercases and maps "pt_BR" to "pt-br".
func normalizeCode(code string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(code)), "_", "-")
}
