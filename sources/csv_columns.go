package sources

import (
	"fmt"
	"strings"
)

type csvColumns map[string]int

func (c csvColumns) Get(record []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(record) {
		return ""
	}

	return record[idx]
}

func newCSVColumns(header []string, required ...string) (csvColumns, error) {
	rv := make(csvColumns, len(header))

	for i, v := range header {
		v = strings.TrimPrefix(v, "\ufeff")
		rv[strings.ToLower(strings.TrimSpace(v))] = i
	}

	for _, v := range required {
		if _, ok := rv[v]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, v)
		}
	}

	return rv, nil
}
