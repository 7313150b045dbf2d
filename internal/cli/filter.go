package cli

import (
	"fmt"

	"github.com/itchyny/gojq"
)

// parseFilter compiles a jq expression. An empty expression yields a nil query.
func parseFilter(expression string) (*gojq.Query, error) {
	if expression == "" {
		return nil, nil
	}
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return query, nil
}

// applyFilter runs query over data. A single result is returned as is;
// several results are collected into a slice.
func applyFilter(data any, query *gojq.Query) (any, error) {
	if query == nil {
		return data, nil
	}

	iter := query.Run(data)
	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("filter error: %w", err)
		}
		results = append(results, v)
	}
	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}
