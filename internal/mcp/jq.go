package mcp

import (
	"context"
	"fmt"
	"net/url"

	"github.com/itchyny/gojq"
	"github.com/macrat/sitewatch/internal/probe"
)

// jqParseURL is the parse_url filter.
// It understands the opaque form of site URLs like "ping:example.com".
func jqParseURL(x any, _ []any) any {
	str, ok := x.(string)
	if !ok {
		return fmt.Errorf("parse_url/0: expected a string but got %T (%v)", x, x)
	}
	u, err := url.Parse(str)
	if err != nil {
		return fmt.Errorf("parse_url/0: failed to parse URL: %v", err)
	}

	if u.Opaque != "" && u.Host == "" {
		u.Host = u.Opaque
		u.Opaque = ""
	}

	username := ""
	if u.User != nil {
		username = u.User.Username()
	}

	queries := map[string]any{}
	for key, vals := range u.Query() {
		xs := make([]any, len(vals))
		for i, v := range vals {
			xs[i] = v
		}
		queries[key] = xs
	}

	scheme, _, variant := probe.SplitScheme(u.Scheme)

	return map[string]any{
		"scheme":   scheme,
		"variant":  variant,
		"username": username,
		"hostname": u.Hostname(),
		"port":     u.Port(),
		"path":     u.Path,
		"queries":  queries,
		"fragment": u.Fragment,
	}
}

// Query is a compiled jq program.
type Query struct {
	code *gojq.Code
}

// ParseJQ compiles a jq program. An empty string means ".".
func ParseJQ(query string) (Query, error) {
	if query == "" {
		query = "."
	}

	q, err := gojq.Parse(query)
	if err != nil {
		return Query{}, err
	}

	c, err := gojq.Compile(q, gojq.WithFunction("parse_url", 0, 0, jqParseURL))
	if err != nil {
		return Query{}, err
	}

	return Query{code: c}, nil
}

// Output is the result of a query tool.
type Output struct {
	Result any `json:"result" jsonschema:"The result of the query."`
}

// Run executes the program.
// A program that yields a single value gives the value itself, otherwise an array of values.
func (q Query) Run(ctx context.Context, input any) (Output, error) {
	outputs := []any{}

	iter := q.code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}

		if halt, ok := v.(*gojq.HaltError); ok {
			if halt.ExitCode() != 0 {
				outputs = append(outputs, map[string]any{
					"status":    "halt_error",
					"exit_code": halt.ExitCode(),
					"value":     halt.Value(),
				})
			}
			break
		}
		if err, ok := v.(error); ok {
			return Output{}, err
		}

		outputs = append(outputs, v)
	}

	if len(outputs) == 1 {
		return Output{Result: outputs[0]}, nil
	}
	return Output{Result: outputs}, nil
}
