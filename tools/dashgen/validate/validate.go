// Package validate checks generated dashboards and rules: every PromQL
// expression must parse and reference only known metric names.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/stock-monitor/tools/dashgen/rules"
)

// Result collects validation findings.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were found.
func (r *Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Expr parses expr and checks its selectors against known.
func Expr(expr string, known map[string]bool) []string {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return []string{fmt.Sprintf("parsing %q: %v", expr, err)}
	}

	var problems []string
	parser.Inspect(node, func(n parser.Node, _ []parser.Node) error {
		vs, ok := n.(*parser.VectorSelector)
		if !ok || vs.Name == "" {
			return nil
		}
		if !known[vs.Name] {
			problems = append(problems, fmt.Sprintf("unknown metric %q in %q", vs.Name, expr))
		}
		return nil
	})
	return problems
}

// Dashboard walks the JSON form of a built dashboard and validates every
// query expression. Panels without targets produce a warning.
func Dashboard(dash any, known map[string]bool) Result {
	var res Result

	data, err := json.Marshal(dash)
	if err != nil {
		res.errorf("marshaling dashboard: %v", err)
		return res
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		res.errorf("decoding dashboard: %v", err)
		return res
	}

	panels, _ := doc["panels"].([]any)
	for _, p := range panels {
		walkPanel(p, known, &res)
	}
	return res
}

func walkPanel(p any, known map[string]bool, res *Result) {
	panel, ok := p.(map[string]any)
	if !ok {
		return
	}
	title, _ := panel["title"].(string)

	if panel["type"] == "row" {
		children, _ := panel["panels"].([]any)
		for _, c := range children {
			walkPanel(c, known, res)
		}
		return
	}

	targets, _ := panel["targets"].([]any)
	if len(targets) == 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("panel %q has no targets", title))
		return
	}
	for _, t := range targets {
		target, _ := t.(map[string]any)
		expr, _ := target["expr"].(string)
		if expr == "" {
			res.errorf("panel %q has a target without expr", title)
			continue
		}
		for _, problem := range Expr(expr, known) {
			res.errorf("panel %q: %s", title, problem)
		}
	}
}

// Rules validates every rule expression in cr. Recording rule names are
// added to known so later rules and dashboards may reference them.
func Rules(cr rules.PrometheusRule, known map[string]bool) Result {
	var res Result
	for group, r := range cr.All() {
		name := r.Name()
		if name == "" {
			res.errorf("group %q has a rule with neither record nor alert", group)
		}
		if r.Record != "" && r.Alert != "" {
			res.errorf("rule %q sets both record and alert", name)
		}
		for _, problem := range Expr(r.Expr, known) {
			res.errorf("rule %q: %s", name, problem)
		}
		if r.Record != "" {
			known[r.Record] = true
		}
	}
	return res
}
