// Package rules generates the Prometheus recording and alert rules for
// stock-monitor as Prometheus Operator PrometheusRule resources.
package rules

import "iter"

const (
	apiVersion = "monitoring.coreos.com/v1"
	kind       = "PrometheusRule"
)

// selectorLabels are matched by the cluster Prometheus' ruleSelector.
var selectorLabels = map[string]string{"prometheus": "system-rules-prometheus"}

// Severity is the value of an alert's severity label.
type Severity string

// Severities used by Alertmanager routing.
const (
	Critical Severity = "critical"
	Warning  Severity = "warning"
)

// PrometheusRule is the PrometheusRule custom resource.
type PrometheusRule struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Metadata   Metadata `yaml:"metadata"`
	Spec       Spec     `yaml:"spec"`
}

// Metadata is the subset of object metadata the resources set.
type Metadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// Spec holds the rule groups.
type Spec struct {
	Groups []RuleGroup `yaml:"groups"`
}

// RuleGroup is a named collection of rules evaluated together.
type RuleGroup struct {
	Name     string `yaml:"name"`
	Interval string `yaml:"interval,omitempty"`
	Rules    []Rule `yaml:"rules"`
}

// Rule is a recording rule when Record is set and an alert when Alert is.
type Rule struct {
	Record      string            `yaml:"record,omitempty"`
	Alert       string            `yaml:"alert,omitempty"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
}

// Name is the record or alert name.
func (r Rule) Name() string {
	if r.Record != "" {
		return r.Record
	}
	return r.Alert
}

// All yields every rule with the name of its group, in file order.
func (p PrometheusRule) All() iter.Seq2[string, Rule] {
	return func(yield func(string, Rule) bool) {
		for _, g := range p.Spec.Groups {
			for _, r := range g.Rules {
				if !yield(g.Name, r) {
					return
				}
			}
		}
	}
}

func resource(name string, groups ...RuleGroup) PrometheusRule {
	return PrometheusRule{
		APIVersion: apiVersion,
		Kind:       kind,
		Metadata:   Metadata{Name: name, Labels: selectorLabels},
		Spec:       Spec{Groups: groups},
	}
}

func group(name string, rules ...Rule) RuleGroup {
	return RuleGroup{Name: name, Rules: rules}
}

func record(name, expr string) Rule {
	return Rule{Record: name, Expr: expr}
}

// alert builds an alerting rule. forDur is a Prometheus duration such as
// "10m"; "0m" fires on the first failing evaluation.
func alert(name string, sev Severity, forDur, expr, summary, description string) Rule {
	return Rule{
		Alert:  name,
		Expr:   expr,
		For:    forDur,
		Labels: map[string]string{"severity": string(sev)},
		Annotations: map[string]string{
			"summary":     summary,
			"description": description,
		},
	}
}
