package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/stock-monitor/tools/dashgen/dashboards"
	"github.com/donaldgifford/stock-monitor/tools/dashgen/rules"
	"github.com/donaldgifford/stock-monitor/tools/dashgen/validate"
)

const generatedHeader = "# Code generated by tools/dashgen. DO NOT EDIT.\n"

func main() {
	validateOnly := flag.Bool("validate", false, "validate generated artifacts without writing files")
	outputDir := flag.String("output", "", "override output directory")
	flag.Parse()

	cfg := DefaultConfig()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *validateOnly); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// artifact is one generated file relative to the output directory.
type artifact struct {
	path string
	data []byte
}

func run(cfg Config, validateOnly bool) error {
	artifacts, err := generate(cfg)
	if err != nil {
		return err
	}

	if validateOnly {
		fmt.Println("validation passed")
		return nil
	}

	for _, a := range artifacts {
		dst := filepath.Join(cfg.OutputDir, a.path)
		if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
		}
		if err := os.WriteFile(dst, a.data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", dst, err)
		}
		fmt.Printf("dashgen: wrote %s\n", dst)
	}
	return nil
}

// generate builds and validates every enabled artifact.
func generate(cfg Config) ([]artifact, error) {
	known := maps.Clone(KnownMetrics)
	var out []artifact

	if cfg.RulesEnabled {
		for _, r := range []struct {
			file string
			cr   rules.PrometheusRule
		}{
			{file: "stockmon-recording-rules.yaml", cr: rules.RecordingRules()},
			{file: "stockmon-alerts.yaml", cr: rules.AlertRules()},
		} {
			if res := validate.Rules(r.cr, known); !res.Ok() {
				return nil, fmt.Errorf("%s: %s", r.file, strings.Join(res.Errors, "; "))
			}
			data, err := yaml.Marshal(r.cr)
			if err != nil {
				return nil, fmt.Errorf("marshaling %s: %w", r.file, err)
			}
			out = append(out, artifact{
				path: filepath.Join("prometheus", r.file),
				data: append([]byte(generatedHeader), data...),
			})
		}
	}

	if cfg.DashboardEnabled {
		dash, err := dashboards.BuildOverview().Build()
		if err != nil {
			return nil, fmt.Errorf("building overview dashboard: %w", err)
		}
		if res := validate.Dashboard(dash, known); !res.Ok() {
			return nil, errors.New("overview dashboard: " + strings.Join(res.Errors, "; "))
		}
		data, err := json.MarshalIndent(dash, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling dashboard: %w", err)
		}
		out = append(out, artifact{
			path: filepath.Join("grafana", "data", "stockmon-overview.json"),
			data: append(data, '\n'),
		})
	}

	return out, nil
}
