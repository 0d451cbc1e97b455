package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/docker/go-units"
	"github.com/ethpandaops/netperfoor/pkg/affinity"
	"github.com/ethpandaops/netperfoor/pkg/config"
	"github.com/ethpandaops/netperfoor/pkg/flows"
	"github.com/ethpandaops/netperfoor/pkg/results"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Plan output formats.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var planOutput string

var planCmd = &cobra.Command{
	Use:   "plan [config...]",
	Short: "Generate the measurement plan",
	Long: `Load each config, expand its topology and parameters into flow groups and
print the resulting measurement plan followed by the result report.

With --output json or yaml a single document is written to stdout: one entry
per config holding its plan and its report at the configured threshold. Logs
go to stderr in that case.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVarP(&planOutput, "output", "o", outputTable,
		"plan output format (table, json, yaml)")
}

// plannedRun is the outcome of planning one config file.
type plannedRun struct {
	path    string
	cfg     *config.Config
	plan    *flows.Plan
	results *results.Collection
}

func runPlan(cmd *cobra.Command, args []string) error {
	switch planOutput {
	case outputTable:
	case outputJSON, outputYAML:
		// Keep stdout a single parseable document.
		log.SetOutput(os.Stderr)
	default:
		return fmt.Errorf("unknown output format %q", planOutput)
	}

	paths, err := configPaths(args)
	if err != nil {
		return err
	}

	cfgs, err := loadConfigs(paths)
	if err != nil {
		return err
	}

	if err := applyConfigLogLevel(cmd, cfgs[0].Global.LogLevel); err != nil {
		return err
	}

	runs := make([]*plannedRun, len(paths))

	var g errgroup.Group

	g.SetLimit(runtime.NumCPU())

	for i, path := range paths {
		g.Go(func() error {
			run, err := planConfig(log.WithField("config", path), path, cfgs[i])
			if err != nil {
				return fmt.Errorf("planning %s: %w", path, err)
			}

			runs[i] = run

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if planOutput != outputTable {
		return writeDocuments(out, runs, planOutput)
	}

	for _, run := range runs {
		renderPlanTable(out, run.plan)

		threshold, err := run.cfg.Report.ThresholdLevel()
		if err != nil {
			return err
		}

		if err := results.Render(out, run.results, threshold, run.cfg.Report.Format); err != nil {
			return fmt.Errorf("rendering report for %s: %w", run.path, err)
		}
	}

	return nil
}

// loadConfigs loads and validates every path, in order.
func loadConfigs(paths []string) ([]*config.Config, error) {
	cfgs := make([]*config.Config, len(paths))

	var g errgroup.Group

	for i, path := range paths {
		g.Go(func() error {
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config %s: %w", path, err)
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("validating config %s: %w", path, err)
			}

			cfgs[i] = cfg

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return cfgs, nil
}

// planConfig generates the plan of one config and records its outcome.
func planConfig(log logrus.FieldLogger, path string, cfg *config.Config) (*plannedRun, error) {
	pairs, err := cfg.Topology.EndpointPairs()
	if err != nil {
		return nil, fmt.Errorf("building endpoint pairs: %w", err)
	}

	gen := flows.NewGenerator(log, cfg.Params.FlowParams(), pairs)
	collection := results.NewCollection(log)

	plan, err := flows.BuildPlan(gen, cfg.Params.NetPerfTool, cfg.Params.PerfIterations)
	if err != nil {
		return nil, err
	}

	for i, m := range plan.Measurements {
		collection.Add(results.NewResult(true,
			results.WithDescription(fmt.Sprintf("Planned %s measurement %d: %d flows", m.Tool, i, len(m.Flows))),
			results.WithLevel(results.LevelNormal),
			results.WithData(m.Flows),
		))
	}

	collection.Add(results.NewResult(true,
		results.WithDescription(fmt.Sprintf("Planned %d measurements with %d flows, %d iterations each",
			len(plan.Measurements), plan.FlowCount(), plan.Iterations)),
		results.WithData(cfg.Params.FlowParams()),
	))

	log.WithFields(logrus.Fields{
		"measurements": len(plan.Measurements),
		"flows":        plan.FlowCount(),
		"tool":         plan.Tool,
	}).Info("Plan generated")

	return &plannedRun{
		path:    path,
		cfg:     cfg,
		plan:    plan,
		results: collection,
	}, nil
}

// planDocument is the machine readable outcome of one config.
type planDocument struct {
	Config string          `json:"config" yaml:"config"`
	Plan   *flows.Plan     `json:"plan" yaml:"plan"`
	Report *results.Report `json:"report" yaml:"report"`
}

func writeDocuments(w io.Writer, runs []*plannedRun, format string) error {
	docs := make([]planDocument, 0, len(runs))

	for _, run := range runs {
		threshold, err := run.cfg.Report.ThresholdLevel()
		if err != nil {
			return err
		}

		docs = append(docs, planDocument{
			Config: run.path,
			Plan:   run.plan,
			Report: results.NewReport(run.results, threshold),
		})
	}

	return encodeDocument(w, docs, format)
}

// encodeDocument writes v as YAML, or as indented JSON for any other format.
func encodeDocument(w io.Writer, v any, format string) error {
	if format == outputYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}

		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}

	return nil
}

func renderPlanTable(w io.Writer, plan *flows.Plan) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s plan, %d iterations", plan.Tool, plan.Iterations))
	t.AppendHeader(table.Row{"#", "TEST", "GENERATOR", "RECEIVER", "PORT", "SIZE", "STREAMS", "CPUS"})

	for i, m := range plan.Measurements {
		for _, f := range m.Flows {
			t.AppendRow(table.Row{
				i,
				f.Type,
				fmt.Sprintf("%s.%s (%s)", f.Generator, f.GeneratorNIC, f.GeneratorBind),
				fmt.Sprintf("%s.%s (%s)", f.Receiver, f.ReceiverNIC, f.ReceiverBind),
				f.ReceiverPort,
				units.BytesSize(float64(f.MsgSize)),
				f.ParallelStreams,
				affinity.FormatCPUList(f.CPUPin),
			})
		}

		t.AppendSeparator()
	}

	t.AppendFooter(table.Row{"", "", "", "", "", "", "FLOWS", plan.FlowCount()})
	t.Render()
}
