package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	harness "github.com/wippyai/function-harness"
	"github.com/wippyai/function-harness/engine"
	"github.com/wippyai/function-harness/report"
	"github.com/wippyai/function-harness/runner"
	"github.com/wippyai/function-harness/validate"
)

func main() {
	var (
		functionFile = flag.String("function", "", "Path to the function wasm file")
		inputFile    = flag.String("input", "", "Path to the input payload (default stdin)")
		codecName    = flag.String("codec", "json", "Payload codec: json, messagepack or raw")
		exportName   = flag.String("export", "", "Exported function to invoke (default _start)")
		schemaFile   = flag.String("schema", "", "Path to a JSON Schema for output validation")
		queryFile    = flag.String("query", "", "Path to a query source scanned for scale directives")
		limitsFile   = flag.String("limits", "", "Path to a YAML resource limits profile")
		jsonOut      = flag.Bool("json", false, "Emit the report as JSON")
		strict       = flag.Bool("strict", false, "Fail the run on output schema violations")
		verbose      = flag.Bool("v", false, "Enable debug logging")
	)
	flag.Parse()

	if *functionFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -function <file.wasm> [-input payload.json] [-codec json|messagepack|raw]")
		fmt.Fprintln(os.Stderr, "           [-export name] [-schema output.schema.json] [-query query.graphql]")
		fmt.Fprintln(os.Stderr, "           [-limits limits.yaml] [-json] [-strict] [-v]")
		os.Exit(report.ExitInternalError)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			engine.SetLogger(logger)
			runner.SetLogger(logger)
		}
	}

	rep, err := run(*functionFile, *inputFile, *codecName, *exportName, *schemaFile, *queryFile, *limitsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(report.ExitInternalError)
	}

	if *jsonOut {
		out, err := rep.EncodeJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(report.ExitInternalError)
		}
		fmt.Println(string(out))
	} else {
		fmt.Print(report.Render(rep))
	}
	os.Exit(rep.ExitCode(*strict))
}

func run(functionFile, inputFile, codecName, exportName, schemaFile, queryFile, limitsFile string) (report.Report, error) {
	ctx := context.Background()

	module, err := os.ReadFile(functionFile)
	if err != nil {
		return report.Report{}, fmt.Errorf("read function: %w", err)
	}

	input, err := readInput(inputFile)
	if err != nil {
		return report.Report{}, err
	}

	codec, err := harness.ParseCodec(codecName)
	if err != nil {
		return report.Report{}, err
	}

	limits, err := loadLimits(limitsFile)
	if err != nil {
		return report.Report{}, err
	}

	var opts runner.Options
	if schemaFile != "" {
		schemaJSON, err := os.ReadFile(schemaFile)
		if err != nil {
			return report.Report{}, fmt.Errorf("read schema: %w", err)
		}
		if opts.Schema, err = validate.Compile(schemaJSON); err != nil {
			return report.Report{}, err
		}
	}
	if queryFile != "" {
		query, err := os.ReadFile(queryFile)
		if err != nil {
			return report.Report{}, fmt.Errorf("read query: %w", err)
		}
		opts.ScaleSource = string(query)
	}

	return runner.Run(ctx, harness.RunRequest{
		Name:   functionFile,
		Module: module,
		Input:  input,
		Limits: limits,
		Codec:  codec,
		Entry:  exportName,
	}, opts)
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// loadLimits reads a YAML limits profile over the defaults, so a
// profile only needs to name the budgets it changes.
func loadLimits(path string) (harness.ResourceLimits, error) {
	limits := harness.DefaultLimits()
	if path == "" {
		return limits, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return limits, fmt.Errorf("read limits: %w", err)
	}
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return limits, fmt.Errorf("parse limits: %w", err)
	}
	return limits, nil
}
