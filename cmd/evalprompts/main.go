// Command evalprompts runs a spreadsheet of sample requests through the command
// pipeline and records what the model produced.
//
// The input workbook needs a "Prompts" sheet with a header row and the columns
// prompt, invoice context (optional) and expected actions (optional, comma separated).
// Usage: go run ./cmd/evalprompts prompts.xlsx results.xlsx
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"invoicer/internal/config"
	"invoicer/internal/domain"
	"invoicer/internal/engine"
	"invoicer/internal/engine/providers"
	"invoicer/internal/logger"
	"invoicer/internal/parser"
)

const (
	promptsSheet = "Prompts"
	resultsSheet = "Results"
)

var resultsHeader = []interface{}{"Row", "Prompt", "Action", "Data", "Feedback", "Expected", "Match", "Error"}

type promptCase struct {
	row      int
	prompt   string
	context  string
	expected []string
}

type caseResult struct {
	pc       promptCase
	commands []domain.Command
	err      error
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: evalprompts <input.xlsx> <output.xlsx>")
	}
	inPath, outPath := os.Args[1], os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	zlog, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = zlog.Sync() }()

	in, err := excelize.OpenFile(inPath)
	if err != nil {
		return fmt.Errorf("open Excel file: %w", err)
	}
	defer func() { _ = in.Close() }()

	cases, err := readPrompts(in)
	if err != nil {
		return fmt.Errorf("read prompts: %w", err)
	}
	zlog.Info("loaded prompts", zap.Int("count", len(cases)))

	ctx := context.Background()
	providers.RegisterAll()
	backend, err := engine.NewFromConfig(&cfg.Engine, zlog)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	session := engine.NewSession(backend)
	if err := session.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer func() { _ = session.Close() }()

	pipeline := parser.NewPipeline(session)
	results := make([]caseResult, 0, len(cases))
	for _, pc := range cases {
		res, err := pipeline.Run(ctx, pc.prompt, pc.context)
		cr := caseResult{pc: pc, err: err}
		if err == nil {
			cr.commands = res.Commands
		} else {
			zlog.Warn("prompt failed", zap.Int("row", pc.row), zap.Error(err))
		}
		results = append(results, cr)
	}

	out := excelize.NewFile()
	defer func() { _ = out.Close() }()
	if err := writeResults(out, results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	if err := out.SaveAs(outPath); err != nil {
		return fmt.Errorf("save %s: %w", outPath, err)
	}

	matched := 0
	for _, r := range results {
		if r.err == nil && matches(r.pc.expected, r.commands) {
			matched++
		}
	}
	zlog.Info("evaluation finished",
		zap.Int("prompts", len(results)),
		zap.Int("matched", matched),
		zap.String("output", outPath),
	)
	return nil
}

// readPrompts reads the Prompts sheet, skipping the header and blank prompts.
func readPrompts(f *excelize.File) ([]promptCase, error) {
	rows, err := f.GetRows(promptsSheet)
	if err != nil {
		return nil, err
	}

	var cases []promptCase
	for i, row := range rows {
		if i == 0 || len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		pc := promptCase{row: i + 1, prompt: strings.TrimSpace(row[0])}
		if len(row) > 1 {
			pc.context = strings.TrimSpace(row[1])
		}
		if len(row) > 2 {
			for _, a := range strings.Split(row[2], ",") {
				if a = strings.TrimSpace(a); a != "" {
					pc.expected = append(pc.expected, a)
				}
			}
		}
		cases = append(cases, pc)
	}
	return cases, nil
}

// writeResults writes one row per produced command, or one row per failed prompt.
func writeResults(f *excelize.File, results []caseResult) error {
	if _, err := f.NewSheet(resultsSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &resultsHeader); err != nil {
		return err
	}

	line := 2
	write := func(values []interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return err
		}
		line++
		return f.SetSheetRow(resultsSheet, cell, &values)
	}

	for _, r := range results {
		expected := strings.Join(r.pc.expected, ",")
		if r.err != nil {
			if err := write([]interface{}{r.pc.row, r.pc.prompt, "", "", "", expected, false, r.err.Error()}); err != nil {
				return err
			}
			continue
		}
		match := matches(r.pc.expected, r.commands)
		for _, cmd := range r.commands {
			data, err := json.Marshal(cmd)
			if err != nil {
				return err
			}
			values := []interface{}{r.pc.row, r.pc.prompt, string(cmd.Action()), string(data), cmd.Feedback(), expected, match, ""}
			if err := write(values); err != nil {
				return err
			}
		}
	}

	// NewFile starts with "Sheet1"; drop it so Results opens first.
	return f.DeleteSheet("Sheet1")
}

// matches reports whether the produced actions equal the expected ones in order.
// No expectation always matches.
func matches(expected []string, cmds []domain.Command) bool {
	if len(expected) == 0 {
		return true
	}
	if len(expected) != len(cmds) {
		return false
	}
	for i, cmd := range cmds {
		if string(cmd.Action()) != expected[i] {
			return false
		}
	}
	return true
}
