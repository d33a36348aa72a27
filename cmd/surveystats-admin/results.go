package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/target/surveystats/internal/bootstrap"
	"github.com/target/surveystats/internal/core"
	"github.com/target/surveystats/internal/data"
	"github.com/target/surveystats/internal/domain/model"
	"github.com/target/surveystats/internal/service"
)

const exportSheet = "results"

type showResultOptions struct {
	JobID int64
	Query string
}

func runShowResult(cmdCtx *commandContext, args []string) error {
	opts, err := parseShowResultFlags(args)
	if err != nil {
		return err
	}
	return withResultBackend(cmdCtx, func(backend *bootstrap.ResultBackend) error {
		return showResult(cmdCtx.Ctx, cmdCtx.Out, backend.Store, opts)
	})
}

func parseShowResultFlags(args []string) (showResultOptions, error) {
	fs := flag.NewFlagSet("show-result", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts showResultOptions
	fs.Int64Var(&opts.JobID, "job-id", 0, "Job id whose artifact to print (required)")
	fs.StringVar(&opts.Query, "query", "", "Optional JMESPath expression applied to the artifact")

	if err := fs.Parse(args); err != nil {
		return showResultOptions{}, err
	}
	if opts.JobID < 1 {
		return showResultOptions{}, errors.New("--job-id must be a positive integer")
	}
	opts.Query = strings.TrimSpace(opts.Query)
	if opts.Query != "" {
		if err := service.ValidateQuery(opts.Query); err != nil {
			return showResultOptions{}, err
		}
	}
	return opts, nil
}

func showResult(ctx context.Context, w io.Writer, store core.ResultStore, opts showResultOptions) error {
	raw, err := store.Read(ctx, opts.JobID)
	if errors.Is(err, model.ErrResultNotFound) {
		return writef(w, "job %d has no stored result\n", opts.JobID)
	}
	if err != nil {
		return fmt.Errorf("read result for job %d: %w", opts.JobID, err)
	}

	var out any = json.RawMessage(raw)
	if opts.Query != "" {
		if out, err = service.QueryArtifact(raw, opts.Query); err != nil {
			return err
		}
	}

	body, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return writeln(w, string(body))
}

type exportOptions struct {
	From int64
	To   int64
	Out  string
}

func runExportResults(cmdCtx *commandContext, args []string) error {
	opts, err := parseExportFlags(args)
	if err != nil {
		return err
	}
	return withResultBackend(cmdCtx, func(backend *bootstrap.ResultBackend) error {
		var rows []*model.JobResult
		if backend.DB != nil {
			rows, err = data.NewJobResultRepo(backend.DB).ListRange(cmdCtx.Ctx, opts.From, opts.To)
		} else {
			rows, err = collectResults(cmdCtx.Ctx, backend.Store, opts.From, opts.To)
		}
		if err != nil {
			return err
		}

		n, err := writeWorkbook(rows, opts.Out)
		if err != nil {
			return err
		}
		cmdCtx.Logger.Info("export complete", "jobs", len(rows), "rows", n, "out", opts.Out)
		return writef(cmdCtx.Out, "exported %d jobs (%d values) to %s\n", len(rows), n, opts.Out)
	})
}

func parseExportFlags(args []string) (exportOptions, error) {
	fs := flag.NewFlagSet("export-results", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts exportOptions
	fs.Int64Var(&opts.From, "from", 1, "First job id to export")
	fs.Int64Var(&opts.To, "to", 0, "Last job id to export (required)")
	fs.StringVar(&opts.Out, "out", "results.xlsx", "Output workbook path")

	if err := fs.Parse(args); err != nil {
		return exportOptions{}, err
	}
	switch {
	case opts.From < 1:
		return exportOptions{}, errors.New("--from must be a positive integer")
	case opts.To < opts.From:
		return exportOptions{}, errors.New("--to must be greater than or equal to --from")
	case !strings.HasSuffix(strings.ToLower(opts.Out), ".xlsx"):
		return exportOptions{}, errors.New("--out must name an .xlsx file")
	}
	return opts, nil
}

// collectResults reads ids one by one for stores without range queries. Missing ids are skipped.
func collectResults(ctx context.Context, store core.ResultStore, from, to int64) ([]*model.JobResult, error) {
	var out []*model.JobResult
	for id := from; id <= to; id++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := store.Read(ctx, id)
		if errors.Is(err, model.ErrResultNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read result for job %d: %w", id, err)
		}
		out = append(out, &model.JobResult{JobID: id, Result: raw})
	}
	return out, nil
}

// writeWorkbook writes one row per leaf value: job id, key path, value. It returns the data row count.
func writeWorkbook(results []*model.JobResult, path string) (int, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return 0, fmt.Errorf("name sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &[]any{"job_id", "key", "value"}); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	row := 1
	for _, res := range results {
		artifact := model.NewArtifact()
		if err := json.Unmarshal(res.Result, artifact); err != nil {
			return 0, fmt.Errorf("decode result for job %d: %w", res.JobID, err)
		}
		for _, leaf := range artifact.Leaves() {
			row++
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return 0, err
			}
			values := []any{res.JobID, strings.Join(leaf.Path, " / "), leaf.Value}
			if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
				return 0, fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return 0, fmt.Errorf("save workbook: %w", err)
	}
	return row - 1, nil
}
