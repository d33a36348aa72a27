package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/target/surveystats/internal/bootstrap"
	"github.com/target/surveystats/internal/domain/aggregate"
	"github.com/target/surveystats/internal/domain/model"
)

type runOptions struct {
	Kind     model.JobKind
	Question string
	State    string
}

func runAggregation(cmdCtx *commandContext, args []string) error {
	opts, err := parseRunFlags(args)
	if err != nil {
		return err
	}
	ds, err := bootstrap.LoadDataset(cmdCtx.Config.Dataset, cmdCtx.Logger)
	if err != nil {
		return err
	}

	outcome := aggregate.NewEngine(ds).Run(opts.Kind, model.JobParams{
		Question: opts.Question,
		State:    opts.State,
	})
	return printOutcome(cmdCtx.Out, outcome)
}

func parseRunFlags(args []string) (runOptions, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts runOptions
		kind string
	)
	fs.StringVar(&kind, "kind", "", "Job kind, e.g. states_mean or best5 (required)")
	fs.StringVar(&opts.Question, "question", "", "Survey question (required)")
	fs.StringVar(&opts.State, "state", "", "State for state-scoped kinds")

	if err := fs.Parse(args); err != nil {
		return runOptions{}, err
	}

	if err := opts.Kind.UnmarshalText([]byte(kind)); err != nil {
		return runOptions{}, err
	}
	opts.Question = strings.TrimSpace(opts.Question)
	opts.State = strings.TrimSpace(opts.State)
	switch {
	case opts.Question == "":
		return runOptions{}, errors.New("--question is required")
	case opts.Kind.RequiresState() && opts.State == "":
		return runOptions{}, fmt.Errorf("--state is required for %s", opts.Kind)
	}
	return opts, nil
}

func printOutcome(w io.Writer, outcome aggregate.Outcome) error {
	if !outcome.HasArtifact() {
		return writef(w, "no result (%s)\n", outcome.Kind)
	}
	body, err := json.MarshalIndent(outcome.Artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	return writeln(w, string(body))
}

func runListQuestions(cmdCtx *commandContext, _ []string) error {
	ds, err := bootstrap.LoadDataset(cmdCtx.Config.Dataset, cmdCtx.Logger)
	if err != nil {
		return err
	}
	return printQuestions(cmdCtx.Out, ds)
}

func printQuestions(w io.Writer, ds *model.Dataset) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "LOWER IS BETTER\tQUESTION\n"); err != nil {
		return err
	}
	for _, q := range ds.Questions() {
		if err := writef(tw, "%t\t%s\n", ds.IsLowerBetter(q), q); err != nil {
			return err
		}
	}
	return tw.Flush()
}
