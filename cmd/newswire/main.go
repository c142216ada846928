// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/newswire"
	"github.com/poiesic/newswire/config"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/ingestion"
	"github.com/poiesic/newswire/search"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	jsonFlag := &cli.BoolFlag{
		Name:  "json",
		Usage: "Print machine-readable JSON",
	}

	return &cli.App{
		Name:  "newswire",
		Usage: "Keyword news ingestion, importance scoring and retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or TOML config file",
				EnvVars: []string{"NEWSWIRE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Override the data directory",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve scheduled ingestion, index rebuilds and retention purges",
				Action: serveCommand,
			},
			{
				Name:   "run",
				Usage:  "Run one ingestion pass over all active keywords",
				Action: runCommand,
				Flags:  []cli.Flag{jsonFlag},
			},
			{
				Name:   "status",
				Usage:  "Show article counts and the last run",
				Action: statusCommand,
				Flags:  []cli.Flag{jsonFlag},
			},
			{
				Name:      "search",
				Usage:     "Search indexed articles",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of articles",
						Value:   search.DefaultMaxResults,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum cosine similarity",
						Value: search.DefaultThreshold,
					},
					&cli.StringFlag{
						Name:  "keyword",
						Usage: "Only articles collected for this keyword",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Only articles in this category",
					},
					&cli.IntFlag{
						Name:  "min-score",
						Usage: "Only articles with at least this final score",
					},
					jsonFlag,
				},
			},
			{
				Name:   "rebuild",
				Usage:  "Rebuild the retrieval index from stored articles",
				Action: rebuildCommand,
			},
			{
				Name:  "keyword",
				Usage: "Manage tracked keywords",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Track a new keyword",
						ArgsUsage: "NAME",
						Action:    keywordAddCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "status",
								Usage: "Initial status (ACTIVE, PAUSED, ARCHIVED)",
								Value: string(core.KeywordActive),
							},
						},
					},
					{
						Name:   "list",
						Usage:  "List keywords",
						Action: keywordListCommand,
						Flags: []cli.Flag{
							&cli.StringSliceFlag{
								Name:  "status",
								Usage: "Only keywords with these statuses",
							},
							jsonFlag,
						},
					},
					{
						Name:      "pause",
						Usage:     "Stop collecting a keyword and drop it from the index",
						ArgsUsage: "ID|NAME",
						Action:    keywordStatusCommand(core.KeywordPaused),
					},
					{
						Name:      "archive",
						Usage:     "Pause a keyword and deactivate its articles",
						ArgsUsage: "ID|NAME",
						Action:    keywordStatusCommand(core.KeywordArchived),
					},
					{
						Name:      "activate",
						Usage:     "Resume collecting a keyword",
						ArgsUsage: "ID|NAME",
						Action:    keywordStatusCommand(core.KeywordActive),
					},
					{
						Name:      "delete",
						Usage:     "Delete a keyword; its articles stay stored but inactive",
						ArgsUsage: "ID|NAME",
						Action:    keywordDeleteCommand,
					},
				},
			},
			{
				Name:  "config",
				Usage: "Inspect configuration",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Print the effective configuration",
						Action: configShowCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "format",
								Usage: "Output format (yaml, toml)",
								Value: string(config.FormatYAML),
							},
						},
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}

func openService(c *cli.Context, opts ...newswire.Option) (*newswire.Service, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	opts = append([]newswire.Option{newswire.WithLogger(slog.Default())}, opts...)
	svc, err := newswire.Open(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open newswire: %w", err)
	}
	return svc, nil
}

// openIdle opens a service for a one-shot command: the stored index is
// loaded but not rebuilt.
func openIdle(c *cli.Context) (*newswire.Service, error) {
	svc, err := openService(c, newswire.WithStartupRebuild(false))
	if err != nil {
		return nil, err
	}
	if err := svc.Start(c.Context); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	slog.Info("newswire serving", "data_dir", svc.Config().DataDir)
	return svc.Serve(ctx)
}

func runCommand(c *cli.Context) error {
	svc, err := openIdle(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	out := c.App.Writer
	var sink ingestion.Sink = ingestion.SinkFunc(func(e core.ProgressEvent) error {
		printEvent(out, e)
		return nil
	})
	if c.Bool("json") {
		sink = ingestion.NewWriterSink(out)
	}
	svc.Orchestrator().Subscribe(sink)

	ticket, err := svc.Orchestrator().StartRun(c.Context)
	if err != nil {
		return err
	}
	if !ticket.Accepted {
		return fmt.Errorf("%w: %s", ingestion.ErrRunInProgress, ticket.RunID)
	}
	svc.Orchestrator().Wait()
	return nil
}

func printEvent(w io.Writer, e core.ProgressEvent) {
	pct := "  ?"
	if e.Percentage != core.PercentageUnknown {
		pct = fmt.Sprintf("%3d", e.Percentage)
	}
	line := fmt.Sprintf("[%s%%] %-16s", pct, e.Type)
	if e.Keyword != nil {
		line += " " + *e.Keyword + ":"
	}
	line += " " + e.Message
	if e.Count != nil {
		line += fmt.Sprintf(" (%d)", *e.Count)
	}
	fmt.Fprintln(w, line)
}

func statusCommand(c *cli.Context) error {
	svc, err := openIdle(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	status, err := svc.Status(c.Context)
	if err != nil {
		return err
	}
	out := c.App.Writer
	if c.Bool("json") {
		return json.NewEncoder(out).Encode(status)
	}

	fmt.Fprintf(out, "Articles:        %d total, %d today\n", status.TotalArticles, status.TodayArticles)
	fmt.Fprintf(out, "Active keywords: %d\n", status.ActiveKeywordCount)
	fmt.Fprintf(out, "Indexed chunks:  %d\n", status.IndexedChunks)
	fmt.Fprintf(out, "LLM fallbacks:   %d\n", status.LLMFallbacks)
	if status.LastCompletedAt.IsZero() {
		fmt.Fprintln(out, "Last run:        never")
	} else {
		fmt.Fprintf(out, "Last run:        %s\n", status.LastCompletedAt.Format(time.RFC3339))
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is required")
	}

	svc, err := openIdle(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	results, err := svc.Search(c.Context, query, search.Options{
		MaxResults: c.Int("limit"),
		Threshold:  float32(c.Float64("threshold")),
		Keyword:    c.String("keyword"),
		Category:   c.String("category"),
		MinScore:   c.Int("min-score"),
	})
	if err != nil {
		return err
	}

	out := c.App.Writer
	if c.Bool("json") {
		return json.NewEncoder(out).Encode(results)
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No matching articles.")
		return nil
	}
	for i, r := range results {
		a := r.Article
		fmt.Fprintf(out, "%d. %s [%s %d] %.3f\n", i+1, a.Title, a.Scores.Grade(), a.Scores.Final, r.Score)
		fmt.Fprintf(out, "   %s\n", a.URL)
		if a.Summary != "" {
			fmt.Fprintf(out, "   %s\n", a.Summary)
		}
	}
	return nil
}

func rebuildCommand(c *cli.Context) error {
	svc, err := openIdle(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	start := time.Now()
	if err := svc.Index().Rebuild(c.Context); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Indexed %d chunks in %s\n", svc.Index().Size(), time.Since(start).Round(time.Millisecond))
	return nil
}

func keywordAddCommand(c *cli.Context) error {
	name := keywordArg(c)
	status, err := core.ParseKeywordStatus(c.String("status"))
	if err != nil {
		return err
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	kw, err := svc.Keywords().Create(c.Context, name, status)
	if err != nil {
		return err
	}
	printKeyword(c.App.Writer, kw)
	return nil
}

func keywordListCommand(c *cli.Context) error {
	var statuses []core.KeywordStatus
	for _, s := range c.StringSlice("status") {
		status, err := core.ParseKeywordStatus(s)
		if err != nil {
			return err
		}
		statuses = append(statuses, status)
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	list, err := svc.Keywords().List(c.Context, statuses...)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return json.NewEncoder(c.App.Writer).Encode(list)
	}
	for _, kw := range list {
		printKeyword(c.App.Writer, kw)
	}
	return nil
}

func keywordStatusCommand(status core.KeywordStatus) cli.ActionFunc {
	return func(c *cli.Context) error {
		svc, err := openService(c)
		if err != nil {
			return err
		}
		defer svc.Close()

		kw, err := svc.Keywords().Find(c.Context, keywordArg(c))
		if err != nil {
			return err
		}
		kw, err = svc.Keywords().SetStatus(c.Context, kw.ID, status)
		if err != nil {
			return err
		}
		printKeyword(c.App.Writer, kw)
		return nil
	}
}

func keywordDeleteCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	kw, err := svc.Keywords().Find(c.Context, keywordArg(c))
	if err != nil {
		return err
	}
	if err := svc.Keywords().Delete(c.Context, kw.ID); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Deleted keyword %q\n", kw.Name)
	return nil
}

func keywordArg(c *cli.Context) string {
	return strings.Join(c.Args().Slice(), " ")
}

func printKeyword(w io.Writer, kw *core.Keyword) {
	fmt.Fprintf(w, "%4d  %-8s  %s\n", kw.ID, kw.Status, kw.Name)
}

func configShowCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return cfg.Encode(c.App.Writer, config.Format(strings.ToLower(c.String("format"))))
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format := strings.ToLower(c.String("log-format")); format {
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", format)
	}
	slog.SetDefault(slog.New(handler))

	return nil
}
