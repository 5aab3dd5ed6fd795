package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/refx-dev/refx/internal/analyzer"
	"github.com/refx-dev/refx/internal/config"
	"github.com/refx-dev/refx/internal/debug"
	"github.com/refx-dev/refx/internal/index"
	mcpserver "github.com/refx-dev/refx/internal/mcp"
	"github.com/refx-dev/refx/internal/refactor"
	"github.com/refx-dev/refx/internal/render"
	"github.com/refx-dev/refx/internal/safety"
	"github.com/refx-dev/refx/internal/types"
)

var Version = "0.1.0"

// loadConfigWithOverrides loads configuration and applies CLI flag overrides.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = cwd
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", root, err)
	}

	if include := c.StringSlice("include"); len(include) > 0 {
		cfg.Index.Include = include
	}
	if exclude := c.StringSlice("exclude"); len(exclude) > 0 {
		cfg.Index.Exclude = append(cfg.Index.Exclude, exclude...)
	}
	return cfg, nil
}

// buildIndex constructs and populates an index for the resolved config.
func buildIndex(cfg *config.Config) (*index.Index, *index.BuildStats, error) {
	ix := index.New(cfg, analyzer.New(cfg.Runtime))
	stats, err := ix.Build(cfg.Project.Root, nil)
	if err != nil {
		return nil, nil, err
	}
	return ix, stats, nil
}

func main() {
	app := &cli.App{
		Name:                   "refx",
		Usage:                  "Symbol resolution and safety-checked refactoring for game-engine source trees",
		Version:                Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root (defaults to the working directory)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Override include glob patterns",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Additional exclude glob patterns",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write debug output to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				debug.EnableDebug = "true"
				debug.SetDebugOutput(os.Stderr)
			}
			return nil
		},
		Commands: []*cli.Command{
			scanCommand(),
			symbolsCommand(),
			refsCommand(),
			callsCommand(),
			renameCommand(),
			extractCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Rebuild the symbol table and print scan statistics",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			_, stats, err := buildIndex(cfg)
			if err != nil {
				return err
			}
			fmt.Printf("Scanned %d files, %d symbols in %s\n",
				stats.FilesScanned, stats.SymbolCount, stats.Duration)
			for _, se := range stats.ScanErrors {
				fmt.Printf("  skipped %s: %v\n", se.Path, se.Err)
			}
			return nil
		},
	}
}

func symbolsCommand() *cli.Command {
	return &cli.Command{
		Name:      "symbols",
		Usage:     "Search symbols by name substring",
		ArgsUsage: "<pattern>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Filter by kind (class, method, field, property, ...)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("usage: refx symbols <pattern>")
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			ix, _, err := buildIndex(cfg)
			if err != nil {
				return err
			}

			var results []*types.CodeSymbol
			if kindName := c.String("kind"); kindName != "" {
				kind := types.ParseSymbolKind(kindName)
				if kind == types.SymbolKindUnknown {
					return fmt.Errorf("unknown symbol kind %q", kindName)
				}
				results = ix.SearchSymbols(c.Args().First(), kind)
			} else {
				results = ix.SearchSymbols(c.Args().First())
			}

			if len(results) == 0 {
				fmt.Println("No symbols found")
				if suggestions := ix.SuggestSymbols(c.Args().First(), 5); len(suggestions) > 0 {
					fmt.Printf("Did you mean: %v\n", suggestions)
				}
				return nil
			}
			for _, sym := range results {
				fmt.Printf("%-10s %-40s %s\n", sym.Kind, sym.Key(), sym.Location())
			}
			return nil
		},
	}
}

func refsCommand() *cli.Command {
	return &cli.Command{
		Name:      "refs",
		Usage:     "List whole-word references to a name",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("usage: refx refs <name>")
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			ix, _, err := buildIndex(cfg)
			if err != nil {
				return err
			}
			refs := ix.References(c.Args().First())
			for _, ref := range refs {
				fmt.Printf("%s:%d:%d: %s\n", ref.FilePath, ref.Line, ref.Column, ref.Context)
			}
			fmt.Printf("%d reference(s)\n", len(refs))
			return nil
		},
	}
}

func callsCommand() *cli.Command {
	return &cli.Command{
		Name:      "calls",
		Usage:     "Show one level of callers and callees for a method",
		ArgsUsage: "<method>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("usage: refx calls <method>")
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			ix, _, err := buildIndex(cfg)
			if err != nil {
				return err
			}
			sym := ix.FindSymbol(c.Args().First())
			if sym == nil {
				return fmt.Errorf("symbol %q not found", c.Args().First())
			}
			if sym.Kind != types.SymbolKindMethod {
				return fmt.Errorf("%q is a %s, not a method", sym.Key(), sym.Kind)
			}
			fmt.Print(render.CallHierarchyText(ix.CallHierarchy(sym, 3)))
			return nil
		},
	}
}

// printPreview renders a refactoring preview: safety report first, then the
// per-file diffs.
func printPreview(preview *types.RefactoringPreview) error {
	fmt.Printf("%s %s: risk %s\n", preview.Operation, preview.Target.Key(), preview.Safety.Risk)
	for _, w := range preview.Safety.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	for _, b := range preview.Safety.Blockers {
		fmt.Printf("  BLOCKED: %s\n", b)
	}
	for _, fp := range preview.Files {
		text, err := render.UnifiedDiff(fp.FilePath, fp.Before, fp.After)
		if err != nil {
			return err
		}
		fmt.Print(text)
	}
	fmt.Printf("%d change(s) in %d file(s)\n", preview.TotalChanges, len(preview.Files))
	return nil
}

func renameCommand() *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "Preview (and optionally apply) a safety-checked rename",
		ArgsUsage: "<name> <new-name>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "apply",
				Usage: "Commit the change after preview",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("usage: refx rename <name> <new-name>")
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			ix, _, err := buildIndex(cfg)
			if err != nil {
				return err
			}
			sym := ix.FindSymbol(c.Args().Get(0))
			if sym == nil {
				return fmt.Errorf("symbol %q not found", c.Args().Get(0))
			}

			op := refactor.NewRename(ix, safety.New(cfg.Runtime, ix), sym, c.Args().Get(1))
			preview, err := op.Prepare()
			if err != nil {
				return err
			}
			if err := printPreview(preview); err != nil {
				return err
			}
			if !c.Bool("apply") {
				return nil
			}
			if !preview.Safety.CanProceed() {
				return fmt.Errorf("rename is blocked; not applying")
			}
			if err := op.Apply(c.Context); err != nil {
				return err
			}
			fmt.Println("Applied.")
			return nil
		},
	}
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract a selection from a method into a new private method",
		ArgsUsage: "<method> <new-name>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "selection-file",
				Usage:    "File holding the verbatim selection text",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "apply",
				Usage: "Commit the change after preview",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("usage: refx extract <method> <new-name> --selection-file <path>")
			}
			selection, err := os.ReadFile(c.String("selection-file"))
			if err != nil {
				return fmt.Errorf("failed to read selection: %w", err)
			}

			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			ix, _, err := buildIndex(cfg)
			if err != nil {
				return err
			}
			sym := ix.FindSymbol(c.Args().Get(0))
			if sym == nil {
				return fmt.Errorf("method %q not found", c.Args().Get(0))
			}
			if sym.Kind != types.SymbolKindMethod {
				return fmt.Errorf("%q is a %s, not a method", sym.Key(), sym.Kind)
			}

			op := refactor.NewExtractMethod(ix, safety.New(cfg.Runtime, ix), sym, string(selection), c.Args().Get(1))
			preview, err := op.Prepare()
			if err != nil {
				return err
			}
			if err := printPreview(preview); err != nil {
				return err
			}
			if !c.Bool("apply") {
				return nil
			}
			if !preview.Safety.CanProceed() {
				return fmt.Errorf("extract is blocked; not applying")
			}
			if err := op.Apply(c.Context); err != nil {
				return err
			}
			fmt.Println("Applied.")
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run as an MCP stdio server",
		Action: func(c *cli.Context) error {
			// Stdio carries the protocol. With --debug, route output to a
			// log file; otherwise suppress it entirely.
			if c.Bool("debug") {
				logPath, err := debug.InitDebugLogFile()
				if err != nil {
					return err
				}
				defer debug.CloseDebugLog()
				fmt.Fprintf(os.Stderr, "debug log: %s\n", logPath)
			} else {
				debug.SetMCPMode(true)
			}

			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return mcpserver.NewServer(cfg).Start(ctx)
		},
	}
}
