// Package main is the pad CLI entry point.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/pad/internal/cli"
	"github.com/hyperjump/pad/internal/config"
	"github.com/hyperjump/pad/internal/keyword"
	"github.com/hyperjump/pad/internal/notes"
	"github.com/hyperjump/pad/internal/semantic"
	"github.com/hyperjump/pad/internal/server"
	"github.com/hyperjump/pad/internal/viewer"
	"github.com/hyperjump/pad/internal/watcher"
	"github.com/hyperjump/pad/pkg/utils"
)

var version = "dev"

// stdout is where command output goes; tests replace it.
var stdout io.Writer = os.Stdout

// stdin feeds "pad import" when no file is named.
var stdin io.Reader = os.Stdin

// errUsage marks a command line that could not be understood. The usage text
// has already been printed.
var errUsage = errors.New("invalid usage")

// defaultConfigPath returns ~/.config/pad/config.yaml, or "" when the home
// directory is unknown.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pad", "config.yaml")
}

// loadConfig loads config from path. With no explicit path it tries the
// user config, then config.yaml in the current directory, then defaults.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	candidates := []string{defaultConfigPath()}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, "config.yaml"))
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := os.Stat(c); err == nil {
			cfg, err := config.Load(c)
			if err != nil {
				return nil, "", err
			}
			return cfg, c, nil
		}
	}
	return config.Default(), "", nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	switch command {
	case "add":
		return runAdd(args)
	case "import":
		return runImport(args)
	case "search":
		return runSearch(args)
	case "remove", "rm":
		return runRemove(args)
	case "list", "ls":
		return runList(args)
	case "view":
		return runView(args)
	case "server":
		return runServer(args)
	case "status":
		return runStatus(args)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "pad version %s\n", version)
		return nil
	case "help", "--help", "-h":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: pad <command> [flags] [args]

Commands:
  add [-category c] <text>      Add a note
  import [-category c] [file]   Add one note per line of file (or stdin)
  search [flags] <query>        Find notes by meaning (or by keyword with -keyword)
  remove <text>                 Remove every note with exactly this text
  list [-filter term]           List notes
  view                          Browse and search notes interactively
  server [-debug]               Serve the HTTP API
  status                        Show index status
  version                       Print the version

Every command accepts -config <path> (default ~/.config/pad/config.yaml).
`)
}

// commonFlags registers the flags shared by every command.
type commonFlags struct {
	config *string
	debug  *bool
}

func newFlagSet(name string) (*flag.FlagSet, commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return fs, commonFlags{
		config: fs.String("config", "", "config file path"),
		debug:  fs.Bool("debug", false, "enable debug logging"),
	}
}

// parseArgs parses args with flags allowed after positional text.
func parseArgs(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(argsReorder(args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errUsage
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	return nil
}

// argsReorder moves any flags (and their values) that appear after the text
// to the front so that flag.Parse sees them. The flag package stops at the
// first non-flag argument, so "pad search groceries -limit 3" would otherwise
// leave -limit unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// joinArgs joins positional args so multi-word text works with or without
// shell quoting. The result is in the form the notes file stores.
func joinArgs(args []string) string {
	return notes.CleanText(strings.Join(args, " "))
}

// env is what a command needs once config is loaded.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	notes  *notes.File
}

func (e *env) Close() {
	_ = e.logger.Sync()
}

// setup loads config and builds the logger. CLI commands only log when
// debugging; the server always logs.
func setup(flags commonFlags, alwaysLog bool) (*env, error) {
	cfg, path, err := loadConfig(*flags.config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	debug := cfg.Debug || *flags.debug
	logger := zap.NewNop()
	if debug || alwaysLog {
		if logger, err = utils.NewLogger(debug); err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
	}
	logger.Debug("config loaded", zap.String("config_path", path), zap.Bool("debug", debug))
	return &env{
		cfg:    cfg,
		logger: logger,
		notes:  notes.NewFile(cfg.Notes.NotesPath()),
	}, nil
}

func (e *env) openService() (*semantic.Service, error) {
	return semantic.Open(e.cfg, semantic.WithLogger(e.logger))
}

func runAdd(args []string) error {
	fs, flags := newFlagSet("add")
	category := fs.String("category", notes.DefaultCategory, "note category")
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	text := joinArgs(fs.Args())
	if text == "" {
		fmt.Fprintln(os.Stderr, "Usage: pad add [-category c] <text>")
		return errUsage
	}

	e, err := setup(flags, false)
	if err != nil {
		return err
	}
	defer e.Close()
	svc, err := e.openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.AddNote(context.Background(), text); err != nil {
		return fmt.Errorf("add note: %w", err)
	}
	n, err := e.notes.Append(*category, text)
	if err != nil {
		return fmt.Errorf("note indexed but not written to %s: %w", e.notes.Path(), err)
	}
	fmt.Fprintf(stdout, "Added: %s\n", n.String())
	return nil
}

func runImport(args []string) error {
	fs, flags := newFlagSet("import")
	category := fs.String("category", notes.DefaultCategory, "category for every imported note")
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Usage: pad import [-category c] [file]")
		return errUsage
	}
	in := stdin
	if path := fs.Arg(0); path != "" && path != "-" {
		fh, err := os.Open(path)
		if err != nil {
			return err
		}
		defer fh.Close()
		in = fh
	}
	texts, err := readNoteLines(in)
	if err != nil {
		return fmt.Errorf("read notes: %w", err)
	}
	if len(texts) == 0 {
		fmt.Fprintln(stdout, "Nothing to import")
		return nil
	}

	e, err := setup(flags, false)
	if err != nil {
		return err
	}
	defer e.Close()
	svc, err := e.openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.AddNotes(context.Background(), texts); err != nil {
		return fmt.Errorf("import notes: %w", err)
	}
	for _, text := range texts {
		if _, err := e.notes.Append(*category, text); err != nil {
			return fmt.Errorf("notes indexed but not all written to %s: %w", e.notes.Path(), err)
		}
	}
	fmt.Fprintf(stdout, "Imported %d note(s)\n", len(texts))
	return nil
}

// readNoteLines returns the non-blank lines of r in notes-file form.
func readNoteLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var out []string
	for sc.Scan() {
		if text := notes.CleanText(sc.Text()); text != "" {
			out = append(out, text)
		}
	}
	return out, sc.Err()
}

func runSearch(args []string) error {
	fs, flags := newFlagSet("search")
	limit := fs.Int("limit", 0, "number of results (0 = config default)")
	format := fs.String("format", "text", "output format: text, compact, or json")
	kw := fs.Bool("keyword", false, "search exact terms instead of meaning")
	fuzzy := fs.Bool("fuzzy", false, "keyword search with typo tolerance (implies -keyword)")
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	query := joinArgs(fs.Args())
	if query == "" {
		fmt.Fprintln(os.Stderr, "Usage: pad search [-limit n] [-format text|compact|json] [-keyword] [-fuzzy] <query>")
		return errUsage
	}
	outFormat, err := cli.ParseFormat(*format)
	if err != nil {
		return err
	}

	e, err := setup(flags, false)
	if err != nil {
		return err
	}
	defer e.Close()
	k := clampLimit(*limit, e.cfg.Search)

	if *kw || *fuzzy {
		return keywordSearch(e, query, k, *fuzzy, outFormat)
	}

	svc, err := e.openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	start := time.Now()
	results, err := svc.Search(context.Background(), query, k)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return cli.WriteSearchResults(stdout, cli.SearchOutput{
		Query:   query,
		TookMs:  time.Since(start).Milliseconds(),
		Results: cli.RankResults(results, e.cfg.Search.MaxDistance),
	}, outFormat)
}

// keywordSearch runs a Bleve search over the notes file. An exact search with
// no hits is retried with fuzzy matching before suggesting a spelling.
func keywordSearch(e *env, query string, k int, fuzzy bool, format cli.SearchOutputFormat) error {
	all, err := e.notes.Read()
	if err != nil {
		return err
	}
	ctx := context.Background()
	hits, suggestion, err := keyword.SearchNotes(ctx, all, query, k, &keyword.SearchOptions{Fuzzy: fuzzy})
	if err != nil {
		return fmt.Errorf("keyword search: %w", err)
	}
	if len(hits) == 0 && !fuzzy {
		fuzzyHits, _, err := keyword.SearchNotes(ctx, all, query, k, &keyword.SearchOptions{Fuzzy: true})
		if err == nil && len(fuzzyHits) > 0 {
			hits = fuzzyHits
			e.logger.Debug("keyword search fell back to fuzzy", zap.String("query", query))
		}
	}
	if len(hits) > 0 {
		suggestion = ""
	}
	return cli.WriteKeywordResults(stdout, cli.KeywordOutput{Query: query, Results: hits, Suggestion: suggestion}, format)
}

// clampLimit applies the configured default and maximum result counts.
func clampLimit(limit int, cfg config.SearchConfig) int {
	if limit <= 0 {
		limit = cfg.DefaultLimit
	}
	if cfg.MaxLimit > 0 && limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}
	return limit
}

func runRemove(args []string) error {
	fs, flags := newFlagSet("remove")
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	text := joinArgs(fs.Args())
	if text == "" {
		fmt.Fprintln(os.Stderr, "Usage: pad remove <text>")
		return errUsage
	}

	e, err := setup(flags, false)
	if err != nil {
		return err
	}
	defer e.Close()
	svc, err := e.openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	removed, err := svc.RemoveNote(context.Background(), text)
	if err != nil {
		return fmt.Errorf("remove note: %w", err)
	}
	if _, err := e.notes.DeleteText(text); err != nil {
		return fmt.Errorf("note removed from index but not from %s: %w", e.notes.Path(), err)
	}
	fmt.Fprintf(stdout, "Removed %d note(s)\n", removed)
	return nil
}

func runList(args []string) error {
	fs, flags := newFlagSet("list")
	filter := fs.String("filter", "", "only notes whose category or text contains this")
	format := fs.String("format", "text", "output format: text, compact, or json")
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	outFormat, err := cli.ParseFormat(*format)
	if err != nil {
		return err
	}
	e, err := setup(flags, false)
	if err != nil {
		return err
	}
	defer e.Close()

	all, err := e.notes.Read()
	if err != nil {
		return err
	}
	return cli.WriteNotes(stdout, notes.Filter(all, *filter), outFormat)
}

func runView(args []string) error {
	fs, flags := newFlagSet("view")
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	e, err := setup(flags, false)
	if err != nil {
		return err
	}
	defer e.Close()

	var search viewer.SearchFunc
	var remove viewer.RemoveFunc
	svc, err := e.openService()
	if err != nil {
		// Browsing and lexical search still work without the index.
		fmt.Fprintf(os.Stderr, "Semantic search unavailable: %v\n", err)
	} else {
		defer svc.Close()
		search = semanticTexts(svc)
		remove = svc.RemoveNote
	}

	v, err := viewer.New(e.notes, search, remove,
		viewer.WithLogger(e.logger),
		viewer.WithLimit(e.cfg.Search.DefaultLimit))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return viewer.Run(ctx, v, os.Stdin, os.Stdout)
}

// semanticTexts adapts the service to the viewer's search signature.
func semanticTexts(svc *semantic.Service) viewer.SearchFunc {
	return func(ctx context.Context, query string, k int) ([]string, error) {
		results, err := svc.Search(ctx, query, k)
		if err != nil {
			return nil, err
		}
		texts := make([]string, len(results))
		for i, r := range results {
			texts[i] = r.Text
		}
		return texts, nil
	}
}

func runServer(args []string) error {
	fs, flags := newFlagSet("server")
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	e, err := setup(flags, true)
	if err != nil {
		return err
	}
	defer e.Close()
	logger := e.logger

	svc, err := e.openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := server.NewServer(svc, &e.cfg.Server, logger,
		server.WithNotesFile(e.notes),
		server.WithSearchConfig(e.cfg.Search))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	if e.cfg.Watch.Enabled {
		w := watcher.New(e.cfg.Notes.StorePath(), func() {
			if err := svc.Reload(ctx); err != nil {
				logger.Warn("reload after store change failed", zap.Error(err))
			}
		}, watcher.WithLogger(logger))
		g.Go(func() error { return w.Run(ctx) })
	}
	return g.Wait()
}

func runStatus(args []string) error {
	fs, flags := newFlagSet("status")
	format := fs.String("format", "text", "output format: text or json")
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	outFormat, err := cli.ParseFormat(*format)
	if err != nil {
		return err
	}
	e, err := setup(flags, false)
	if err != nil {
		return err
	}
	defer e.Close()
	svc, err := e.openService()
	if err != nil {
		return err
	}
	defer svc.Close()
	return cli.WriteStatus(stdout, svc.Status(), e.notes.Path(), outFormat)
}
