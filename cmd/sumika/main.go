// Package main is the Sumika CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/sumika/internal/analytics"
	"github.com/hyperjump/sumika/internal/catalog"
	"github.com/hyperjump/sumika/internal/cli"
	"github.com/hyperjump/sumika/internal/config"
	"github.com/hyperjump/sumika/internal/facet"
	"github.com/hyperjump/sumika/internal/history"
	"github.com/hyperjump/sumika/internal/models"
	"github.com/hyperjump/sumika/internal/rank"
	"github.com/hyperjump/sumika/internal/server"
	"github.com/hyperjump/sumika/internal/suggest"
	"github.com/hyperjump/sumika/internal/watcher"
	"github.com/hyperjump/sumika/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/sumika/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "sumika server" from the project dir uses the project's
// config (including debug). Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "suggest":
		runSuggest()
	case "history":
		runHistory()
	case "version", "--version", "-v":
		fmt.Printf("sumika version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if cfg.Watch.EnabledOrDefault() && components.LocalIndex != nil {
		watchOpts := []watcher.Option{
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMillis) * time.Millisecond),
		}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.New(watchOpts...)
		idx := components.LocalIndex
		if err := watchSvc.Watch(cfg.Catalog.DataPath, func(path string) {
			if err := idx.Reload(path); err != nil {
				logger.Warn("catalog reload failed", zap.String("path", path), zap.Error(err))
				return
			}
			logger.Info("catalog reloaded", zap.String("path", path), zap.Int("properties", idx.Size()))
		}); err != nil {
			logger.Fatal("Failed to watch catalog data", zap.Error(err))
		}
		if cfg.Suggest.PoolPath != "" {
			sug := components.Suggest
			if err := watchSvc.Watch(cfg.Suggest.PoolPath, func(path string) {
				pool, err := suggest.LoadPool(path)
				if err != nil {
					logger.Warn("suggestion pool reload failed", zap.String("path", path), zap.Error(err))
					return
				}
				sug.SetPool(pool)
				logger.Info("suggestion pool reloaded", zap.String("path", path), zap.Int("size", sug.Size()))
			}); err != nil {
				logger.Fatal("Failed to watch suggestion pool", zap.Error(err))
			}
		}
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(
		components.Catalog,
		components.Suggest,
		components.History,
		analytics.NewLogTracker(logger),
		boundsFromConfig(cfg),
		&cfg.Server,
		logger,
		cfg,
	)
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()
	go func() {
		if err := srv.Start(serverCtx); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	if watchSvc != nil {
		watchSvc.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
	serverCancel()
}

// searchArgsReorder moves any flags (and their values) that appear after the
// free text to the front of the slice so that flag.Parse() sees them. Go's
// flag package stops at the first non-flag argument, so
// "sumika search goa -guests 4" would otherwise leave -guests unparsed.
func searchArgsReorder(args []string) []string {
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

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func boundsFromConfig(cfg *config.Config) facet.Bounds {
	return facet.Bounds{
		MinPrice:        cfg.Search.MinPrice,
		MaxPrice:        cfg.Search.MaxPrice,
		DefaultPageSize: cfg.Search.DefaultPageSize,
		MaxPageSize:     cfg.Search.MaxPageSize,
	}
}

func outputFormatOrExit(name string) cli.SearchOutputFormat {
	switch name {
	case "json":
		return cli.OutputJSON
	case "compact":
		return cli.OutputCompact
	case "text":
		return cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text, compact, or json\n", name)
		os.Exit(1)
		return cli.OutputText
	}
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = search the local catalog directly)")
	location := fs.String("location", "", "location filter (city, state, or title substring)")
	checkIn := fs.String("check-in", "", "check-in date (YYYY-MM-DD)")
	checkOut := fs.String("check-out", "", "check-out date (YYYY-MM-DD)")
	guests := fs.Int("guests", 1, "guest count")
	minPrice := fs.Int("min-price", 0, "minimum nightly price (0 = platform minimum)")
	maxPrice := fs.Int("max-price", 0, "maximum nightly price (0 = platform maximum)")
	types := fs.String("types", "", "comma-separated property types")
	amenities := fs.String("amenities", "", "comma-separated required amenities")
	minRating := fs.Float64("min-rating", 0, "minimum rating (0-5)")
	sortBy := fs.String("sort", "relevance", "sort: relevance, price_asc, price_desc, rating_desc, newest")
	page := fs.Int("page", 1, "result page")
	pageSize := fs.Int("page-size", 0, "results per page (0 = platform default)")
	instantBook := fs.Bool("instant-book", false, "instant book only")
	superhost := fs.Bool("superhost", false, "superhost only")
	petFriendly := fs.Bool("pet-friendly", false, "pet friendly only")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	format := outputFormatOrExit(*outputFormat)

	q := facet.New(boundsFromConfig(cfg)).
		WithFreeText(strings.TrimSpace(strings.Join(fs.Args(), " "))).
		WithLocation(*location).
		WithGuests(*guests).
		WithMinRating(*minRating).
		WithSort(facet.Sort(*sortBy)).
		WithPage(*page)
	if *minPrice > 0 || *maxPrice > 0 {
		lo, hi := q.PriceRange()
		if *minPrice > 0 {
			lo = *minPrice
		}
		if *maxPrice > 0 {
			hi = *maxPrice
		}
		q = q.WithPriceRange(lo, hi)
	}
	if t := splitList(*types); t != nil {
		q = q.WithPropertyTypes(t...)
	}
	if a := splitList(*amenities); a != nil {
		q = q.WithAmenities(a...)
	}
	if *pageSize > 0 {
		q = q.WithPageSize(*pageSize)
	}
	q = q.WithFlag(facet.FlagInstantBook, *instantBook).
		WithFlag(facet.FlagSuperhost, *superhost).
		WithFlag(facet.FlagPetFriendly, *petFriendly)
	if *checkIn != "" && *checkOut != "" {
		in, inErr := time.Parse("2006-01-02", *checkIn)
		out, outErr := time.Parse("2006-01-02", *checkOut)
		if inErr != nil || outErr != nil {
			fmt.Fprintln(os.Stderr, "Dates must be YYYY-MM-DD")
			os.Exit(1)
		}
		q, err = q.WithDates(in, out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid dates: %v\n", err)
			os.Exit(1)
		}
	}

	var result *cli.SearchOutput
	if *serverURL != "" {
		result, err = searchViaHTTP(*serverURL, q)
	} else {
		result, err = searchDirect(cfg, q)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, q facet.Query) (*cli.SearchOutput, error) {
	resp, err := http.Get(serverURL + "/api/v1/search?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out cli.SearchOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func searchDirect(cfg *config.Config, q facet.Query) (*cli.SearchOutput, error) {
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	ctx := context.Background()
	res, err := components.Catalog.Search(ctx, models.LookupRequest{
		FreeText: q.FreeText(),
		Location: q.Location(),
		CheckIn:  q.CheckIn(),
		CheckOut: q.CheckOut(),
		Guests:   q.Guests(),
		Page:     1,
		SortHint: string(q.Sort()),
	})
	if err != nil {
		return nil, err
	}
	ranked := rank.Apply(res.Candidates, q)
	pageResults := rank.Page(ranked, q)
	if pageResults == nil {
		pageResults = []models.RankedResult{}
	}
	components.History.RecordSearch(ctx, q.FreeText())
	return &cli.SearchOutput{
		Results:           pageResults,
		MatchCount:        len(ranked),
		TotalCount:        res.TotalCount,
		ActiveFilterCount: q.ActiveFacetCount(),
		QueryString:       q.Encode(),
	}, nil
}

func runSuggest() {
	args := searchArgsReorder(os.Args[2:])
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use the local pool directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	format := outputFormatOrExit(*outputFormat)

	var entries []models.SuggestionEntry
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/suggest?q=" + url.QueryEscape(text))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Suggestions []models.SuggestionEntry `json:"suggestions"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		entries = out.Suggestions
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		entries = newSuggestEngine(cfg).Suggest(text)
	}
	if err := cli.WriteSuggestions(os.Stdout, entries, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runHistory() {
	if len(os.Args) < 3 {
		printHistoryUsage()
		os.Exit(1)
	}
	sub := os.Args[2]
	args := searchArgsReorder(os.Args[3:])
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := outputFormatOrExit(*outputFormat)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	storage, err := history.NewSQLiteStorage(cfg.Storage.HistoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open history storage: %v\n", err)
		os.Exit(1)
	}
	defer storage.Close()
	store := history.NewStore(storage, history.WithLogger(logger))
	ctx := context.Background()
	store.Load(ctx)

	switch sub {
	case "recent":
		_ = cli.WriteHistory(os.Stdout, store.Recent(), format)
	case "saved":
		_ = cli.WriteHistory(os.Stdout, store.Saved(), format)
	case "save":
		text := strings.TrimSpace(strings.Join(fs.Args(), " "))
		if text == "" {
			fmt.Println("Usage: sumika history save <text>")
			os.Exit(1)
		}
		store.SaveSearch(ctx, text)
		fmt.Printf("Saved: %s\n", text)
	case "clear-recent":
		store.ClearRecent(ctx)
		fmt.Println("Recent searches cleared")
	case "clear-saved":
		store.ClearSaved(ctx)
		fmt.Println("Saved searches cleared")
	default:
		fmt.Printf("Unknown history subcommand: %s\n", sub)
		printHistoryUsage()
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Catalog    catalog.Catalog
	LocalIndex *catalog.Index // set only in local mode; used for reloads
	Suggest    *suggest.Engine
	History    *history.Store
	storage    history.Storage
}

func (c *Components) Close() {
	if c.LocalIndex != nil {
		_ = c.LocalIndex.Close()
	}
	if c.storage != nil {
		_ = c.storage.Close()
	}
}

func newSuggestEngine(cfg *config.Config) *suggest.Engine {
	if cfg.Suggest.PoolPath != "" {
		if pool, err := suggest.LoadPool(cfg.Suggest.PoolPath); err == nil {
			return suggest.NewEngine(pool)
		}
	}
	return suggest.NewEngine(suggest.DefaultPool())
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	storage, err := history.NewSQLiteStorage(cfg.Storage.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history storage: %w", err)
	}
	store := history.NewStore(storage, history.WithLogger(logger))
	store.Load(context.Background())

	components := &Components{
		Suggest: newSuggestEngine(cfg),
		History: store,
		storage: storage,
	}

	switch cfg.Catalog.Mode {
	case config.CatalogModeRemote:
		clientOpts := []catalog.ClientOption{
			catalog.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Catalog.TimeoutSeconds) * time.Second,
			}),
		}
		if debug {
			clientOpts = append(clientOpts, catalog.WithClientLogger(logger))
		}
		components.Catalog = catalog.NewClient(cfg.Catalog.URL, clientOpts...)
	default:
		idxOpts := []catalog.IndexOption{}
		if debug {
			idxOpts = append(idxOpts, catalog.WithIndexLogger(logger))
		}
		idx, err := catalog.NewIndex(cfg.Catalog.DataPath, idxOpts...)
		if err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("failed to initialize catalog index: %w", err)
		}
		components.Catalog = idx
		components.LocalIndex = idx
		logger.Info("catalog indexed",
			zap.String("data_path", cfg.Catalog.DataPath),
			zap.Int("properties", idx.Size()))
	}

	return components, nil
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: sumika search [flags] [free text]\n\n")
	fmt.Fprintf(fs.Output(), "Free text is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  sumika search goa
  sumika search -location goa -guests 4 -amenities wifi,pool
  sumika search -min-price 8000 -max-price 16000 -types villa -sort price_asc
  sumika search -output json beach villa
`)
}

func printHistoryUsage() {
	fmt.Println("Usage: sumika history <recent|saved|save|clear-recent|clear-saved> [flags] [text]")
	fmt.Println("  sumika history recent          List recent searches (newest first)")
	fmt.Println("  sumika history saved           List saved searches")
	fmt.Println("  sumika history save <text>     Save a search")
	fmt.Println("  sumika history clear-recent    Clear recent searches")
	fmt.Println("  sumika history clear-saved     Clear saved searches")
}

func printUsage() {
	fmt.Println(`sumika - Property search and filtering service

Usage:
  sumika server [flags]            Start the HTTP server
  sumika search [flags] [text]     Search properties
  sumika suggest [flags] [text]    Show search suggestions
  sumika history <subcommand>      Manage search history
  sumika version                   Show version
  sumika help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/sumika/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string      Config file path
  --server string      Server URL (default: http://localhost:8080). Use empty (--server "") to search the local catalog directly.
  --location string    Location filter
  --check-in string    Check-in date (YYYY-MM-DD)
  --check-out string   Check-out date (YYYY-MM-DD)
  --guests int         Guest count (default: 1)
  --min-price int      Minimum nightly price
  --max-price int      Maximum nightly price
  --types string       Comma-separated property types
  --amenities string   Comma-separated required amenities
  --min-rating float   Minimum rating (0-5)
  --sort string        relevance, price_asc, price_desc, rating_desc, newest
  --page int           Result page (default: 1)
  --page-size int      Results per page
  --output string      Output format: text, compact, or json (default: text)

Examples:
  sumika server
  sumika search goa beach villa
  sumika search -location manali -guests 4 -amenities wifi
  sumika suggest go
  sumika history recent
  sumika history save "goa villas under 10k"`)
}
