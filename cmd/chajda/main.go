// Package main is the chajda CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
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

	"github.com/hyperjump/chajda/internal/config"
	"github.com/hyperjump/chajda/internal/export"
	"github.com/hyperjump/chajda/internal/ingest"
	"github.com/hyperjump/chajda/internal/models"
	"github.com/hyperjump/chajda/internal/relation"
	"github.com/hyperjump/chajda/internal/search"
	"github.com/hyperjump/chajda/internal/server"
	"github.com/hyperjump/chajda/internal/storage"
	"github.com/hyperjump/chajda/internal/suggest"
	"github.com/hyperjump/chajda/internal/watcher"
	"github.com/hyperjump/chajda/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/chajda/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory wins (for development), so "chajda server" from
// the project dir picks up the project's config.
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
	switch os.Args[1] {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "ingest":
		runIngest()
	case "export":
		runExport()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("chajda version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store      *storage.SQLiteStore
	Resolver   *relation.Resolver
	Dictionary *suggest.Dictionary
	Engine     *search.Engine
	Loader     *ingest.Loader
}

func (c *Components) Close() {
	if c.Dictionary != nil {
		_ = c.Dictionary.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}

	resolver := relation.NewResolver(store, logger)

	var dict *suggest.Dictionary
	if cfg.Suggest.EnabledOrDefault() {
		dict, err = suggest.NewDictionary(
			cfg.Storage.BleveIndexPath,
			cfg.Suggest.MaxDistance,
			cfg.Suggest.MaxSuggestions,
			logger,
		)
		if err != nil {
			// Suggestions are an enhancement; the engine works without them.
			logger.Warn("suggestion dictionary unavailable", zap.Error(err))
			dict = nil
		}
	}

	var suggester search.Suggester
	if dict != nil {
		suggester = dict
	}
	engine := search.NewEngine(store, resolver, suggester, logger)

	return &Components{
		Store:      store,
		Resolver:   resolver,
		Dictionary: dict,
		Engine:     engine,
		Loader:     ingest.NewLoader(store, logger),
	}, nil
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
		zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if components.Dictionary != nil {
		if err := components.Dictionary.Rebuild(context.Background(), components.Store); err != nil {
			logger.Warn("suggestion dictionary rebuild failed", zap.Error(err))
		}
	}

	var watchSvc *watcher.Watcher
	if cfg.Watch.Enabled {
		watchSvc, err = watcher.New(cfg.Storage.SnapshotPath, func(path string) error {
			if err := components.Store.Reopen(path); err != nil {
				return err
			}
			if components.Dictionary != nil {
				return components.Dictionary.Rebuild(context.Background(), components.Store)
			}
			return nil
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create snapshot watcher", zap.Error(err))
		}
		if err := watchSvc.Start(); err != nil {
			logger.Fatal("Failed to start snapshot watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.New(cfg, components.Store, components.Engine,
		components.Resolver, components.Dictionary, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// buildSearchTerm joins positional args so multi-word queries work the same
// with or without shell quoting.
func buildSearchTerm(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = open the snapshot directly)`)
	limit := fs.Int("limit", 0, "number of results (0 = config default)")
	noDedup := fs.Bool("no-dedup", false, "keep every matching label instead of one row per concept")
	outputFormat := fs.String("output", "text", "output format: text, csv, or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: chajda search [flags] <term>")
		os.Exit(1)
	}
	term := buildSearchTerm(fs.Args())
	if term == "" {
		fmt.Println("Usage: chajda search [flags] <term>")
		os.Exit(1)
	}

	query := models.SearchQuery{Term: term, Limit: *limit, NoDedup: *noDedup}

	var response *models.SearchResponse
	if *serverURL != "" {
		var err error
		response, err = searchViaHTTP(*serverURL, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
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

		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		if query.Limit <= 0 {
			query.Limit = cfg.Search.DefaultLimit
		}
		response, err = components.Engine.Search(context.Background(), query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := writeSearchResults(os.Stdout, response, *outputFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func writeSearchResults(w io.Writer, resp *models.SearchResponse, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "csv":
		return export.WriteCSV(w, resp.Rows)
	case "text":
		fmt.Fprintf(w, "%d result(s) for %q (%s)\n", resp.Total, resp.Term,
			resp.QueryTime.Round(time.Millisecond))
		for i := range resp.Rows {
			r := &resp.Rows[i]
			fmt.Fprintf(w, "\n%d. %s\n", i+1, r.Subject)
			if r.Partial {
				fmt.Fprintf(w, "   (partial: %s)\n", r.PartialErr)
			}
			if len(r.Synonyms) > 0 {
				fmt.Fprintf(w, "   synonyms: %s\n", strings.Join(r.Synonyms, "; "))
			}
			if len(r.Broader) > 0 {
				fmt.Fprintf(w, "   broader:  %s\n", strings.Join(r.Broader, "; "))
			}
			if len(r.Narrower) > 0 {
				fmt.Fprintf(w, "   narrower: %s\n", strings.Join(r.Narrower, "; "))
			}
			if len(r.Related) > 0 {
				fmt.Fprintf(w, "   related:  %s\n", strings.Join(r.Related, "; "))
			}
			if r.LinkURL != "" {
				fmt.Fprintf(w, "   link:     %s\n", r.LinkURL)
			}
		}
		if len(resp.Suggestions) > 0 {
			fmt.Fprintf(w, "\nDid you mean: %s\n", strings.Join(resp.Suggestions, ", "))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q; use text, csv, or json", format)
	}
}

func searchViaHTTP(serverURL string, query models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: chajda ingest [flags] <concepts.json>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	stats, err := components.Loader.LoadFile(context.Background(), path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	if components.Dictionary != nil {
		if err := components.Dictionary.Rebuild(context.Background(), components.Store); err != nil {
			logger.Warn("suggestion dictionary rebuild failed", zap.Error(err))
		}
	}
	fmt.Printf("Ingested %d concept(s), %d literal(s), %d relation(s) in %s (batch %s)\n",
		stats.Concepts, stats.Literals, stats.Relations,
		stats.Elapsed.Round(time.Millisecond), stats.BatchID)
	if stats.Skipped > 0 {
		fmt.Printf("Skipped %d malformed entr(ies)\n", stats.Skipped)
	}
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	format := fs.String("format", "csv", "export format: csv or xlsx")
	out := fs.String("out", "", "output file (default: results.<format>)")
	limit := fs.Int("limit", 0, "number of results (0 = no cap)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: chajda export [flags] <term>")
		os.Exit(1)
	}
	term := buildSearchTerm(fs.Args())

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	response, err := components.Engine.Search(context.Background(),
		models.SearchQuery{Term: term, Limit: *limit})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}

	outPath := *out
	if outPath == "" {
		outPath = "results." + *format
	}
	switch *format {
	case "csv":
		f, err := os.Create(outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", outPath, err)
			os.Exit(1)
		}
		defer f.Close()
		err = export.WriteCSV(f, response.Rows)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
	case "xlsx":
		if err := export.WriteXLSXFile(outPath, response.Rows); err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown format %q; use csv or xlsx\n", *format)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d row(s) to %s\n", len(response.Rows), outPath)
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	EngineState  string `json:"engine_state"`
	SnapshotPath string `json:"snapshot_path"`
	Concepts     int64  `json:"concepts"`
	Literals     int64  `json:"literals"`
	DictTerms    uint64 `json:"dictionary_terms,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = open the snapshot directly)`)
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
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
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()

		ctx := context.Background()
		status.SnapshotPath = cfg.Storage.SnapshotPath
		status.EngineState = components.Engine.State().String()
		if status.Concepts, err = components.Store.CountConcepts(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Count concepts failed: %v\n", err)
			os.Exit(1)
		}
		if status.Literals, err = components.Store.CountLiterals(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Count literals failed: %v\n", err)
			os.Exit(1)
		}
		if components.Dictionary != nil {
			if n, err := components.Dictionary.Count(); err == nil {
				status.DictTerms = n
			}
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("engine_state:     %s\n", status.EngineState)
		fmt.Printf("snapshot_path:    %s\n", status.SnapshotPath)
		fmt.Printf("concepts:         %d\n", status.Concepts)
		fmt.Printf("literals:         %d\n", status.Literals)
		if status.DictTerms > 0 {
			fmt.Printf("dictionary_terms: %d\n", status.DictTerms)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func printUsage() {
	fmt.Println(`chajda - Concept search over subject-heading snapshots

Usage:
  chajda server [flags]            Start the HTTP server
  chajda search [flags] <term>     Search concepts
  chajda ingest [flags] <file>     Load a JSON concept snapshot
  chajda export [flags] <term>     Export search results to CSV/XLSX
  chajda status [flags]            Show engine/storage status
  chajda version                   Show version
  chajda help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/chajda/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string    Config file path (for direct snapshot mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to open the snapshot directly.
  --limit int        Number of results (0 = config default)
  --no-dedup         Keep every matching label instead of one row per concept
  --output string    Output format: text, csv, or json (default: text)

Ingest Flags:
  --config string    Config file path

Export Flags:
  --config string    Config file path
  --format string    csv or xlsx (default: csv)
  --out string       Output file (default: results.<format>)
  --limit int        Number of results (0 = no cap)

Status Flags:
  --config string    Config file path (for direct snapshot mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct snapshot access.
  --output string    Output format: text or json (default: text)

Examples:
  chajda server
  chajda search 한국전쟁
  chajda search "전쟁, war" --output json
  chajda ingest concepts.json
  chajda export --format xlsx 경제학
  chajda status --output json`)
}
