package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"

	"github.com/lexius/lexius/completion"
	completionopenai "github.com/lexius/lexius/completion/openai"
	"github.com/lexius/lexius/config"
	"github.com/lexius/lexius/embeddings"
	"github.com/lexius/lexius/embeddings/hashemb"
	"github.com/lexius/lexius/embeddings/ollama"
	embeddingsopenai "github.com/lexius/lexius/embeddings/openai"
	"github.com/lexius/lexius/embeddings/tfidf"
	"github.com/lexius/lexius/embeddings/vertexai"
	"github.com/lexius/lexius/extractor"
	"github.com/lexius/lexius/matching"
	"github.com/lexius/lexius/matching/option"
	"github.com/lexius/lexius/pipeline"
	"github.com/lexius/lexius/vectordb"
	"github.com/lexius/lexius/vectordb/mem"
	"github.com/lexius/lexius/vectordb/sqlitevec"
)

func main() {
	startGops()
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "ingest":
		ingestCmd(os.Args[2:])
	case "ask":
		askCmd(os.Args[2:])
	case "stream":
		streamCmd(os.Args[2:])
	case "search":
		searchCmd(os.Args[2:])
	case "remove":
		removeCmd(os.Args[2:])
	case "stats":
		statsCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: lexius <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  ingest  Ingest a document file or folder into the index")
	fmt.Fprintln(os.Stderr, "  ask     Answer a question from the indexed documents")
	fmt.Fprintln(os.Stderr, "  stream  Answer a question, emitting progress events as JSON lines")
	fmt.Fprintln(os.Stderr, "  search  Retrieve matching chunks without generation")
	fmt.Fprintln(os.Stderr, "  remove  Remove all chunks of a document")
	fmt.Fprintln(os.Stderr, "  stats   Show index statistics")
}

// runtime bundles the wired service with its teardown hooks.
type runtime struct {
	svc     *pipeline.Service
	store   vectordb.Store
	persist func(context.Context) error
	close   func() error
}

func (r *runtime) shutdown(ctx context.Context) {
	if r.persist != nil {
		if err := r.persist(ctx); err != nil {
			log.Printf("persist store: %v", err)
		}
	}
	if r.close != nil {
		_ = r.close()
	}
}

func ingestCmd(args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := flags.String("config", "", "config yaml path")
	path := flags.String("path", "", "document file or folder (required)")
	category := flags.String("category", "", "document category (classified when empty)")
	uploadedBy := flags.String("uploaded-by", "", "uploader identity")
	verbose := flags.Bool("v", false, "verbose logging")
	flags.Parse(args)

	if *path == "" {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig(ctx, *configPath)
	rt := buildRuntime(ctx, cfg, *verbose)
	defer rt.shutdown(context.Background())

	matcher := newMatcher(cfg)
	files, err := listFiles(*path, matcher)
	if err != nil {
		log.Fatalf("ingest: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("ingest: no supported documents under %s", *path)
	}
	var total int
	for _, file := range files {
		contentType, ok := extractor.TypeForPath(file)
		if !ok {
			continue
		}
		data, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("read %s: %v", file, err)
		}
		result, err := rt.svc.Ingest(ctx, data, contentType, pipeline.IngestMetadata{
			Filename:   filepath.Base(file),
			Category:   *category,
			UploadedBy: *uploadedBy,
		})
		if err != nil {
			log.Fatalf("ingest %s: %v", file, err)
		}
		total += result.ChunksProcessed
		line := fmt.Sprintf("ingested %s doc=%s chunks=%d quality=%s in %.2fs",
			filepath.Base(file), result.DocumentID, result.ChunksProcessed, result.Quality, result.ProcessingSeconds)
		if result.Warning != "" {
			line += " warning=" + result.Warning
		}
		fmt.Println(line)
	}
	fmt.Printf("done: %d files, %d chunks\n", len(files), total)
}

func askCmd(args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := flags.String("config", "", "config yaml path")
	question := flags.String("q", "", "question text (required)")
	k := flags.Int("k", 5, "max retrieved chunks")
	category := flags.String("category", "", "restrict to a document category")
	verbose := flags.Bool("v", false, "verbose logging")
	flags.Parse(args)

	if *question == "" {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig(ctx, *configPath)
	rt := buildRuntime(ctx, cfg, *verbose)
	defer rt.shutdown(context.Background())

	answer, err := rt.svc.Query(ctx, *question, *k, categoryFilter(*category))
	if err != nil {
		log.Fatalf("ask: %v", err)
	}
	fmt.Println(answer.Text)
	fmt.Printf("\nconfidence=%.2f sources=%d tokens=%d elapsed=%.2fs\n",
		answer.Confidence, len(answer.Sources), answer.TokensUsed, answer.ProcessingSeconds)
}

func streamCmd(args []string) {
	flags := flag.NewFlagSet("stream", flag.ExitOnError)
	configPath := flags.String("config", "", "config yaml path")
	question := flags.String("q", "", "question text (required)")
	k := flags.Int("k", 5, "max retrieved chunks")
	category := flags.String("category", "", "restrict to a document category")
	verbose := flags.Bool("v", false, "verbose logging")
	flags.Parse(args)

	if *question == "" {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig(ctx, *configPath)
	rt := buildRuntime(ctx, cfg, *verbose)
	defer rt.shutdown(context.Background())

	events, err := rt.svc.StreamQuery(ctx, *question, *k, categoryFilter(*category))
	if err != nil {
		log.Fatalf("stream: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	for evt := range events {
		if err := enc.Encode(evt); err != nil {
			log.Fatalf("stream: %v", err)
		}
	}
}

func searchCmd(args []string) {
	flags := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := flags.String("config", "", "config yaml path")
	query := flags.String("q", "", "query text (required)")
	k := flags.Int("k", 10, "max results")
	category := flags.String("category", "", "restrict to a document category")
	verbose := flags.Bool("v", false, "verbose logging")
	flags.Parse(args)

	if *query == "" {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig(ctx, *configPath)
	rt := buildRuntime(ctx, cfg, *verbose)
	defer rt.shutdown(context.Background())

	results, err := rt.svc.Retrieve(ctx, *query, *k, categoryFilter(*category))
	if err != nil {
		log.Fatalf("search: %v", err)
	}
	for _, item := range results {
		content := item.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		fmt.Printf("id=%s similarity=%.4f source=%s\n%s\n\n",
			item.ChunkID, item.Similarity, item.Metadata["source"], content)
	}
}

func removeCmd(args []string) {
	flags := flag.NewFlagSet("remove", flag.ExitOnError)
	configPath := flags.String("config", "", "config yaml path")
	docID := flags.String("doc", "", "document id (required)")
	verbose := flags.Bool("v", false, "verbose logging")
	flags.Parse(args)

	if *docID == "" {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig(ctx, *configPath)
	rt := buildRuntime(ctx, cfg, *verbose)
	defer rt.shutdown(context.Background())

	if err := rt.svc.Remove(ctx, *docID); err != nil {
		log.Fatalf("remove: %v", err)
	}
	fmt.Printf("removed document %s\n", *docID)
}

func statsCmd(args []string) {
	flags := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := flags.String("config", "", "config yaml path")
	verbose := flags.Bool("v", false, "verbose logging")
	flags.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig(ctx, *configPath)
	rt := buildRuntime(ctx, cfg, *verbose)
	defer rt.shutdown(context.Background())

	count, err := rt.svc.Stats(ctx)
	if err != nil {
		log.Fatalf("stats: %v", err)
	}
	fmt.Printf("chunks=%d supported=%s\n", count, strings.Join(rt.svc.SupportedContentTypes(), ","))
}

func loadConfig(ctx context.Context, path string) *config.Config {
	if path == "" {
		path = os.Getenv("LEXIUS_CONFIG")
	}
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(ctx, path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return cfg
}

func buildRuntime(ctx context.Context, cfg *config.Config, verbose bool) *runtime {
	logf := func(string, ...any) {}
	if verbose {
		logf = log.Printf
	}

	emb := selectEmbedder(ctx, cfg, logf)
	rt := &runtime{}

	switch strings.ToLower(cfg.Store.Driver) {
	case "memory":
		var opts []mem.StoreOption
		if cfg.Store.BaseURL != "" {
			opts = append(opts, mem.WithBaseURL(cfg.Store.BaseURL))
		}
		opts = append(opts, mem.WithLogf(logf))
		store := mem.New(opts...)
		if cfg.Store.BaseURL != "" {
			if err := store.Load(ctx); err != nil {
				log.Fatalf("load store snapshot: %v", err)
			}
			rt.persist = store.Persist
		}
		rt.store = store
	default:
		dsn := cfg.Store.DSN
		if dsn == "" {
			dsn = defaultDSN()
		}
		opts := []sqlitevec.Option{sqlitevec.WithLogf(logf)}
		if cfg.Store.Dataset != "" {
			opts = append(opts, sqlitevec.WithDataset(cfg.Store.Dataset))
		}
		store, err := sqlitevec.Open(ctx, dsn, opts...)
		if err != nil {
			log.Fatalf("open store: %v", err)
		}
		rt.store = store
		rt.close = store.Close
	}

	svc, err := pipeline.New(emb, rt.store, selectCompleter(cfg),
		pipeline.WithLogf(logf),
		pipeline.WithChunking(cfg.Chunking),
		pipeline.WithRankWeights(cfg.Ranking),
		pipeline.WithConfidenceWeights(cfg.Confidence),
		pipeline.WithGenerationTimeout(time.Duration(cfg.Completion.TimeoutSeconds)*time.Second),
		pipeline.WithGenerationParams(cfg.Completion.MaxTokens, cfg.Completion.Temperature),
	)
	if err != nil {
		log.Fatalf("service init: %v", err)
	}
	rt.svc = svc
	return rt
}

func selectEmbedder(ctx context.Context, cfg *config.Config, logf func(string, ...any)) embeddings.Embedder {
	var tfidfOpts []tfidf.Option
	if cfg.Embedding.MaxFeatures > 0 {
		tfidfOpts = append(tfidfOpts, tfidf.WithMaxFeatures(cfg.Embedding.MaxFeatures))
	}
	if cfg.Embedding.NgramMax > 0 {
		tfidfOpts = append(tfidfOpts, tfidf.WithNgramMax(cfg.Embedding.NgramMax))
	}
	sparse := tfidf.New(tfidfOpts...)

	switch strings.ToLower(cfg.Embedding.Strategy) {
	case "dense":
		return denseEmbedder(cfg)
	case "tfidf":
		return sparse
	case "hash":
		return hashemb.New()
	}
	emb, strategy := embeddings.Select(ctx, embeddings.ProbeConfig{
		Dense:   denseEmbedder(cfg),
		TFIDF:   sparse,
		Hash:    hashemb.New(),
		Timeout: time.Duration(cfg.Embedding.ProbeTimeoutSeconds) * time.Second,
		Logf:    logf,
	})
	logf("embedding strategy: %s", strategy)
	return emb
}

func denseEmbedder(cfg *config.Config) embeddings.Embedder {
	switch strings.ToLower(cfg.Embedding.Provider) {
	case "ollama":
		return &ollama.Embedder{C: ollama.NewClient(cfg.Embedding.Model, cfg.Embedding.Endpoint)}
	case "vertexai":
		project := cfg.Embedding.Project
		if project == "" {
			project = os.Getenv("GOOGLE_CLOUD_PROJECT")
		}
		if project == "" {
			return nil
		}
		return &vertexai.Embedder{C: vertexai.NewClient(project, cfg.Embedding.Model, cfg.Embedding.Location)}
	}
	apiKey := cfg.Embedding.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil
	}
	client := embeddingsopenai.NewClient(apiKey, cfg.Embedding.Model)
	if cfg.Embedding.Endpoint != "" {
		client.BaseURL = cfg.Embedding.Endpoint
	}
	return &embeddingsopenai.Embedder{C: client}
}

func selectCompleter(cfg *config.Config) completion.Service {
	apiKey := cfg.Completion.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil
	}
	client := completionopenai.NewClient(apiKey, cfg.Completion.Model)
	if cfg.Completion.Endpoint != "" {
		client.BaseURL = cfg.Completion.Endpoint
	}
	return client
}

func newMatcher(cfg *config.Config) *matching.Manager {
	var opts []option.Option
	if len(cfg.Ingest.Include) > 0 {
		opts = append(opts, option.WithInclusionPatterns(cfg.Ingest.Include...))
	}
	if len(cfg.Ingest.Exclude) > 0 {
		opts = append(opts, option.WithExclusionPatterns(cfg.Ingest.Exclude...))
	}
	if cfg.Ingest.MaxSizeBytes > 0 {
		opts = append(opts, option.WithMaxIngestableSize(cfg.Ingest.MaxSizeBytes))
	}
	return matching.New(opts...)
}

// listFiles resolves path to the supported document files beneath it, honoring
// the matcher's exclusions.
func listFiles(path string, matcher *matching.Manager) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if _, ok := extractor.TypeForPath(path); !ok {
			return nil, fmt.Errorf("unsupported document type: %s", path)
		}
		return []string{path}, nil
	}
	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if matcher.IsExcluded(p+"/", 0) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := extractor.TypeForPath(p); !ok {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if matcher.IsExcluded(p, int(fi.Size())) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	return files, err
}

func categoryFilter(category string) map[string]string {
	if category == "" {
		return nil
	}
	return map[string]string{"category": category}
}

func defaultDSN() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "lexius.sqlite"
	}
	return filepath.Join(home, ".lexius", "index.sqlite")
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		log.Printf("gops: %v", err)
	}
}
