// Command qdrant-loader-mcp-server exposes the hybrid search and retrieval
// engine (spec §4.7-§4.12) as a JSON-RPC 2.0 server over either stdio or
// HTTP/SSE (spec §4.13/§6). Grounded on cmd/agentd/main.go's startup
// sequence (env load, logger init, config load, signal-driven graceful
// shutdown) and cmd/embedctl/main.go's flag-based CLI shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"qdrantloader/internal/apperror"
	"qdrantloader/internal/config"
	"qdrantloader/internal/embedclient"
	"qdrantloader/internal/llmclient"
	"qdrantloader/internal/logging"
	"qdrantloader/internal/nlpanalyzer"
	"qdrantloader/internal/rpc"
	"qdrantloader/internal/search"
	"qdrantloader/internal/search/crossdoc"
	"qdrantloader/internal/search/intent"
	"qdrantloader/internal/search/topicchain"
	"qdrantloader/internal/transport/httpsse"
	"qdrantloader/internal/transport/stdio"
	"qdrantloader/internal/vectorstore"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "config.yaml", "path to the configuration file")
		envPath     = flag.String("env", ".env", "path to an .env file to load before config")
		logLevel    = flag.String("log-level", "", "override the configured log level (debug|info|warning|error|critical)")
		transport   = flag.String("transport", "stdio", "transport to serve on: stdio|http")
		host        = flag.String("host", "", "override the HTTP transport bind host")
		port        = flag.Int("port", 0, "override the HTTP transport bind port")
		printConfig = flag.Bool("print-config", false, "print the effective configuration as YAML and exit")
		printVer    = flag.Bool("version", false, "print the version and exit")
	)
	flag.Parse()

	if *printVer {
		fmt.Println(version)
		return 0
	}

	if err := config.LoadEnvFile(*envPath); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "qdrant-loader-mcp-server: loading %s: %v\n", *envPath, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "qdrant-loader-mcp-server: loading config: %v\n", err)
		return 1
	}

	if *printConfig {
		return printEffectiveConfig(cfg)
	}

	// The stdio transport's wire protocol is stdout-only: every diagnostic
	// log must go to stderr (or a file), never stdout (spec §4.13).
	logOpts := logging.Options{LogPath: "", Level: *logLevel, Writer: os.Stderr}
	if logOpts.Level == "" {
		logOpts.Level = "info"
	}
	if *transport == "stdio" {
		logOpts.ConsoleDisabled = os.Getenv("MCP_DISABLE_CONSOLE_LOGGING") == "true"
		logOpts.Writer = os.Stderr
	}
	logging.Init(logOpts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := buildServer(cfg)
	if err != nil {
		log.Error().Err(err).Msg("qdrant-loader-mcp-server: failed to build search engine")
		return 1
	}

	dispatcher := rpc.NewDispatcher()
	srv.RegisterTools(dispatcher)

	switch *transport {
	case "stdio":
		if err := stdio.Run(ctx, dispatcher, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("qdrant-loader-mcp-server: stdio transport exited with error")
			return 1
		}
		return 0
	case "http":
		httpCfg := cfg.Global.HTTP
		if *host != "" {
			httpCfg.Host = *host
		}
		if *port != 0 {
			httpCfg.Port = *port
		}
		httpServer := httpsse.New(httpsse.Config{
			Host:               httpCfg.Host,
			Port:               httpCfg.Port,
			DrainTimeout:       time.Duration(httpCfg.DrainTimeoutSec) * time.Second,
			ShutdownTimeout:    time.Duration(httpCfg.ShutdownTimeoutSec) * time.Second,
			SessionIdleTimeout: time.Duration(httpCfg.SessionIdleTimeoutSec) * time.Second,
		}, dispatcher)

		log.Info().Str("host", httpCfg.Host).Int("port", httpCfg.Port).Msg("qdrant-loader-mcp-server: listening")
		if err := httpServer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("qdrant-loader-mcp-server: http transport exited with error")
			return 1
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "qdrant-loader-mcp-server: unknown --transport %q (want stdio or http)\n", *transport)
		return 1
	}
}

// buildServer wires the embedding client, vector store, NLP analyzer,
// hybrid search engine, intent classifier, topic-chain engine, and
// cross-document intelligence engine into one rpc.Server (spec §4.7-§4.11).
func buildServer(cfg *config.Config) (*rpc.Server, error) {
	ctx := context.Background()

	embedCfg := cfg.Global.Embedding
	embedder := embedclient.New(embedclient.Config{
		Model:      embedCfg.Model,
		BaseURL:    embedCfg.BaseURL,
		APIKey:     embedCfg.APIKey,
		Dimensions: embedCfg.Dimensions,
		BatchSize:  embedCfg.BatchSize,
		Timeout:    time.Duration(embedCfg.TimeoutSec) * time.Second,
	})

	dimension := cfg.Global.EffectiveVectorSize()
	store, err := vectorstore.Open(ctx, vectorstore.Config{
		URL:            cfg.Global.Qdrant.URL,
		APIKey:         cfg.Global.Qdrant.APIKey,
		CollectionName: cfg.Global.Qdrant.CollectionName,
		Dimension:      dimension,
		Distance:       cfg.Global.Qdrant.Distance,
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConfiguration, "opening vector store", err)
	}

	analyzer := nlpanalyzer.New()
	engine := search.New(embedder, store, analyzer).WithWeights(search.Weights{
		VectorWeight:   cfg.Global.Search.VectorWeight,
		KeywordWeight:  cfg.Global.Search.KeywordWeight,
		MetadataWeight: cfg.Global.Search.MetadataWeight,
		MinScore:       cfg.Global.Search.MinScore,
	})

	classifier := intent.New(analyzer, 256)
	chains := topicchain.New(256)

	var deepener crossdoc.Deepener
	if embedCfg.APIKey != "" {
		deepener = llmclient.New(llmclient.Config{
			Model:   embedCfg.Model,
			BaseURL: embedCfg.BaseURL,
			APIKey:  embedCfg.APIKey,
		})
	}
	crossDoc := crossdoc.New(nil, deepener)

	return &rpc.Server{
		Engine:     engine,
		Intent:     classifier,
		TopicChain: chains,
		CrossDoc:   crossDoc,
		Version:    version,
	}, nil
}

func printEffectiveConfig(cfg *config.Config) int {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "qdrant-loader-mcp-server: encoding config: %v\n", err)
		return 1
	}
	os.Stdout.Write(out)
	return 0
}
