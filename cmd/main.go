package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"studi-rag/internal/chunker"
	"studi-rag/internal/config"
	"studi-rag/internal/embedding"
	"studi-rag/internal/helper"
	"studi-rag/internal/ingest"
	"studi-rag/internal/parser"
	"studi-rag/internal/rag"
	"studi-rag/internal/scope"
	"studi-rag/internal/service"
	"studi-rag/internal/store"
	"studi-rag/internal/tracker"
	"studi-rag/internal/vectorindex"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to the study material file to ingest")
	owner := flag.String("owner", "", "Owner user id for ingestion")
	docID := flag.String("doc", "", "Document id (defaults to a new UUID on ingest)")
	query := flag.String("query", "", "Query to retrieve for")
	requester := flag.String("requester", "", "Requester user id for retrieval")
	statusID := flag.String("status", "", "Document id to report ingestion status for")
	deleteID := flag.String("delete", "", "Document id to delete")
	shareWith := flag.String("share-with", "", "User id to share the document (-doc) with")
	topK := flag.Int("top-k", 0, "Number of results to retrieve")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	svc, closeFn, err := wire(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error wiring pipeline")
	}
	defer closeFn()

	ctx := context.Background()
	switch {
	case *filePath != "":
		ingestFile(ctx, svc, *filePath, *owner, *docID)
	case *query != "":
		retrieve(ctx, svc, *requester, *query, *topK)
	case *statusID != "":
		reportStatus(ctx, svc, *statusID)
	case *deleteID != "":
		if err := svc.DeleteDocument(ctx, *deleteID); err != nil {
			log.Fatal().Err(err).Msg("Error deleting document")
		}
	case *shareWith != "" && *docID != "":
		if err := svc.ShareDocument(ctx, *docID, *shareWith); err != nil {
			log.Fatal().Err(err).Msg("Error sharing document")
		}
	default:
		log.Fatal().Msg("Provide one of -file, -query, -status, -delete or -share-with")
	}
}

func wire(cfg *config.Config) (*service.Service, func(), error) {
	closeFn := func() {}

	var st store.Store
	if cfg.Database.DSN != "" {
		sqldb, err := store.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		pg := store.NewPG(sqldb, cfg.Database.Debug)
		if err := store.InitDB(context.Background(), pg); err != nil {
			return nil, nil, fmt.Errorf("initializing database: %w", err)
		}
		st = pg
		closeFn = func() { _ = pg.Close() }
	} else {
		log.Warn().Msg("No database DSN configured, using in-memory store")
		st = store.NewMemory()
	}

	idx, err := vectorindex.NewChromem(cfg.Vector)
	if err != nil {
		return nil, nil, fmt.Errorf("opening vector index: %w", err)
	}

	backend, err := embedding.NewBackend(&cfg.EmbedLLM)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing embedding backend: %w", err)
	}
	emb := embedding.NewClient(backend, cfg.EmbedLLM, log.Logger)

	ch := chunker.New(chunker.Config{Size: cfg.RAG.ChunkSize, Overlap: cfg.RAG.ChunkOverlap})
	tr := tracker.New(st)
	ing := ingest.New(ch, emb, idx, tr, cfg.RAG, cfg.EmbedLLM.MaxBatchSize, log.Logger)
	enf := scope.NewEnforcer(st)
	orch := rag.NewOrchestrator(enf, emb, idx, cfg.RAG, cfg.EmbedLLM.Model, log.Logger)

	return service.New(ing, orch, st, idx, log.Logger), closeFn, nil
}

func ingestFile(ctx context.Context, svc *service.Service, filePath, owner, docID string) {
	if owner == "" {
		log.Fatal().Msg("Ingestion requires -owner")
	}
	if docID == "" {
		id, err := helper.GenerateUUID()
		if err != nil {
			log.Fatal().Err(err).Msg("Error generating document id")
		}
		docID = id
	}

	text, err := parser.Extract(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}

	if err := svc.IngestDocumentSync(ctx, owner, docID, text); err != nil {
		log.Fatal().Err(err).Str("document_id", docID).Msg("Error ingesting document")
	}
	log.Info().Str("document_id", docID).Msg("Document indexed")
	fmt.Println(docID)
}

func retrieve(ctx context.Context, svc *service.Service, requester, query string, topK int) {
	if requester == "" {
		log.Fatal().Msg("Retrieval requires -requester")
	}
	items, err := svc.Retrieve(ctx, requester, query, topK, vectorindex.Filter{})
	if err != nil {
		log.Fatal().Err(err).Msg("Error retrieving")
	}
	if len(items) == 0 {
		log.Info().Msg("No indexed content matched the query")
		return
	}
	helper.PrettyPrint(items)
	fmt.Printf("\n--- context ---\n%s\n", svc.BuildContext(items))
}

func reportStatus(ctx context.Context, svc *service.Service, docID string) {
	status, lastErr, err := svc.GetIngestionStatus(ctx, docID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error fetching status")
	}
	if lastErr != "" {
		fmt.Printf("%s: %s (%s)\n", docID, status, lastErr)
		return
	}
	fmt.Printf("%s: %s\n", docID, status)
}
