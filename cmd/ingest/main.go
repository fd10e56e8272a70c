package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/legex/CAI-Webex/internal/config"
	"github.com/legex/CAI-Webex/internal/pkg/logger"
	"github.com/legex/CAI-Webex/internal/repository/unitofwork"
	"github.com/legex/CAI-Webex/internal/service"
	"github.com/legex/CAI-Webex/pkg/database"
	"github.com/legex/CAI-Webex/pkg/embedding"
)

// scrapedDocument matches the output of the documentation scraper.
type scrapedDocument struct {
	SourceURL string `json:"source_url"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

func main() {
	inputPath := flag.String("input", "documents.json", "JSON array of scraped documents")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	cfg := config.Load()

	db, err := database.NewGormDB(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	raw, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("Error: Failed to read %s: %v", *inputPath, err)
	}

	var docs []scrapedDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		log.Fatalf("Error: Failed to parse %s: %v", *inputPath, err)
	}

	uowFactory := unitofwork.NewRepositoryFactory(db)
	embeddingProvider := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	documentService := service.NewDocumentService(uowFactory, embeddingProvider, sysLogger)

	ctx := context.Background()
	total := 0
	for _, doc := range docs {
		chunks, err := documentService.Ingest(ctx, doc.SourceURL, doc.Title, doc.Content)
		if err != nil {
			log.Printf("Warn: Failed to ingest %s: %v", doc.SourceURL, err)
			continue
		}
		total += chunks
	}

	log.Printf("Success: Ingested %d documents (%d chunks)", len(docs), total)
}
