package main

import (
	"log"
	"os"

	"ai-chatwidget-be/internal/model"
	"ai-chatwidget-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Seeds two demo chat widgets: an inline streaming assistant and a
// retrieval-backed course tutor.
func main() {
	// Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Seeding demo chat configs...")

	generalPrompt := "You are a friendly study assistant embedded in a course page. Keep answers short and concrete."
	tutorPrompt := "You are a tutor for this course module. Ground every answer in the provided course materials."

	configs := []model.ChatConfig{
		{
			Id:                 uuid.New(),
			PageId:             uuid.New(),
			SystemPrompt:       &generalPrompt,
			ProviderId:         "ollama",
			MemoryWindow:       10,
			CharLimit:          2000,
			StreamingEnabled:   true,
			Persistent:         true,
			IncludePageContext: true,
		},
		{
			Id:               uuid.New(),
			PageId:           uuid.New(),
			SystemPrompt:     &tutorPrompt,
			ProviderId:       "openwebui",
			MemoryWindow:     20,
			CharLimit:        4000,
			RetrievalEnabled: true,
			Persistent:       true,
		},
	}

	for _, cfg := range configs {
		if err := db.Create(&cfg).Error; err != nil {
			log.Printf("Warn: Failed to seed chat config %s: %v", cfg.Id, err)
			continue
		}
		log.Printf("Seeded chat config %s (provider=%s retrieval=%t)", cfg.Id, cfg.ProviderId, cfg.RetrievalEnabled)
	}

	log.Println("✅ Done.")
}
