package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"mediavault/internal/config"
	"mediavault/internal/database"
	"mediavault/internal/domain"
	"mediavault/internal/repository"
)

// legacyExport is the shape of the old gallery's metadata dump:
// an object with an "image" list of entries.
type legacyExport struct {
	Image []legacyEntry `json:"image"`
}

type legacyEntry struct {
	File    string          `json:"file"`
	Prompt  json.RawMessage `json:"prompt"`
	Tags    []string        `json:"tags"`
	AIModel *string         `json:"ai_model"`
	Notes   *string         `json:"notes"`
	Rating  *float64        `json:"rating"`
	Date    *string         `json:"date"`
}

func main() {
	_ = godotenv.Load()

	dryRun := flag.Bool("dry-run", false, "validate data without writing to the database")
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: importer [-dry-run] <legacy-json-path>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	entries, err := loadEntries(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	if err := importEntries(db, entries, *dryRun); err != nil {
		log.Fatal(err)
	}
	if *dryRun {
		fmt.Printf("Validated %d entries (dry run, nothing written).\n", len(entries))
	} else {
		fmt.Printf("Imported %d entries.\n", len(entries))
	}
}

func loadEntries(path string) ([]legacyEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var export legacyExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("legacy JSON must be an object with an 'image' list: %w", err)
	}
	if export.Image == nil {
		return nil, fmt.Errorf("legacy JSON must be an object with an 'image' list")
	}
	return export.Image, nil
}

var errDryRun = fmt.Errorf("dry run")

func importEntries(db *gorm.DB, entries []legacyEntry, dryRun bool) error {
	ctx := context.Background()
	err := db.Transaction(func(tx *gorm.DB) error {
		assetRepo := repository.NewAssetRepository(tx)
		tagRepo := repository.NewTagRepository(tx)

		for _, entry := range entries {
			asset, err := convertEntry(entry)
			if err != nil {
				return fmt.Errorf("entry %q: %w", entry.File, err)
			}
			if err := assetRepo.Create(ctx, asset); err != nil {
				return fmt.Errorf("entry %q: %w", entry.File, err)
			}
			tags, err := tagRepo.Ensure(ctx, entry.Tags)
			if err != nil {
				return err
			}
			if err := assetRepo.ReplaceTags(ctx, asset, tags); err != nil {
				return err
			}
		}
		if dryRun {
			return errDryRun
		}
		return nil
	})
	if err == errDryRun {
		return nil
	}
	return err
}

func convertEntry(entry legacyEntry) (*domain.Asset, error) {
	if entry.File == "" {
		return nil, fmt.Errorf("missing file name")
	}

	meta, err := domain.ParsePromptMeta(entry.Prompt)
	if err != nil {
		return nil, err
	}

	var capturedAt *time.Time
	if entry.Date != nil && *entry.Date != "" {
		parsed, err := parseLegacyDate(*entry.Date)
		if err != nil {
			return nil, err
		}
		capturedAt = &parsed
	}

	rating := entry.Rating
	if rating != nil {
		if *rating < 0 || *rating > 5 {
			return nil, fmt.Errorf("rating %v out of range", *rating)
		}
		// Legacy exports carry arbitrary precision; normalize to tenths.
		rounded := math.Round(*rating*10) / 10
		rating = &rounded
	}

	now := time.Now().UTC()
	return &domain.Asset{
		ID:         uuid.NewString(),
		FileName:   entry.File,
		MediaType:  domain.MediaImage,
		PromptText: meta.PromptText(),
		PromptMeta: meta,
		AIModel:    entry.AIModel,
		Notes:      entry.Notes,
		Rating:     rating,
		CapturedAt: capturedAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func parseLegacyDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported datetime value %q", raw)
}
