package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"mediavault/internal/config"
	"mediavault/internal/database"
	"mediavault/internal/domain"
	"mediavault/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("Migrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM asset_tags")
	db.Exec("DELETE FROM assets")
	db.Exec("DELETE FROM tags")

	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		log.Fatal(err)
	}

	log.Println("Creating sample assets...")
	now := time.Now().UTC()

	type sample struct {
		prompt string
		model  string
		rating float64
		tags   []string
		offset time.Duration
	}
	samples := []sample{
		{"a lighthouse in a storm, oil painting", "sdxl-1.0", 4.5, []string{"seascape", "painting"}, -72 * time.Hour},
		{"portrait of a red fox, studio lighting", "sdxl-1.0", 5.0, []string{"animal", "portrait"}, -48 * time.Hour},
		{"isometric city block at night", "flux-dev", 3.5, []string{"city", "isometric"}, -24 * time.Hour},
	}

	var firstID string
	for i, s := range samples {
		fileName, err := writeSamplePNG(cfg.MediaDir, uint8(60*i))
		if err != nil {
			log.Fatal(err)
		}

		captured := now.Add(s.offset)
		rating := s.rating
		model := s.model
		asset := domain.Asset{
			ID:         uuid.NewString(),
			FileName:   fileName,
			MediaType:  domain.MediaImage,
			PromptText: s.prompt,
			PromptMeta: domain.PlainText(s.prompt),
			AIModel:    &model,
			Rating:     &rating,
			CapturedAt: &captured,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := db.Create(&asset).Error; err != nil {
			log.Fatal(err)
		}
		if firstID == "" {
			firstID = asset.ID
		}

		tags, err := repository.NewTagRepository(db).Ensure(context.Background(), s.tags)
		if err != nil {
			log.Fatal(err)
		}
		if err := db.Model(&asset).Association("Tags").Replace(tags); err != nil {
			log.Fatal(err)
		}
		log.Printf("Created asset %s (%s)", asset.ID, s.prompt)
	}

	// One video referencing the first image, so the detail view has a chain.
	videoName := uuid.NewString() + ".mp4"
	if err := os.WriteFile(filepath.Join(cfg.MediaDir, videoName), []byte("seed-video"), 0o644); err != nil {
		log.Fatal(err)
	}
	thumbName, err := writeSamplePNG(cfg.MediaDir, 200)
	if err != nil {
		log.Fatal(err)
	}
	video := domain.Asset{
		ID:            uuid.NewString(),
		FileName:      videoName,
		MediaType:     domain.MediaVideo,
		PromptText:    "animated version",
		PromptMeta:    domain.ReferenceChain([]string{firstID}, "animated version"),
		ThumbnailFile: &thumbName,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.Create(&video).Error; err != nil {
		log.Fatal(err)
	}

	fmt.Println("Seed complete.")
}

func writeSamplePNG(dir string, shade uint8) (string, error) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: shade, G: 120, B: 180, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	name := uuid.NewString() + ".png"
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return name, nil
}
