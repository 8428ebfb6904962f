// Command seed loads the two sample companions, Emma and Alex, into the
// configured database. Existing companions are kept unless -replace is set.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/ai-companion-backend/internal/config"
	"github.com/tbourn/ai-companion-backend/internal/domain"
	"github.com/tbourn/ai-companion-backend/internal/repo"
	"github.com/tbourn/ai-companion-backend/internal/sysutil"
)

func samples() []domain.Companion {
	return []domain.Companion{
		{
			Name:              "Emma",
			Gender:            domain.GenderGirl,
			Age:               22,
			Backstory:         "I'm Emma, a cheerful art student who loves painting and music. I'm always excited to learn about new things and meet interesting people. I enjoy deep conversations about life, art, and dreams. I'm empathetic and love helping others feel better. I believe every person has a unique story to tell!",
			PersonalityTraits: []string{"cheerful", "creative", "empathetic", "curious", "supportive"},
			Interests:         []string{"art", "music", "movies", "coffee", "photography", "reading", "nature"},
			SpeakingStyle:     "friendly",
			Metadata: datatypes.JSONMap{
				"favorite_quote": "Life is like a canvas, paint it with beautiful colors!",
				"hobby":          "Watercolor painting",
			},
		},
		{
			Name:              "Alex",
			Gender:            domain.GenderBoy,
			Age:               24,
			Backstory:         "I'm Alex, a tech enthusiast and gamer who loves exploring new technologies. I'm passionate about coding, gaming, and sci-fi movies. I'm friendly, supportive, and always up for a good conversation about anything from tech to philosophy. I believe in continuous learning and helping others grow.",
			PersonalityTraits: []string{"intelligent", "friendly", "supportive", "curious", "analytical"},
			Interests:         []string{"technology", "gaming", "coding", "sci-fi", "music", "astronomy", "AI"},
			SpeakingStyle:     "casual",
			Metadata: datatypes.JSONMap{
				"favorite_quote": "The best way to predict the future is to invent it.",
				"hobby":          "Building AI projects",
			},
		},
	}
}

// seed inserts the samples and returns how many were created. With companions
// already present it does nothing unless replace is set, in which case they
// are deleted first.
func seed(ctx context.Context, db *gorm.DB, replace bool, log zerolog.Logger) (int, error) {
	existing, err := repo.ListCompanions(ctx, db)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		if !replace {
			log.Warn().Int("existing", len(existing)).Msg("companions already exist; rerun with -replace to overwrite")
			return 0, nil
		}
		for _, c := range existing {
			if _, err := repo.DeleteCompanion(ctx, db, c.ID); err != nil {
				return 0, fmt.Errorf("delete %s: %w", c.Name, err)
			}
		}
		log.Info().Int("deleted", len(existing)).Msg("cleared existing companions")
	}

	n := 0
	for _, c := range samples() {
		if err := repo.CreateCompanion(ctx, db, &c); err != nil {
			return n, fmt.Errorf("create %s: %w", c.Name, err)
		}
		log.Info().Str("name", c.Name).Str("gender", c.Gender).Str("companion_id", c.ID).Msg("companion created")
		n++
	}
	return n, nil
}

func main() {
	replace := flag.Bool("replace", false, "delete existing companions before seeding")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	log := sysutil.NewLogger(nil, "seed", cfg.LogLevel, true)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := repo.Open(cfg.Database, repo.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := seed(ctx, db, *replace, log)
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Int("created", n).Str("database", cfg.Database.DSN()).Msg("database setup complete")
}
