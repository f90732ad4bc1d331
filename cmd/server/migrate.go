package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okothc/sauti/internal/domain"
)

type seedFile struct {
	Questions []struct {
		Title    string `yaml:"title"`
		Text     string `yaml:"text"`
		Category string `yaml:"category"`
		Language string `yaml:"language"`
	} `yaml:"questions"`
}

func migrateCmd() *cobra.Command {
	var (
		dbPath      string
		postgresURL string
		seedPath    string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and optionally seed questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(dbPath, postgresURL)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Println("schema created")

			if seedPath == "" {
				return nil
			}

			raw, err := os.ReadFile(seedPath)
			if err != nil {
				return err
			}
			var f seedFile
			if err := yaml.Unmarshal(raw, &f); err != nil {
				return fmt.Errorf("parse seed file %s: %w", seedPath, err)
			}

			questions := make([]domain.Question, 0, len(f.Questions))
			for _, q := range f.Questions {
				questions = append(questions, domain.Question{
					Title:    q.Title,
					Text:     q.Text,
					Category: q.Category,
					Language: q.Language,
				})
			}

			if err := store.SeedQuestions(cmd.Context(), questions); err != nil {
				return err
			}
			fmt.Printf("seeded %d questions\n", len(questions))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "sauti.db", "sqlite database path")
	cmd.Flags().StringVar(&postgresURL, "postgres", os.Getenv("DATABASE_URL"), "postgres connection string (overrides --db)")
	cmd.Flags().StringVar(&seedPath, "seed", "", "YAML file with questions to seed")

	return cmd
}
