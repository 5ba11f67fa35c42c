package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/campusmess/mess-server/internal/config"
	"github.com/campusmess/mess-server/internal/database"
	"github.com/campusmess/mess-server/internal/database/postgres"
)

var seedCmd = &cobra.Command{
	Use:   "seed <menu.yaml>",
	Short: "Load menu items from a YAML file into the database",
	Long: `Load menu items from a YAML file into the database.

The file holds a list of items:

  items:
    - name: Masala Dosa
      price: 60
      category: South Indian
      description: Crispy rice crepe with potato filling
      aliases: [dosa, masala dose]
      available: true

Existing items with the same name are skipped unless --update is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Bool("update", false, "Overwrite items that already exist")
}

type seedItem struct {
	Name        string   `yaml:"name"`
	Price       float64  `yaml:"price"`
	Category    string   `yaml:"category"`
	Description string   `yaml:"description"`
	Aliases     []string `yaml:"aliases"`
	Available   *bool    `yaml:"available"`
}

type seedFile struct {
	Items []seedItem `yaml:"items"`
}

func loadSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from CLI argument
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for i, it := range f.Items {
		if it.Name == "" {
			return nil, fmt.Errorf("item %d has no name", i+1)
		}
		if it.Price < 0 {
			return nil, fmt.Errorf("item %q has a negative price", it.Name)
		}
	}
	return &f, nil
}

// seedOne inserts or updates a single item. Returns true when something was
// written.
func seedOne(ctx context.Context, repo *postgres.MenuRepository, it seedItem, update bool) (bool, error) {
	now := time.Now()
	item := &database.MenuItem{
		ID:          uuid.New(),
		Name:        it.Name,
		Price:       it.Price,
		Category:    it.Category,
		Description: it.Description,
		IsAvailable: it.Available == nil || *it.Available,
		Aliases:     it.Aliases,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := repo.CreateMenuItem(ctx, item)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, postgres.ErrDuplicate) {
		return false, err
	}
	if !update {
		return false, nil
	}

	existing, err := repo.GetMenuItemByName(ctx, it.Name)
	if err != nil {
		return false, err
	}
	existing.Price = item.Price
	existing.Category = item.Category
	existing.Description = item.Description
	existing.IsAvailable = item.IsAvailable
	existing.Aliases = item.Aliases
	if err := repo.UpdateMenuItem(ctx, existing); err != nil {
		return false, err
	}
	return true, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	f, err := loadSeedFile(args[0])
	if err != nil {
		return err
	}
	if len(f.Items) == 0 {
		fmt.Println("No items found in seed file, nothing to do")
		return nil
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	repo := postgres.NewMenuRepository(pool)
	update := mustGetBool(cmd, "update")

	bar := progressbar.NewOptions(len(f.Items),
		progressbar.OptionSetDescription("Seeding menu"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var written, skipped int
	for _, it := range f.Items {
		ok, err := seedOne(ctx, repo, it, update)
		if err != nil {
			return fmt.Errorf("seeding %q: %w", it.Name, err)
		}
		if ok {
			written++
		} else {
			skipped++
		}
		_ = bar.Add(1)
	}
	fmt.Printf("\nDone: %d written, %d skipped\n", written, skipped)
	return nil
}
