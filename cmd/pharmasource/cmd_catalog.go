package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pharmasource/backend/internal/domain"
	"github.com/pharmasource/backend/internal/infrastructure/catalogsource"
)

var (
	seedDriver string
	seedFrom   string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and seed catalog stores",
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Load the configured catalog and print item counts",
	Args:  cobra.NoArgs,
	RunE:  runCatalogStats,
}

var catalogSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the contents of a SQL catalog store",
	Long: `Creates the catalog tables if needed and replaces their rows with the
built-in catalog, or with the catalog file given by --from.`,
	Example: `  pharmasource catalog seed --driver sqlite --dsn catalog.db
  pharmasource catalog seed --driver postgres --dsn "postgres://localhost/pharma?sslmode=disable" --from products.yaml`,
	Args: cobra.NoArgs,
	RunE: runCatalogSeed,
}

func init() {
	catalogSeedCmd.Flags().StringVar(&seedDriver, "driver", catalogsource.DriverSQLite, "SQL driver: sqlite or postgres")
	catalogSeedCmd.Flags().StringVar(&seedFrom, "from", "", "Catalog file (.yaml, .yml or .json) to seed instead of the built-in catalog")

	catalogCmd.AddCommand(catalogStatsCmd)
	catalogCmd.AddCommand(catalogSeedCmd)
}

func runCatalogStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	svc, cfg, cleanup, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	cat, err := svc.Catalog(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, map[string]any{
			"source":    cfg.Catalog.Source,
			"cosmetics": len(cat.Cosmetics),
			"milk":      len(cat.Milk),
		})
	}
	fmt.Fprintf(out, "source:    %s\n", cfg.Catalog.Source)
	fmt.Fprintf(out, "cosmetics: %d\n", len(cat.Cosmetics))
	fmt.Fprintf(out, "milk:      %d\n", len(cat.Milk))
	return nil
}

func runCatalogSeed(cmd *cobra.Command, args []string) error {
	if sourceDSN == "" {
		return fmt.Errorf("%w: --dsn is required", domain.ErrInvalidRequest)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var (
		cat *domain.Catalog
		err error
	)
	if seedFrom != "" {
		var f *catalogsource.File
		f, err = catalogsource.NewFile(seedFrom)
		if err != nil {
			return err
		}
		cat, err = f.Load(ctx)
	} else {
		cat, err = catalogsource.EmbeddedCatalog()
	}
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	store, err := catalogsource.OpenSQL(ctx, seedDriver, sourceDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Seed(ctx, cat); err != nil {
		return fmt.Errorf("seed %s: %w", seedDriver, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d cosmetics and %d milk formulas into %s\n",
		len(cat.Cosmetics), len(cat.Milk), seedDriver)
	return nil
}
