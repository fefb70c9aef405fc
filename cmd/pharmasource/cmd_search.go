package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pharmasource/backend/internal/domain"
	"github.com/pharmasource/backend/internal/usecase"
)

var (
	searchBrand string
	searchType  string
	brandQuery  string
	brandLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search <cosmetics|milk> [query]",
	Short: "Search a catalog",
	Example: `  pharmasource search cosmetics effa
  pharmasource search cosmetics "%cream" --brand CeraVe
  pharmasource search milk apta --type special`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSearch,
}

var brandsCmd = &cobra.Command{
	Use:   "brands <cosmetics|milk>",
	Short: "List the brands of a catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runBrands,
}

var compareCmd = &cobra.Command{
	Use:   "compare <cosmetics|milk> <id> [id...]",
	Short: "Compare two catalog items side by side",
	Long: `Toggles each id into a comparison set in order. The set keeps the last
two distinct picks, so "compare cosmetics a b c" compares b with c and
"compare cosmetics a b a" shows only b.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCompare,
}

func init() {
	searchCmd.Flags().StringVarP(&searchBrand, "brand", "b", "", "Only show this brand (exact name)")
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "Milk formula type: standard or special")

	brandsCmd.Flags().StringVarP(&brandQuery, "query", "q", "", "Fuzzy filter for brand names")
	brandsCmd.Flags().IntVarP(&brandLimit, "limit", "n", 0, "Maximum brands to print (0 = all)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	kind, err := domain.ParseCatalogKind(args[0])
	if err != nil {
		return err
	}
	formula, err := domain.ParseFormulaType(searchType)
	if err != nil {
		return err
	}
	if formula != domain.FormulaAny && kind != domain.KindMilk {
		return fmt.Errorf("%w: --type only applies to the milk catalog", domain.ErrInvalidRequest)
	}

	q := usecase.Query{Brand: searchBrand, Formula: formula}
	if len(args) == 2 {
		q.Text = args[1]
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	svc, _, cleanup, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	minLen := svc.Projector().MinQueryLength()

	switch kind {
	case domain.KindCosmetics:
		p, err := svc.SearchCosmetics(ctx, q)
		if err != nil {
			return err
		}
		return printProjection(out, p, minLen)
	default:
		p, err := svc.SearchMilk(ctx, q)
		if err != nil {
			return err
		}
		return printProjection(out, p, minLen)
	}
}

func printProjection[T domain.Item](out io.Writer, p usecase.Projection[T], minLen int) error {
	if jsonOutput {
		return writeJSON(out, map[string]any{
			"state": p.State,
			"count": p.Count(),
			"items": p.Items,
		})
	}

	switch p.State {
	case usecase.StateGated:
		fmt.Fprintf(out, "Type at least %d characters or pick a brand to search.\n", minLen)
		return nil
	case usecase.StateEmpty:
		fmt.Fprintln(out, "No products match.")
		return nil
	}

	items := make([]domain.Item, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, item)
	}
	if err := printItemTable(out, items); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d result(s)\n", p.Count())
	return nil
}

func printItemTable(out io.Writer, items []domain.Item) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBRAND\tNAME\tDETAIL")
	for _, item := range items {
		switch v := item.(type) {
		case domain.Cosmetic:
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ID, v.BrandName, v.SpecificName, v.SpecificNameAr)
		case domain.MilkFormula:
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ID, v.BrandName, v.ProductName, milkDetail(v))
		}
	}
	return tw.Flush()
}

func milkDetail(m domain.MilkFormula) string {
	switch {
	case m.Standard != nil:
		return fmt.Sprintf("Stage %s (%s)", m.Standard.Stage, m.Standard.AgeRange)
	case m.Special != nil:
		return fmt.Sprintf("%s: %s", m.Special.SpecialType, m.Special.Indication)
	}
	return string(m.Type)
}

func runBrands(cmd *cobra.Command, args []string) error {
	kind, err := domain.ParseCatalogKind(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	svc, _, cleanup, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	brands, err := svc.SuggestBrands(ctx, kind, brandQuery, brandLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, brands)
	}
	for _, b := range brands {
		fmt.Fprintln(out, b)
	}
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	kind, err := domain.ParseCatalogKind(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	svc, _, cleanup, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	catalog, err := svc.Items(ctx, kind)
	if err != nil {
		return err
	}

	var set usecase.ComparisonSet
	for _, id := range args[1:] {
		set.Toggle(strings.TrimSpace(id))
	}
	items := usecase.Resolve(&set, catalog)

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, map[string]any{
			"ids":   set.IDs(),
			"items": items,
			"ready": set.Ready(),
		})
	}

	if len(items) < set.Len() {
		fmt.Fprintf(out, "Skipped ids not in the %s catalog.\n", kind)
	}
	if !set.Ready() || len(items) < usecase.ComparisonCapacity {
		fmt.Fprintf(out, "Pick %d items to compare.\n", usecase.ComparisonCapacity)
		if len(items) > 0 {
			return printItemTable(out, items)
		}
		return nil
	}
	return printComparison(out, items[0], items[1])
}

// printComparison prints one attribute per row, left item first
func printComparison(out io.Writer, left, right domain.Item) error {
	tw := tabwriter.NewWriter(out, 0, 4, 3, ' ', 0)
	for _, row := range comparisonRows(left, right) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row[0], row[1], row[2])
	}
	return tw.Flush()
}

func comparisonRows(left, right domain.Item) [][3]string {
	l, r := attributes(left), attributes(right)
	rows := make([][3]string, 0, len(l))
	for i := range l {
		rows = append(rows, [3]string{l[i][0], l[i][1], r[i][1]})
	}
	return rows
}

func attributes(item domain.Item) [][2]string {
	switch v := item.(type) {
	case domain.Cosmetic:
		return [][2]string{
			{"ID", v.ID},
			{"Brand", v.BrandName},
			{"Name", v.SpecificName},
			{"Arabic name", v.SpecificNameAr},
		}
	case domain.MilkFormula:
		return [][2]string{
			{"ID", v.ID},
			{"Brand", v.BrandName},
			{"Name", v.ProductName},
			{"Type", string(v.Type)},
			{"Detail", milkDetail(v)},
			{"Key features", v.KeyFeatures},
			{"Differences", v.Differences},
		}
	}
	return [][2]string{{"ID", item.ItemID()}, {"Brand", item.Brand()}}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
