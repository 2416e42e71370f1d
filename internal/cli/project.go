package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/optionscalc/internal/projection"
)

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project <token|state.json|->",
		Short: "Print the profit projection of a book",
		Example: `  optctl project book.json --price-buckets 10 --date-buckets 5
  optctl project --json <token>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			priceBuckets, _ := cmd.Flags().GetInt("price-buckets")
			dateBuckets, _ := cmd.Flags().GetInt("date-buckets")
			asJSON, _ := cmd.Flags().GetBool("json")

			state, err := loadState(cmd, args[0])
			if err != nil {
				return err
			}

			opts := projection.DefaultOptions(app.Now())
			if priceBuckets > 0 {
				opts.PriceBuckets = priceBuckets
			}
			if dateBuckets > 0 {
				opts.DateBuckets = dateBuckets
			}
			res := projection.Project(state, opts)
			view := projection.Render(res, state.Symbol.Price.ToUse, state.Display.Profit)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			return printTable(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().Int("price-buckets", 0, "rows of the matrix (default 20)")
	cmd.Flags().Int("date-buckets", 0, "columns of the matrix (default 16)")
	cmd.Flags().Bool("json", false, "print the rendered view as JSON")
	return cmd
}

// printTable writes one row per projected price and one column per day
// offset.
func printTable(w io.Writer, v projection.View) error {
	fmt.Fprintf(w, "entry %.2f (%s)  max risk %.2f  max profit %.2f\n\n",
		v.EntryCost, entryKind(v.EntryIsCredit), v.MaxRisk, v.MaxProfit)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{"price"}
	for _, d := range v.Days {
		header = append(header, fmt.Sprintf("%.1fd", d))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for i, cells := range v.Cells {
		row := []string{fmt.Sprintf("%.2f", v.Prices[i])}
		for _, c := range cells {
			row = append(row, fmt.Sprintf("%.0f", c.Profit))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	return tw.Flush()
}

func entryKind(credit bool) string {
	if credit {
		return "credit"
	}
	return "debit"
}
