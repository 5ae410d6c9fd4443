package cli

import (
	"github.com/spf13/cobra"

	"expensetracker/internal/catalog"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Date        string
	Amount      float64
	Category    string
	Subcategory string
	Note        string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Long: `Record an expense and print the id it was stored under.

Example:
  expensetracker add --date 2024-01-10 --amount 7.25 --category food --subcategory snacks`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, err := NewExpenseService(opts.Config, opts.Logger)
			if err != nil {
				return err
			}
			defer service.Close()

			res, err := service.AddExpense(cmd.Context(), opts.Date, opts.Amount, opts.Category, opts.Subcategory, opts.Note)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "expense date, YYYY-MM-DD")
	cmd.Flags().Float64Var(&opts.Amount, "amount", 0, "amount spent")
	cmd.Flags().StringVar(&opts.Category, "category", "", "top-level category")
	cmd.Flags().StringVar(&opts.Subcategory, "subcategory", "", "optional subcategory")
	cmd.Flags().StringVar(&opts.Note, "note", "", "optional note")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

// RangeOptions holds the date range shared by list and summarize.
type RangeOptions struct {
	*RootOptions
	From     string
	To       string
	Category string
}

func addRangeFlags(cmd *cobra.Command, opts *RangeOptions) {
	cmd.Flags().StringVar(&opts.From, "from", "", "first date, inclusive")
	cmd.Flags().StringVar(&opts.To, "to", "", "last date, inclusive")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RangeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, err := NewExpenseService(opts.Config, opts.Logger)
			if err != nil {
				return err
			}
			defer service.Close()

			expenses, err := service.ListExpenses(cmd.Context(), opts.From, opts.To)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), expenses)
		},
	}
	addRangeFlags(cmd, opts)

	return cmd
}

// NewSummarizeCommand creates the summarize command.
func NewSummarizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RangeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Total expenses per category in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, err := NewExpenseService(opts.Config, opts.Logger)
			if err != nil {
				return err
			}
			defer service.Close()

			totals, err := service.Summarize(cmd.Context(), opts.From, opts.To, opts.Category)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), totals)
		},
	}
	addRangeFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Category, "category", "", "restrict to one category")

	return cmd
}

// NewCategoriesCommand creates the categories command.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print the category catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := catalog.New(rootOpts.Config.CategoriesPath, rootOpts.Config.CatalogCacheTTL).Read(cmd.Context())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
