package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/source"
)

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	var columns string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe the source's health and tables",
		Long: `Check reports whether the configured source is reachable and which of its
backing tables exist. With --columns it lists the columns of one table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd.Context(), columns)
		},
	}
	cmd.Flags().StringVar(&columns, "columns", "", "list the columns of this table")
	_ = cmd.RegisterFlagCompletionFunc("columns", completeTables)
	return cmd
}

func (c *CLI) runCheck(ctx context.Context, columns string) error {
	cfg, b, err := c.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	in, ok := source.AsInspector(b.Source)
	if !ok {
		return errors.New(errors.ErrCodeUnsupported, "source %s cannot be inspected", cfg.Source.Kind)
	}

	spin := c.ui.spin(ctx, "Checking "+cfg.Source.Kind+"...")
	h, err := in.Health(ctx)
	if err != nil {
		spin.failed("Database connection failed")
		c.ui.detail("%s", errors.UserMessage(err))
		return err
	}
	spin.done("%s", h.Message)
	c.ui.keyValue("Source", cfg.Source.Kind)
	c.ui.keyValue("Database", h.Database)

	if columns != "" {
		cols, err := in.Columns(ctx, columns)
		if err != nil {
			return err
		}
		c.ui.blank()
		fmt.Fprintln(c.out, columnsTable(columns, cols))
		return nil
	}

	tables, err := in.CheckTables(ctx)
	if err != nil {
		return err
	}
	c.ui.blank()
	fmt.Fprintln(c.out, tablesTable(tables))

	var missing []string
	for name, st := range tables {
		if !st.Exists {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		c.ui.warn("%d table(s) missing: %v", len(missing), missing)
		c.ui.nextStep("Inspect a table", appName+" check --columns "+missing[0])
	}
	return nil
}

var tableHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...)
}

// tablesTable renders the table check in source.Tables order, followed by
// any extra tables the source reported.
func tablesTable(tables map[string]source.TableStatus) string {
	names := slices.Clone(source.Tables)
	var extra []string
	for name := range tables {
		if !slices.Contains(names, name) {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	names = append(names, extra...)

	var rows [][]string
	var exists []bool
	for _, name := range names {
		st, ok := tables[name]
		if !ok {
			continue
		}
		status, count := iconSuccess, fmt.Sprint(st.Count)
		if !st.Exists {
			status, count = iconError, "—"
		}
		note := st.Error
		rows = append(rows, []string{status, name, count, note})
		exists = append(exists, st.Exists)
	}

	return newTable("", "Table", "Rows", "Error").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if row < 0 || row >= len(exists) {
				return lipgloss.NewStyle()
			}
			if !exists[row] {
				return lipgloss.NewStyle().Foreground(colorRed)
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorGreen)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		String()
}

func columnsTable(name string, cols []source.Column) string {
	rows := make([][]string, len(cols))
	for i, col := range cols {
		rows[i] = []string{col.Name, col.DataType}
	}
	return StyleTitle.Render(name) + "\n" + newTable("Column", "Type").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 1 {
				return StyleDim
			}
			return StyleValue
		}).
		String()
}
