package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fincontrol-dev/fincontrol/internal/model"
)

func newCategoryCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage income and expense categories",
	}
	cmd.AddCommand(newCategoryAddCommand(opts), newCategoryListCommand(opts), newCategoryEditCommand(opts), newCategoryRmCommand(opts))
	return cmd
}

func parseType(s string) (model.TransactionType, error) {
	t := model.TransactionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown type %q (want income or expense)", s)
	}
	return t, nil
}

func newCategoryAddCommand(opts *options) *cobra.Command {
	var catID, name, typ string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a category",
		Args:  cobra.NoArgs,
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, _ []string) error {
			t, err := parseType(typ)
			if err != nil {
				return err
			}
			cat := model.Category{ID: newID(p, catID), Name: name, Type: t}
			if err := p.store.SaveCategory(ctx, cat); err != nil {
				return err
			}
			p.record(ctx, "category.add", cat.Name, cat.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Added category %s (%s)\n", cat.Name, cat.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&catID, "id", "", "category ID (default: generated)")
	cmd.Flags().StringVar(&name, "name", "", "category name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&typ, "type", string(model.TypeExpense), "income or expense")

	return cmd
}

func newCategoryEditCommand(opts *options) *cobra.Command {
	var name, typ string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Rename a category or change its type",
		Long: `Rename a category or change its type. The type can only change while no
transaction uses the category.`,
		Args: cobra.ExactArgs(1),
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, args []string) error {
			flags := cmd.Flags()
			cat, err := p.ledger.UpdateCategory(ctx, args[0], func(c *model.Category) error {
				if flags.Changed("name") {
					c.Name = name
				}
				if flags.Changed("type") {
					t, err := parseType(typ)
					if err != nil {
						return err
					}
					c.Type = t
				}
				return nil
			})
			if err != nil {
				return err
			}
			p.record(ctx, "category.edit", cat.Name, cat.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Updated category %s (%s)\n", cat.Name, cat.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&typ, "type", "", "income or expense")

	return cmd
}

func newCategoryListCommand(opts *options) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, _ []string) error {
			svc, err := p.ledger.Categories(ctx)
			if err != nil {
				return err
			}
			cats := svc.All()
			if typ != "" {
				t, err := parseType(typ)
				if err != nil {
					return err
				}
				cats = svc.ByType(t)
			}
			tw := newTable(cmd)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE")
			for _, c := range cats {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.Type)
			}
			return tw.Flush()
		}),
	}

	cmd.Flags().StringVar(&typ, "type", "", "only income or expense")
	return cmd
}

func newCategoryRmCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a category",
		Args:  cobra.ExactArgs(1),
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, args []string) error {
			if err := p.store.DeleteCategory(ctx, args[0]); err != nil {
				return err
			}
			p.record(ctx, "category.rm", "", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Removed category %s\n", args[0])
			return nil
		}),
	}
}
