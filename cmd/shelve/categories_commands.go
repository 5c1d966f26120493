package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shelve/internal/api"
)

func newCategoriesCommand(ctx *commandContext) *cobra.Command {
	categoriesCmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage destination categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCategories(ctx, cmd)
		},
	}

	categoriesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List destination categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCategories(ctx, cmd)
		},
	})

	var description string
	var extensions []string
	addCmd := &cobra.Command{
		Use:   "add <name> <destination>",
		Short: "Register a destination category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			category, err := client.AddCategory(cmd.Context(), api.CategoryRequest{
				Name:        args[0],
				Destination: args[1],
				Description: description,
				Extensions:  extensions,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added category %d: %s -> %s\n", category.ID, category.Name, category.Destination)
			return nil
		},
	}
	addCmd.Flags().StringVar(&description, "description", "", "Category description the classifier can match against")
	addCmd.Flags().StringSliceVar(&extensions, "extensions", nil, "File extensions routed to this category (e.g. .pdf,.docx)")
	categoriesCmd.AddCommand(addCmd)

	var updateDescription string
	var updateExtensions []string
	updateCmd := &cobra.Command{
		Use:   "update <id> <destination>",
		Short: "Change a category's destination, description, or extensions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			category, err := client.UpdateCategory(cmd.Context(), id, api.CategoryRequest{
				Destination: args[1],
				Description: updateDescription,
				Extensions:  updateExtensions,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated category %d: %s -> %s\n", category.ID, category.Name, category.Destination)
			return nil
		},
	}
	updateCmd.Flags().StringVar(&updateDescription, "description", "", "Category description the classifier can match against")
	updateCmd.Flags().StringSliceVar(&updateExtensions, "extensions", nil, "File extensions routed to this category")
	categoriesCmd.AddCommand(updateCmd)

	categoriesCmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.RemoveCategory(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed category %d\n", id)
			return nil
		},
	})

	return categoriesCmd
}

func listCategories(ctx *commandContext, cmd *cobra.Command) error {
	client, err := ctx.client()
	if err != nil {
		return err
	}
	categories, err := client.ListCategories(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(categories) == 0 {
		fmt.Fprintln(out, "No categories defined. Add one with `shelve categories add <name> <destination>`.")
		return nil
	}

	rows := make([][]string, 0, len(categories))
	for _, category := range categories {
		rows = append(rows, []string{
			strconv.FormatInt(category.ID, 10),
			category.Name,
			category.Destination,
			strings.Join(category.Extensions, " "),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Name", "Destination", "Extensions"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
	return nil
}
