package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nainya/shelftrack/pkg/assign"
)

var (
	yesFlag bool
)

var assignCmd = &cobra.Command{
	Use:   "assign [barcode] [location]",
	Short: "Put a barcode on a location",
	Long: `Assigns a barcode to a location, creating the location if needed.

A barcode already held elsewhere is not moved; use "move" or the interactive
"scan" command to relocate it.

Example:
  shelftrack assign 123456789012 Warehouse/ShelfB`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAssign,
}

var moveCmd = &cobra.Command{
	Use:   "move [barcode] [to]",
	Short: "Move a barcode to another location",
	Args:  cobra.ExactArgs(2),
	RunE:  runMove,
}

var findCmd = &cobra.Command{
	Use:   "find [barcode]",
	Short: "Show where a barcode is",
	Args:  cobra.ExactArgs(1),
	RunE:  runFind,
}

var rmCmd = &cobra.Command{
	Use:   "rm [barcode]",
	Short: "Remove a barcode from its location",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

var lsCmd = &cobra.Command{
	Use:   "ls [location]",
	Short: "List sub-locations and barcodes of a location",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLs,
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir [location]",
	Short: "Create an empty location",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMkdir,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every location and barcode",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Do not ask for confirmation")
}

// report prints the outcome and turns expected domain errors into a
// non-zero exit with a readable message
func report(cmd *cobra.Command, res assign.Result, err error) error {
	if err != nil {
		return errors.New(describeError(res, err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), describe(res))
	return nil
}

func runAssign(cmd *cobra.Command, args []string) error {
	return withAPI(cmd, func(ctx context.Context, api inventoryAPI) error {
		res, err := api.Assign(ctx, args[0], parseLocation(args[1:]))
		return report(cmd, res, err)
	})
}

func runMove(cmd *cobra.Command, args []string) error {
	return withAPI(cmd, func(ctx context.Context, api inventoryAPI) error {
		from, err := api.Find(ctx, args[0])
		if err != nil {
			return report(cmd, assign.Result{Barcode: args[0]}, err)
		}
		res, err := api.ResolveMove(ctx, args[0], from, parseLocation(args[1:]))
		return report(cmd, res, err)
	})
}

func runFind(cmd *cobra.Command, args []string) error {
	return withAPI(cmd, func(ctx context.Context, api inventoryAPI) error {
		p, err := api.Find(ctx, args[0])
		if err != nil {
			return report(cmd, assign.Result{Barcode: args[0]}, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
		return nil
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	return withAPI(cmd, func(ctx context.Context, api inventoryAPI) error {
		res, err := api.Unassign(ctx, args[0])
		if err != nil && res.Barcode == "" {
			res.Barcode = args[0]
		}
		return report(cmd, res, err)
	})
}

func runLs(cmd *cobra.Command, args []string) error {
	return withAPI(cmd, func(ctx context.Context, api inventoryAPI) error {
		p := parseLocation(args)
		listing, err := api.List(ctx, p)
		if err != nil {
			if errors.Is(err, assign.ErrNotFound) {
				return fmt.Errorf("no location %s", p)
			}
			return err
		}
		printListing(cmd.OutOrStdout(), listing)
		return nil
	})
}

func runMkdir(cmd *cobra.Command, args []string) error {
	return withAPI(cmd, func(ctx context.Context, api inventoryAPI) error {
		res, err := api.EnsureLocation(ctx, parseLocation(args))
		return report(cmd, res, err)
	})
}

func runClear(cmd *cobra.Command, args []string) error {
	if !yesFlag {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Remove every location and barcode?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing cleared.")
			return nil
		}
	}
	return withAPI(cmd, func(ctx context.Context, api inventoryAPI) error {
		res, err := api.Clear(ctx)
		return report(cmd, res, err)
	})
}
