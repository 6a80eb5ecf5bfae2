package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nainya/shelftrack/pkg/assign"
	"github.com/nainya/shelftrack/pkg/location"
	"github.com/nainya/shelftrack/pkg/scan"
)

// longNameLimit is the segment length above which a selection is confirmed
// first; long names are usually a mis-scan into the location prompt
const longNameLimit = 32

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Interactive scanning session reading from stdin",
	Long: `Reads one entry per line, as a keyboard-wedge barcode scanner types them:

  @Warehouse/ShelfB   select the location scans go to
  <barcode>           assign the barcode to the selected location
  y / n               confirm or cancel a pending move
  ?                   show the selection and pending move
  q                   quit

Scanning a barcode that is already elsewhere asks before moving it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAPI(cmd, func(ctx context.Context, api inventoryAPI) error {
			return runScanLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), api.NewSession())
		})
	},
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "y" || s == "yes"
}

func isNo(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "n" || s == "no"
}

// confirm asks a yes/no question on its own reader
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s (y/n) ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return isYes(line), nil
}

func longSegment(p location.Path) (string, bool) {
	for _, seg := range p {
		if len(seg) > longNameLimit {
			return seg, true
		}
	}
	return "", false
}

// runScanLoop drives a session from line-oriented input until EOF or q
func runScanLoop(ctx context.Context, in io.Reader, out io.Writer, sess *scan.Session) error {
	lines := bufio.NewScanner(in)
	next := func() (string, bool) {
		if !lines.Scan() {
			return "", false
		}
		return strings.TrimSpace(lines.Text()), true
	}

	fmt.Fprintln(out, "Select a location with @path, then scan barcodes. q quits.")
	for {
		line, ok := next()
		if !ok {
			return lines.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		_, pending := sess.Pending()
		switch {
		case line == "":
			continue

		case line == "q" || line == "quit":
			return nil

		case line == "?":
			fmt.Fprintf(out, "Location: %s\n", sess.Selection())
			if pm, ok := sess.Pending(); ok {
				fmt.Fprintf(out, "Pending: move %s from %s to %s\n", pm.Barcode, pm.From, pm.To)
			}

		case strings.HasPrefix(line, "@"):
			p := location.ParsePath(strings.TrimPrefix(line, "@"))
			if seg, long := longSegment(p); long {
				fmt.Fprintf(out, "Location name %q is unusually long. Use it? (y/n) ", seg)
				answer, ok := next()
				if !ok {
					return lines.Err()
				}
				if !isYes(answer) {
					fmt.Fprintln(out, "Selection unchanged.")
					continue
				}
			}
			res, err := sess.Select(ctx, p)
			if err != nil {
				fmt.Fprintln(out, describeError(res, err))
				continue
			}
			fmt.Fprintf(out, "Scanning into %s.\n", p)

		case pending && isYes(line):
			res, err := sess.Confirm(ctx)
			if err != nil {
				fmt.Fprintln(out, describeError(res, err))
				continue
			}
			fmt.Fprintln(out, describe(res))

		case pending && isNo(line):
			sess.Cancel()
			fmt.Fprintln(out, "Move cancelled.")

		default:
			res, err := sess.Scan(ctx, scan.NewEvent(line))
			if err != nil {
				fmt.Fprintln(out, describeError(res, err))
				continue
			}
			fmt.Fprintln(out, describe(res))
			if res.Outcome == assign.ConflictAt {
				fmt.Fprintf(out, "Move it to %s? (y/n) ", res.Path)
			}
		}
	}
}
