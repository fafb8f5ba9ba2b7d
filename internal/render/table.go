// Package render prints activity snapshots as terminal tables.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/matrixise/wallet-activity/internal/activity"
	"github.com/matrixise/wallet-activity/internal/wallet"
)

var (
	confirmedStyle = color.New(color.FgGreen)
	pendingStyle   = color.New(color.FgYellow)
	failedStyle    = color.New(color.FgRed)
	addressStyle   = color.New(color.FgWhite)
	fiatStyle      = color.New(color.FgCyan)
	headerStyle    = color.New(color.Bold, color.FgHiWhite)
	faintStyle     = color.New(color.Faint)
)

// Options controls table output
type Options struct {
	// Plain disables ANSI colors
	Plain bool
	// Location formats timestamps; nil means UTC
	Location *time.Location
}

// Activity writes the summaries of snap as a table
func Activity(w io.Writer, snap activity.Snapshot, opts Options) error {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	paint := func(c *color.Color, s string) string {
		if opts.Plain || s == "" {
			return s
		}
		return c.Sprint(s)
	}

	title := fmt.Sprintf("Activity (generation %d, %s)", snap.Generation, strings.ToUpper(snap.Currency))
	if !snap.Final {
		title += " interim"
	}
	if _, err := fmt.Fprintln(w, paint(headerStyle, title)); err != nil {
		return err
	}

	if len(snap.Summaries) == 0 {
		_, err := fmt.Fprintln(w, paint(faintStyle, "No transactions"))
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.AppendHeader(table.Row{"Time", "Network", "Type", "Status", "From", "To", "Amount", "Value", "Fee"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
	})

	for _, s := range snap.Summaries {
		t.AppendRow(table.Row{
			s.CreatedTime.In(loc).Format("2006-01-02 15:04"),
			s.NetworkName,
			typeLabel(s.Type),
			paint(statusStyle(s.Status), string(s.Status)),
			paint(addressStyle, party(s.FromName, s.FromAddress)),
			paint(addressStyle, party(s.ToName, s.ToAddress)),
			strings.TrimSpace(s.Amount + " " + s.Symbol),
			paint(fiatStyle, s.FiatValue),
			fee(s),
		})
	}
	t.Render()
	return nil
}

func statusStyle(status wallet.TxStatus) *color.Color {
	switch status {
	case wallet.StatusConfirmed:
		return confirmedStyle
	case wallet.StatusError, wallet.StatusDropped, wallet.StatusRejected:
		return failedStyle
	default:
		return pendingStyle
	}
}

func typeLabel(t wallet.TxType) string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// party prefers the account name and shortens bare addresses
func party(name, address string) string {
	if name != "" {
		return name
	}
	return ShortAddress(address)
}

func fee(s activity.TransactionSummary) string {
	if s.Fee == "" {
		return ""
	}
	out := s.Fee + " " + s.FeeSymbol
	if s.FeeFiat != "" {
		out += " (" + s.FeeFiat + ")"
	}
	return out
}

// ShortAddress abbreviates long addresses to their first six and last four characters
func ShortAddress(address string) string {
	if len(address) <= 13 {
		return address
	}
	return address[:6] + "…" + address[len(address)-4:]
}
