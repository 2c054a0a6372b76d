// Package render prints per-cycle position metrics to a terminal.
package render

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/kdeshpande/condortrack/internal/condor"
	"github.com/kdeshpande/condortrack/internal/monitor"
)

// TableRenderer writes each refresh as a small per-side table followed by a
// combined summary line.
type TableRenderer struct {
	out io.Writer
}

var _ monitor.Renderer = (*TableRenderer)(nil)

// NewTableRenderer creates a renderer writing to out.
func NewTableRenderer(out io.Writer) *TableRenderer {
	return &TableRenderer{out: out}
}

// Render implements monitor.Renderer.
func (r *TableRenderer) Render(at time.Time, pos *condor.Position, snap condor.Snapshot, m condor.Metrics) {
	fmt.Fprintf(r.out, "\n[%s] %s %s  lots=%d  qty/lot=%d\n",
		at.Format("15:04:05"), pos.Underlying.Name, pos.Expiry, pos.Lots, pos.MinQty)

	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"Side", "Sell LTP", "Buy LTP", "Premium Diff", "Max Profit", "Target", "Stop Loss"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.Append(sideRow("Call", snap.CallSellLTP, snap.CallBuyLTP, m.Call))
	table.Append(sideRow("Put", snap.PutSellLTP, snap.PutBuyLTP, m.Put))
	table.Render()

	fmt.Fprintf(r.out, "Total max profit: %s  Avg premium: %s  Risk:Reward 1:1.5 (target) / 1:3 (SL)\n",
		money(m.TotalMaxProfit), money(m.AvgPremium))
}

func sideRow(side string, sellLTP, buyLTP float64, sm condor.SideMetrics) []string {
	return []string{
		side,
		fmt.Sprintf("%.2f", sellLTP),
		fmt.Sprintf("%.2f", buyLTP),
		fmt.Sprintf("%.2f", sm.PremiumDiff),
		money(sm.MaxProfit),
		money(sm.Target),
		money(sm.StopLoss),
	}
}

func money(v float64) string {
	return fmt.Sprintf("₹%.2f", v)
}
