package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pushchain/ecu-vault/firmware"
	"github.com/pushchain/ecu-vault/gateway/api"
)

// timeNow is a variable for time.Now to enable deterministic testing
var timeNow = time.Now

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// dashboardData is one snapshot of the node's state.
type dashboardData struct {
	Messages   uint64
	Ecus       []ecuRow
	Anomalies  []uint64
	Suspicious int
	Firmware   firmware.Stats
	Err        error
}

type ecuRow struct {
	Name  string
	Score uint64
}

func dashboardCmd(v *viper.Viper) *cobra.Command {
	var watch time.Duration

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Render a summary of messages, ECUs and firmware",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := clientFrom(v)
			for {
				fmt.Fprintln(cmd.OutOrStdout(), renderDashboard(fetchDashboard(cmd.Context(), c)))
				if watch <= 0 {
					return nil
				}
				select {
				case <-cmd.Context().Done():
					return nil
				case <-time.After(watch):
				}
			}
		},
	}

	cmd.Flags().DurationVar(&watch, "watch", 0, "refresh interval; 0 renders once")
	return cmd
}

func fetchDashboard(ctx context.Context, c *apiClient) dashboardData {
	var d dashboardData

	var count api.CountResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/messages/count", nil, &count); err != nil {
		d.Err = err
		return d
	}
	d.Messages = count.Count

	var ecus []api.EcuResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/ecus", nil, &ecus); err != nil {
		d.Err = err
		return d
	}
	for _, e := range ecus {
		var score api.TrustScoreResponse
		if err := c.do(ctx, http.MethodGet, "/api/v1/ecus/"+url.PathEscape(e.Name)+"/trust-score", nil, &score); err != nil {
			d.Err = err
			return d
		}
		d.Ecus = append(d.Ecus, ecuRow{Name: e.Name, Score: score.Score})
	}

	var anomalies api.AnomaliesResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/analytics/anomalies", nil, &anomalies); err != nil {
		d.Err = err
		return d
	}
	d.Anomalies = anomalies.MessageIDs

	var pairs api.SuspiciousPairsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/analytics/suspicious-pairs", nil, &pairs); err != nil {
		d.Err = err
		return d
	}
	d.Suspicious = len(pairs.Pairs)

	stats, err := firmware.NewRegistry(c, zerolog.Nop()).Stats(ctx)
	if err != nil {
		d.Err = err
		return d
	}
	d.Firmware = stats
	return d
}

func renderDashboard(d dashboardData) string {
	header := titleStyle.Render("ECU VAULT") + "  " + timeNow().Format("15:04:05 MST")
	if d.Err != nil {
		return panelStyle.Render(header + "\n" + warnStyle.Render("⚠ "+d.Err.Error()))
	}

	var msgs strings.Builder
	fmt.Fprintf(&msgs, "%s\n", titleStyle.Render("Messages"))
	fmt.Fprintf(&msgs, "Submitted:   %d\n", d.Messages)
	anomalies := okStyle.Render("0")
	if len(d.Anomalies) > 0 {
		anomalies = warnStyle.Render(fmt.Sprintf("%d", len(d.Anomalies)))
	}
	fmt.Fprintf(&msgs, "Anomalies:   %s\n", anomalies)
	fmt.Fprintf(&msgs, "Suspicious:  %d pairs", d.Suspicious)

	var ecus strings.Builder
	fmt.Fprintf(&ecus, "%s", titleStyle.Render("ECU trust"))
	if len(d.Ecus) == 0 {
		ecus.WriteString("\n(no verified messages)")
	}
	for _, e := range d.Ecus {
		score := okStyle.Render(fmt.Sprintf("%3d", e.Score))
		if e.Score < 50 {
			score = warnStyle.Render(fmt.Sprintf("%3d", e.Score))
		}
		fmt.Fprintf(&ecus, "\n%-16s %s", e.Name, score)
	}

	fw := fmt.Sprintf("%s\nPending:   %d\nVerified:  %d\nRejected:  %d",
		titleStyle.Render("Firmware"), d.Firmware.Pending, d.Firmware.Verified, d.Firmware.Rejected)
	if d.Firmware.Skipped > 0 {
		fw += "\n" + warnStyle.Render(fmt.Sprintf("Unreadable: %d", d.Firmware.Skipped))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(msgs.String()),
		panelStyle.Render(ecus.String()),
		panelStyle.Render(fw),
	)
	return lipgloss.JoinVertical(lipgloss.Left, panelStyle.Render(header), body)
}
