package service

import (
	"fmt"
	"strings"
	"time"

	"signal_bot/internal/models"
)

const (
	defaultBrand   = "Lekzy FX Pro"
	defaultTagline = "⚡ Signal powered by Lekzy FX Premium Intelligence"
)

// Renderer собирает тексты стадий. В сообщения попадают только направление,
// уверенность, символ, обоснование, время входа и id.
type Renderer struct {
	Brand   string
	Tagline string
	Zone    *time.Location
}

func NewRenderer(brand, tagline string, zone *time.Location) *Renderer {
	if brand == "" {
		brand = defaultBrand
	}
	if tagline == "" {
		tagline = defaultTagline
	}
	if zone == nil {
		zone = time.UTC
	}
	return &Renderer{Brand: brand, Tagline: tagline, Zone: zone}
}

func (r *Renderer) clock(t time.Time) string {
	return t.In(r.Zone).Format("15:04:05 MST")
}

func expiry(tf models.Timeframe) string {
	d := tf.Duration()
	if d >= time.Hour {
		return fmt.Sprintf("%d h (%s)", int(d.Hours()), tf)
	}
	return fmt.Sprintf("%d min (%s)", int(d.Minutes()), tf)
}

func (r *Renderer) PreAlert(sig models.Signal, tl Timeline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 *%s — Upcoming Signal (pre-alert)*\n\n", r.Brand)
	fmt.Fprintf(&b, "Asset: %s\nDirection: %s %s\n", sig.Symbol, sig.Direction, sig.Direction.Arrow())
	fmt.Fprintf(&b, "🕐 Entry at %s (next candle)\n", r.clock(tl.Entry))
	b.WriteString("⏳ Pre-alert — wait for confirmation\n\n")
	fmt.Fprintf(&b, "%s\n%s", sig.ID, r.Tagline)
	return b.String()
}

func (r *Renderer) Confirmation(sig models.Signal, tl Timeline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📢 *%s — Confirmation*\n\n", r.Brand)
	fmt.Fprintf(&b, "%s — %s\n", sig.Direction, sig.Symbol)
	fmt.Fprintf(&b, "Will open on the next candle (%s).\n", r.clock(tl.Entry))
	fmt.Fprintf(&b, "Confidence: %d%%\n\n%s\n\n%s", sig.Confidence, sig.Text(), sig.ID)
	return b.String()
}

func (r *Renderer) Entry(sig models.Signal, tl Timeline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📣 *%s — ENTRY*\n\n", r.Brand)
	fmt.Fprintf(&b, "%s %s *%s*\n", sig.Direction, sig.Direction.Arrow(), sig.Symbol)
	fmt.Fprintf(&b, "Expiry: %s\n", expiry(sig.Timeframe))
	fmt.Fprintf(&b, "Confidence: %d%%\n\n", sig.Confidence)
	fmt.Fprintf(&b, "%s\n\n%s\n%s", sig.Text(), sig.ID, r.Tagline)
	return b.String()
}

func (r *Renderer) Result(sig models.Signal, outcome models.Outcome) string {
	var head, summary string
	switch outcome {
	case models.OutcomeWin:
		head, summary = "✅ WIN", "Momentum held — trade closed in profit."
	case models.OutcomeLoss:
		head, summary = "❌ LOSS", "Market reversed — loss."
	default:
		head, summary = "⚪ VOID", "No price movement — trade voided."
	}
	return fmt.Sprintf("%s — %s (%s)\n🎯 Confidence: %d%%\n%s\n\n%s",
		head, sig.Symbol, sig.Direction, sig.Confidence, summary, sig.ID)
}

// Render — текст стадии i из models.Stages; для результата нужен outcome.
func (r *Renderer) Render(stage models.Stage, sig models.Signal, tl Timeline, outcome models.Outcome) string {
	switch stage {
	case models.StagePreAlert:
		return r.PreAlert(sig, tl)
	case models.StageConfirmation:
		return r.Confirmation(sig, tl)
	case models.StageEntry:
		return r.Entry(sig, tl)
	default:
		return r.Result(sig, outcome)
	}
}
