// Package console renders screener progress to a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gookit/color"
	"github.com/mattn/go-isatty"
	"github.com/ternarybob/banner"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

const clearSequence = "\033[H\033[2J"

// Options configures a Presenter.
type Options struct {
	Out           io.Writer
	ClearTerminal bool
	MomentumMFI   float64
	ReversalMFI   float64
	Location      *time.Location
	// Banner prints the title block. Defaults to banner.PrintSimple when Out is
	// os.Stdout and to plain bold lines on Out otherwise.
	Banner func(title, subtitle string)
}

// Presenter implements ports.Presenter.
type Presenter struct {
	out         io.Writer
	isTTY       bool
	clear       bool
	momentumMFI float64
	reversalMFI float64
	loc         *time.Location
	banner      func(title, subtitle string)
}

// NewPresenter builds a presenter. Clearing only happens when Out is a terminal.
func NewPresenter(opts Options) *Presenter {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	tty := false
	if f, ok := opts.Out.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	if !tty {
		color.Disable()
	}
	p := &Presenter{
		out:         opts.Out,
		isTTY:       tty,
		clear:       opts.ClearTerminal,
		momentumMFI: opts.MomentumMFI,
		reversalMFI: opts.ReversalMFI,
		loc:         opts.Location,
		banner:      opts.Banner,
	}
	if p.banner == nil {
		// banner writes to os.Stdout only.
		if opts.Out == os.Stdout {
			p.banner = banner.PrintSimple
		} else {
			p.banner = p.plainBanner
		}
	}
	return p
}

func (p *Presenter) plainBanner(title, subtitle string) {
	p.println(color.Bold.Sprint(title))
	p.println(color.Bold.Sprint(subtitle))
}

// Header clears the screen (TTY only) and prints the title with the current time.
func (p *Presenter) Header(symbol string, now time.Time) {
	if p.clear && p.isTTY {
		fmt.Fprint(p.out, clearSequence)
	}
	p.banner(strings.ToUpper(symbol)+" Weekly ITM Call Screener", now.In(p.loc).Format("Monday, January 02, 2006 03:04 PM"))
	p.println("")
}

// Snapshot prints price, VWAP and MFI, plus the bands when available.
func (p *Presenter) Snapshot(symbol string, s domain.IndicatorSnapshot) {
	p.println(color.Green.Sprintf("%s Price: $%s | VWAP: $%s | MFI: %s",
		symbol, domain.Money(s.Price), domain.Money(s.VWAP), domain.Fixed(s.MFI, 2)))
	if s.HasBands {
		p.println(color.Cyan.Sprintf("VWAP bands: $%s / $%s | ATR: %s",
			domain.Money(s.LowerBand), domain.Money(s.UpperBand), domain.Fixed(s.ATR, 4)))
	}
}

// Signal prints the buy or no-buy line.
func (p *Presenter) Signal(symbol string, sig domain.Signal) {
	switch sig.Kind {
	case domain.SignalMomentumBreakout:
		p.println(color.Green.Sprintf("Buy Signal: %s is above VWAP and MFI > %s", symbol, domain.Fixed(p.momentumMFI, 0)))
	case domain.SignalReversalBounce:
		p.println(color.Green.Sprintf("Buy Signal: %s is below the lower VWAP band and MFI < %s", symbol, domain.Fixed(p.reversalMFI, 0)))
	default:
		p.println(color.Red.Sprintf("No Buy Signal: %s below VWAP or MFI too low", symbol))
	}
	p.println("")
}

// Expiration prints the chosen expiration date.
func (p *Presenter) Expiration(label string) {
	p.println(color.Bold.Sprintf("Expiration: %s", label))
}

// Ranking prints the top contracts table and the suggested contract.
func (p *Presenter) Ranking(r *domain.Ranking) {
	if r.NoCandidates() {
		return
	}
	p.println(color.Bold.Sprint("Top ITM Calls Near Spot"))

	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Contract\tStrike\tLast Price\tIV\tVolume\tOI\tLiquidity\t% ITM\t")
	for _, c := range r.Top {
		fmt.Fprintf(tw, "%s\t$%s\t$%s\t%s\t%s\t%s\t%s\t%s%%\t\n",
			c.Symbol,
			domain.Money(c.Strike),
			domain.Money(c.LastPrice),
			domain.Fixed(c.ImpliedVolatility, 4),
			domain.Fixed(c.Volume, 0),
			domain.Fixed(c.OpenInterest, 0),
			domain.Fixed(c.Liquidity, 2),
			domain.Fixed(c.PercentITM, 2),
		)
	}
	_ = tw.Flush()

	if r.Suggested != nil {
		p.println("")
		p.println(color.Magenta.Sprintf("Suggested Contract to Buy: %s (Strike: $%s)", r.Suggested.Symbol, domain.Money(r.Suggested.Strike)))
	}
}

// Notice prints an operator message colored by level.
func (p *Presenter) Notice(level ports.NoticeLevel, msg string) {
	switch level {
	case ports.NoticeError:
		p.println(color.Red.Sprint(msg))
	case ports.NoticeWarn:
		p.println(color.Yellow.Sprint(msg))
	default:
		p.println(msg)
	}
}

func (p *Presenter) println(s string) {
	fmt.Fprintln(p.out, s)
}
