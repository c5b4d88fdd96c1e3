package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/danielpatrickdp/agit/internal/render"
	"github.com/danielpatrickdp/agit/internal/token"
	"github.com/danielpatrickdp/agit/internal/topology"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// #region render

func newRenderCmd(a *app) *cobra.Command {
	var locale string

	cmd := &cobra.Command{
		Use:   "render TOKENS SYMBOL",
		Short: "Render a token sequence and topology symbol",
		Long: `Render tokens and a topology symbol into a commit subject and topology
interpretation. TOKENS is a comma separated list of token names or a dot
separated glyph string. SYMBOL is a topology symbol or a "κ,σ,δ" triple.

Examples:
  agit render Update,Documentation ⡁
  agit render add,testing,enhancement 3,0,1 --locale fr`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := parseTokens(args[0])
			if err != nil {
				return err
			}
			c, err := parseSymbol(args[1])
			if err != nil {
				return err
			}
			r, err := a.renderer()
			if err != nil {
				return err
			}
			if locale == "" {
				locale = a.cfg.Locale
			}
			res := r.Render(seq, topology.Encode(c), locale)
			w := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(w, res)
			}
			fmt.Fprintln(w, res.Text)
			fmt.Fprintln(w, mutedStyle.Render(res.Detail))
			if res.Fallback {
				fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(fmt.Sprintf("locale %q not supported, rendered %s", locale, res.Locale)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&locale, "locale", "l", "", "locale code (default: configured locale)")
	return cmd
}

func parseTokens(text string) (token.Sequence, error) {
	if strings.Contains(text, ",") || isASCII(text) {
		return token.ParseNames(text)
	}
	return token.ParseGlyphs(text)
}

// parseSymbol accepts a single alphabet rune or a "k,s,d" triple.
func parseSymbol(text string) (topology.Coordinate, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) == 1 {
		r, _ := utf8.DecodeRuneInString(text)
		return topology.Decode(r)
	}
	parts := strings.Split(text, ",")
	if len(parts) != 3 {
		return topology.Coordinate{}, fmt.Errorf("symbol %q: want one symbol or κ,σ,δ", text)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return topology.Coordinate{}, fmt.Errorf("symbol %q: %w", text, err)
		}
		v[i] = n
	}
	return topology.NewCoordinate(v[0], v[1], v[2])
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// #endregion render

// #region decode

func newDecodeCmd(a *app) *cobra.Command {
	var messagePath string

	cmd := &cobra.Command{
		Use:   "decode [SYMBOL]",
		Short: "Decode a topology symbol or a commit message",
		Long: `Decode a topology symbol into its coordinate and interpretation, or, with
--message, recover the tokens of a commit message from its trailer or subject.

Examples:
  agit decode ⡃
  git log -1 --format=%B | agit decode --message -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if messagePath != "" {
				msg, err := readInput(a.fs, cmd.InOrStdin(), messagePath)
				if err != nil {
					return err
				}
				r, err := a.renderer()
				if err != nil {
					return err
				}
				p, err := r.Parse(msg)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return writeJSON(w, p)
				}
				fmt.Fprintln(w, row("Tokens", p.Tokens.String()))
				fmt.Fprintln(w, row("Source", p.Source))
				if p.Symbol != 0 {
					if c, err := topology.Decode(p.Symbol); err == nil {
						fmt.Fprintln(w, row("Topology", symbolStyle.Render(string(p.Symbol))+"  "+c.String()+"  "+c.Interpret()))
					}
				}
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("decode: need a SYMBOL or --message")
			}
			c, err := parseSymbol(args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(w, struct {
					Symbol     string              `json:"symbol"`
					Codepoint  string              `json:"codepoint"`
					Coordinate topology.Coordinate `json:"coordinate"`
					Meaning    string              `json:"meaning"`
				}{string(topology.Encode(c)), fmt.Sprintf("%U", topology.Encode(c)), c, c.Interpret()})
			}
			fmt.Fprintln(w, row("Symbol", symbolStyle.Render(string(topology.Encode(c)))+fmt.Sprintf("  %U", topology.Encode(c))))
			fmt.Fprintln(w, row("Axes", c.String()))
			fmt.Fprintln(w, row("Meaning", c.Interpret()))
			return nil
		},
	}
	cmd.Flags().StringVar(&messagePath, "message", "", "decode a commit message file (\"-\" for stdin)")
	return cmd
}

// #endregion decode

// #region table

func newTableCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the 256-symbol topology table",
		Long: `Print every topology symbol, one grid per drift value δ, with σ rows and
κ columns.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if a.jsonOut {
				type entry struct {
					Symbol     string              `json:"symbol"`
					Coordinate topology.Coordinate `json:"coordinate"`
				}
				entries := make([]entry, 0, topology.Size)
				for _, r := range topology.Alphabet() {
					c, _ := topology.Decode(r)
					entries = append(entries, entry{string(r), c})
				}
				return writeJSON(w, entries)
			}
			writeTable(w)
			return nil
		},
	}
}

func writeTable(w io.Writer) {
	cell := lipgloss.NewStyle().Width(3).Align(lipgloss.Center)
	head := cell.Foreground(lipgloss.Color("#a6adc8"))
	for d := 0; d <= topology.MaxDelta; d++ {
		label := topology.Coordinate{Delta: d}.Interpret()
		label = label[strings.LastIndex(label, ", ")+2:]
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("δ%d  %s", d, label)))

		var b strings.Builder
		b.WriteString(head.Render(""))
		for k := 0; k <= topology.MaxKappa; k++ {
			b.WriteString(head.Render(fmt.Sprintf("κ%d", k)))
		}
		fmt.Fprintln(w, b.String())
		for s := 0; s <= topology.MaxSigma; s++ {
			b.Reset()
			b.WriteString(head.Render(fmt.Sprintf("σ%d", s)))
			for k := 0; k <= topology.MaxKappa; k++ {
				b.WriteString(cell.Render(string(topology.Encode(topology.Coordinate{Kappa: k, Sigma: s, Delta: d}))))
			}
			fmt.Fprintln(w, b.String())
		}
		fmt.Fprintln(w)
	}
}

// #endregion table

// #region audit

func newAuditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit [FILE]",
		Short: "Check a commit message subject against its trailer",
		Long: `Re-render a commit message from its SCL trailer and report any hand edits
to the subject as a character diff. FILE defaults to stdin.

Examples:
  git log -1 --format=%B | agit audit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			msg, err := readInput(a.fs, cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			r, err := a.renderer()
			if err != nil {
				return err
			}
			rep, err := r.Audit(msg)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(w, rep)
			}
			if !rep.Edited {
				fmt.Fprintln(w, row("Subject", "unchanged"))
				return nil
			}
			fmt.Fprintln(w, row("Expected", rep.Expected))
			fmt.Fprintln(w, row("Actual", rep.Actual))
			fmt.Fprintln(w, row("Diff", rep.Diff))
			fmt.Fprintln(w, row("Distance", strconv.Itoa(rep.Distance)))
			return nil
		},
	}
}

// #endregion audit

func (a *app) renderer() (*render.Renderer, error) {
	return render.NewBuiltin(a.cfg.DefaultLocale, a.cfg.SupportedLocales, a.logger)
}

func readInput(fs afero.Fs, stdin io.Reader, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = afero.ReadFile(fs, path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
