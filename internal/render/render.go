package render

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/template"

	"github.com/danielpatrickdp/agit/internal/record"
	"github.com/danielpatrickdp/agit/internal/token"
	"github.com/danielpatrickdp/agit/internal/topology"
)

// #region renderer

// Renderer turns token sequences and topology symbols into locale text.
// It is safe for concurrent use once constructed.
type Renderer struct {
	locales map[string]*locale
	codes   []string
	def     string
	logger  *slog.Logger

	indexOnce sync.Once
	index     map[string]token.Sequence // default-locale subject -> tokens
}

type locale struct {
	table     Table
	templates map[string]*template.Template
	suffix    *template.Template
}

// templateData is what locale templates can reference.
type templateData struct {
	Action    string
	Domain    string // first domain
	Domains   string // all domains, list-joined
	Modifiers string
}

// New compiles the tables. defaultLocale must be among them; nil logger uses slog.Default().
func New(tables []Table, defaultLocale string, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{
		locales: make(map[string]*locale, len(tables)),
		def:     normalizeCode(defaultLocale),
		logger:  logger,
	}
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		l, err := compile(t)
		if err != nil {
			return nil, err
		}
		r.locales[t.Code] = l
		r.codes = append(r.codes, t.Code)
	}
	if _, ok := r.locales[r.def]; !ok {
		return nil, fmt.Errorf("default locale %q has no table", defaultLocale)
	}
	return r, nil
}

// NewBuiltin builds a Renderer over the embedded tables filtered to supported.
func NewBuiltin(defaultLocale string, supported []string, logger *slog.Logger) (*Renderer, error) {
	tables, err := Builtin()
	if err != nil {
		return nil, err
	}
	tables, err = Supported(tables, supported)
	if err != nil {
		return nil, err
	}
	return New(tables, defaultLocale, logger)
}

// Default returns the canonical locale code.
func (r *Renderer) Default() string { return r.def }

// Locales returns the supported codes in configuration order.
func (r *Renderer) Locales() []string {
	return append([]string(nil), r.codes...)
}

// #endregion renderer

// #region render

// Render produces the subject and topology interpretation for the given locale.
// It never fails: unsupported locales fall back to the default with Fallback set.
func (r *Renderer) Render(seq token.Sequence, symbol rune, code string) Result {
	l, fallback := r.resolve(code)
	if fallback {
		r.logger.Warn("locale not supported, rendering default",
			"locale", code, "default", r.def)
	}
	res := Result{
		Text:     l.subject(seq),
		Locale:   l.table.Code,
		Fallback: fallback,
	}
	if c, err := topology.Decode(symbol); err == nil {
		res.Detail = l.detail(c)
	}
	return res
}

// resolve maps a requested code to a table. "" and "default" are the default locale;
// "en-GB" falls back to "en" before falling back to the default.
func (r *Renderer) resolve(code string) (*locale, bool) {
	c := normalizeCode(code)
	if c == "" || c == DefaultAlias {
		return r.locales[r.def], false
	}
	if l, ok := r.locales[c]; ok {
		return l, false
	}
	if i := strings.IndexByte(c, '-'); i > 0 {
		if l, ok := r.locales[c[:i]]; ok {
			return l, false
		}
	}
	return r.locales[r.def], true
}

// #endregion render

// #region locale

func compile(t Table) (*locale, error) {
	l := &locale{table: t, templates: make(map[string]*template.Template, len(t.Templates))}
	for key, src := range t.Templates {
		if err := checkKey(key); err != nil {
			return nil, fmt.Errorf("locale %s: %w", t.Code, err)
		}
		tmpl, err := parse(t.Code+":"+key, src)
		if err != nil {
			return nil, err
		}
		l.templates[key] = tmpl
	}
	if t.Suffix != "" {
		tmpl, err := parse(t.Code+":suffix", t.Suffix)
		if err != nil {
			return nil, err
		}
		l.suffix = tmpl
	}
	return l, nil
}

func parse(name, src string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	// Field typos only surface on execution.
	if err := tmpl.Execute(&strings.Builder{}, templateData{}); err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return tmpl, nil
}

// checkKey accepts "*", "action/*" and "action/domain" over the vocabulary keys.
func checkKey(key string) error {
	if key == Wildcard {
		return nil
	}
	action, domain, ok := strings.Cut(key, "/")
	if !ok || !isKey(token.Actions, action) || (domain != Wildcard && !isKey(token.Domains, domain)) {
		return fmt.Errorf("bad template key %q", key)
	}
	return nil
}

func isKey(toks []token.Token, key string) bool {
	for _, t := range toks {
		if t.Key() == key {
			return true
		}
	}
	return false
}

// subject renders the first line. A pair template applies only when the sequence has
// exactly one domain, so multi-domain subjects keep every domain word.
func (l *locale) subject(seq token.Sequence) string {
	action := seq.Action()
	domains := seq.Domains()
	mods := seq.Modifiers()

	data := templateData{
		Action:    l.word(l.table.Actions, action),
		Domains:   l.join(l.table.Domains, domains),
		Modifiers: l.join(l.table.Modifiers, mods),
	}
	if len(domains) > 0 {
		data.Domain = l.word(l.table.Domains, domains[0])
	}

	var keys []string
	if len(domains) == 1 {
		keys = append(keys, action.Key()+"/"+domains[0].Key())
	}
	keys = append(keys, action.Key()+"/"+Wildcard, Wildcard)

	var b strings.Builder
	for _, k := range keys {
		tmpl, ok := l.templates[k]
		if !ok {
			continue
		}
		if err := tmpl.Execute(&b, data); err == nil {
			break
		}
		b.Reset()
	}
	if b.Len() == 0 {
		b.WriteString(strings.TrimSpace(data.Action + " " + data.Domains))
	}
	if len(mods) > 0 && l.suffix != nil {
		if err := l.suffix.Execute(&b, data); err != nil {
			return b.String()
		}
	}
	return b.String()
}

func (l *locale) detail(c topology.Coordinate) string {
	p := l.table.Topology
	return strings.Join([]string{
		p.Kappa[topology.KappaBand(c.Kappa)],
		p.Sigma[topology.SigmaBand(c.Sigma)],
		p.Delta[topology.DeltaBand(c.Delta)],
	}, p.Separator)
}

func (l *locale) word(words map[string]string, t token.Token) string {
	if w, ok := words[t.Key()]; ok {
		return w
	}
	return string(t)
}

// join renders "a", "a and b", "a, b and c".
func (l *locale) join(words map[string]string, toks []token.Token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = l.word(words, t)
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	sep, last := l.table.List.Separator, l.table.List.Last
	if last == "" {
		last = sep
	}
	return strings.Join(parts[:len(parts)-1], sep) + last + parts[len(parts)-1]
}

// #endregion locale

// #region parse

// Parse recovers tokens from text in the default locale. The SCL trailer is used when
// present; otherwise the subject line is matched against every rendering the default
// locale can produce. Hand-edited subjects generally do not parse.
func (r *Renderer) Parse(text string) (Parsed, error) {
	if tr, err := record.ParseTrailer(text); err == nil {
		return Parsed{Tokens: tr.Tokens, Symbol: tr.Symbol, Source: "trailer"}, nil
	}
	subject := strings.TrimSpace(firstLine(text))
	r.indexOnce.Do(r.buildIndex)
	seq, ok := r.index[subject]
	if !ok {
		return Parsed{}, fmt.Errorf("%w: %q", ErrUnparsed, subject)
	}
	return Parsed{Tokens: append(token.Sequence(nil), seq...), Source: "subject"}, nil
}

// buildIndex renders every action with every domain set and modifier set.
// General never co-occurs with other domains. The first sequence to claim a subject wins.
func (r *Renderer) buildIndex() {
	l := r.locales[r.def]
	var specific []token.Token
	for _, d := range token.Domains {
		if d != token.General {
			specific = append(specific, d)
		}
	}
	domainSets := [][]token.Token{{token.General}}
	for mask := 1; mask < 1<<len(specific); mask++ {
		domainSets = append(domainSets, subset(specific, mask))
	}
	r.index = make(map[string]token.Sequence)
	for _, a := range token.Actions {
		for _, ds := range domainSets {
			for mask := 0; mask < 1<<len(token.Modifiers); mask++ {
				seq := token.Sequence{a}
				seq = append(seq, ds...)
				seq = append(seq, subset(token.Modifiers, mask)...)
				s := l.subject(seq)
				if _, taken := r.index[s]; !taken {
					r.index[s] = seq
				}
			}
		}
	}
}

func subset(toks []token.Token, mask int) []token.Token {
	var out []token.Token
	for i, t := range toks {
		if mask&(1<<i) != 0 {
			out = append(out, t)
		}
	}
	return out
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return line
}

// #endregion parse
