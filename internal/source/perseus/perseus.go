package perseus

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lexicrawl/lexicrawl/internal/model"
	"github.com/lexicrawl/lexicrawl/internal/source"
)

const (
	// DefaultBaseURL is the Perseus Digital Library reader endpoint.
	DefaultBaseURL = "https://www.perseus.tufts.edu/hopper"

	// DefaultTag marks entries extracted from the LSJ lexicon.
	DefaultTag = "lsj"

	// lsjDocID is the Perseus document identifier of the
	// Liddell-Scott-Jones Greek-English Lexicon.
	lsjDocID = "Perseus:text:1999.04.0057"
)

// Adapter implements source.Adapter for the LSJ lexicon hosted on Perseus.
//
// The site is browsed in two hops: a letter page per Greek letter listing
// entry-group links, and an entry page per group carrying the definitions in
// a div with class "text".
type Adapter struct {
	baseURL    *url.URL
	tag        string
	maxLetters int
	maxPerPage int
	logger     *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBaseURL points the adapter at a different host, primarily for tests
// that serve recorded pages locally.
func WithBaseURL(raw string) Option {
	return func(a *Adapter) {
		if u, err := url.Parse(raw); err == nil {
			a.baseURL = u
		}
	}
}

// WithTag overrides the source tag stored on extracted entries.
func WithTag(tag string) Option {
	return func(a *Adapter) { a.tag = tag }
}

// WithMaxLetters limits how many alphabet sections are seeded (0 = all).
func WithMaxLetters(n int) Option {
	return func(a *Adapter) { a.maxLetters = n }
}

// WithMaxEntriesPerLetter limits how many entry links are taken from each
// letter page (0 = all).
func WithMaxEntriesPerLetter(n int) Option {
	return func(a *Adapter) { a.maxPerPage = n }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// New creates an LSJ adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		tag:    DefaultTag,
		logger: slog.New(slog.DiscardHandler),
	}
	a.baseURL, _ = url.Parse(DefaultBaseURL)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tag implements source.Adapter.
func (a *Adapter) Tag() string { return a.tag }

// SeedTargets implements source.Adapter. It returns one discovery target per
// alphabet section, honoring the letter limit.
func (a *Adapter) SeedTargets() ([]*model.CrawlTarget, error) {
	seeds := letters
	if a.maxLetters > 0 && a.maxLetters < len(seeds) {
		seeds = seeds[:a.maxLetters]
	}

	targets := make([]*model.CrawlTarget, 0, len(seeds))
	for _, letter := range seeds {
		rawURL := a.letterURL(letter.Betacode)
		target, err := model.NewTarget(model.KindDiscovery, rawURL)
		if err != nil {
			return nil, fmt.Errorf("seed for letter %s: %w", letter.Name, err)
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// letterURL builds the letter-page URL for a betacode letter.
func (a *Adapter) letterURL(betacode string) string {
	doc := fmt.Sprintf("%s:alphabetic letter=%s", lsjDocID, betacode)
	return a.baseURL.String() + "/text?doc=" + encodeDoc(doc)
}

// encodeDoc query-escapes a doc parameter value the way Perseus links do,
// with %20 for spaces rather than +.
func encodeDoc(doc string) string {
	return strings.ReplaceAll(url.QueryEscape(doc), "+", "%20")
}

// Parse implements source.Adapter.
func (a *Adapter) Parse(target *model.CrawlTarget, body []byte) (*source.Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &source.ParseError{URL: target.URL, Err: err}
	}

	switch target.Kind {
	case model.KindDiscovery:
		return a.parseLetterPage(target, doc)
	case model.KindEntry:
		return a.parseEntryPage(target, doc)
	default:
		return nil, &source.ParseError{URL: target.URL, Err: fmt.Errorf("unknown target kind %q", target.Kind)}
	}
}

// parseLetterPage extracts entry links from an alphabet section page.
//
// Pages have carried the links under div.entry_list or div.entry_group
// depending on site version; as a last resort, links inside the text block
// are taken, filtered down to ones that look like entry references.
func (a *Adapter) parseLetterPage(target *model.CrawlTarget, doc *goquery.Document) (*source.Result, error) {
	links := doc.Find("div.entry_list a")
	if links.Length() == 0 {
		links = doc.Find("div.entry_group a")
	}
	filtered := false
	if links.Length() == 0 {
		links = doc.Find("div.text a")
		filtered = true
	}
	if links.Length() == 0 {
		return nil, &source.ParseError{URL: target.URL, Err: fmt.Errorf("no entry links found")}
	}

	seen := make(map[string]bool)
	var discovered []*model.CrawlTarget
	links.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		text := strings.TrimSpace(sel.Text())
		if !ok || href == "" || text == "" {
			return true
		}
		if filtered && (strings.HasPrefix(href, "#") || strings.Contains(strings.ToLower(href), "browse") || len(text) < 2) {
			return true
		}

		abs, err := a.resolve(href)
		if err != nil {
			a.logger.Debug("skipping unresolvable link",
				slog.String("page", target.URL), slog.String("href", href))
			return true
		}
		entry, err := model.NewTarget(model.KindEntry, abs)
		if err != nil {
			a.logger.Debug("skipping invalid entry link",
				slog.String("page", target.URL), slog.String("href", href))
			return true
		}
		if seen[entry.ID] {
			return true
		}
		seen[entry.ID] = true
		discovered = append(discovered, entry)

		return a.maxPerPage <= 0 || len(discovered) < a.maxPerPage
	})

	return &source.Result{Discovered: discovered}, nil
}

// parseEntryPage extracts the definition content of an entry page. A page
// without a text block (Perseus serves these for gaps in the lexicon) is
// not an error; it simply yields nothing.
func (a *Adapter) parseEntryPage(target *model.CrawlTarget, doc *goquery.Document) (*source.Result, error) {
	block := doc.Find("div.text").First()
	if block.Length() == 0 {
		block = doc.Find(".text").First()
	}
	if block.Length() == 0 {
		return &source.Result{}, nil
	}

	html, err := block.Html()
	if err != nil {
		return nil, &source.ParseError{URL: target.URL, Err: err}
	}
	text := strings.TrimSpace(block.Text())
	if text == "" {
		return &source.Result{}, nil
	}

	key := docKey(target.URL)
	lemma := model.NormalizeLemma(block.Find("a[name]").First().AttrOr("name", ""))
	if lemma == "" {
		lemma = leafValue(key)
	}
	if lemma == "" {
		return nil, &source.ParseError{URL: target.URL, Err: fmt.Errorf("no headword found")}
	}

	entry := &model.LexiconEntry{
		Identifier: model.EntryIdentifier(lemma, groupNumber(key)),
		Lemma:      lemma,
		SourceTag:  a.tag,
		Text:       text,
		HTML:       html,
		SourceURL:  target.URL,
	}
	return &source.Result{Entries: []*model.LexiconEntry{entry}}, nil
}

// resolve makes href absolute against the adapter base URL.
func (a *Adapter) resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return a.baseURL.ResolveReference(ref).String(), nil
}

// docKey extracts the Perseus doc parameter from an entry URL. It is the
// stable key the site itself uses to address a page; the URL is the
// fallback when the parameter is absent.
func docKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if doc := u.Query().Get("doc"); doc != "" {
		return doc
	}
	return rawURL
}

// leafValue returns the value of the last "name=value" segment of a doc
// key, e.g. "a)gaqo/s" from "...:entry=a)gaqo/s".
func leafValue(key string) string {
	segments := strings.Split(key, ":")
	last := segments[len(segments)-1]
	if i := strings.IndexByte(last, '='); i >= 0 {
		return strings.TrimSpace(last[i+1:])
	}
	return strings.TrimSpace(last)
}

// groupNumber returns the entry-group number from a doc key, or "" when the
// key has none (EntryIdentifier then defaults the disambiguator).
func groupNumber(key string) string {
	for _, segment := range strings.Split(key, ":") {
		if v, ok := strings.CutPrefix(segment, "entry group="); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
