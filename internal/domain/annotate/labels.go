package annotate

import (
	"embed"
	"fmt"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
)

//go:embed locales/*.yaml
var locales embed.FS

const quarantineMessageID = "quarantine"

// Labeler renders localized milestone text. It is safe for concurrent use.
type Labeler struct {
	lang      string
	localizer *i18n.Localizer
}

// NewLabeler loads the embedded message files and returns a labeler for
// lang ("en" or "es"). Other languages fall back to English.
func NewLabeler(lang string) (*Labeler, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLocales, err)
	}
	for _, e := range entries {
		p := path.Join("locales", e.Name())
		buf, err := locales.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLocales, p, err)
		}
		if _, err := bundle.ParseMessageFileBytes(buf, p); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLocales, p, err)
		}
	}
	return &Labeler{lang: lang, localizer: i18n.NewLocalizer(bundle, lang)}, nil
}

// Language returns the requested language.
func (l *Labeler) Language() string {
	if l == nil {
		return "en"
	}
	return l.lang
}

// Text returns the display text of the n-th milestone, for example
// "1st quarantine" or "1ª cuarentena". A nil Labeler renders English.
func (l *Labeler) Text(n int) string {
	fallback := Ordinal(n) + " quarantine"
	if l == nil {
		return fallback
	}
	ord := Ordinal(n)
	if base, _ := language.Make(l.lang).Base(); base.String() == "es" {
		ord = fmt.Sprintf("%dª", n)
	}
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    quarantineMessageID,
		TemplateData: map[string]any{"Ordinal": ord},
	})
	if err != nil {
		return fallback
	}
	return msg
}

// Ordinal returns the English ordinal of n: 1st, 2nd, 3rd, 4th, 11th, 21st.
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
