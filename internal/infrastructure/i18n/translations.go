package i18n

import (
	"embed"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"signupd/internal/ports/output"
)

//go:embed active.*.toml
var localeFS embed.FS

var localeFiles = []string{"active.en.toml", "active.fr.toml"}

var _ output.T = (*Translator)(nil)

// Translator is a thin wrapper around go-i18n's Bundle/Localizer.
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	log             logrus.FieldLogger
}

// NewTranslator builds a Translator from the embedded active.*.toml files.
// An unparseable defaultLocale falls back to English.
func NewTranslator(defaultLocale string, log logrus.FieldLogger) *Translator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		log.WithField("locale", defaultLocale).WithError(err).Warn("i18n: invalid default locale, using en")
		tag = language.English
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range localeFiles {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			log.WithField("file", file).WithError(err).Error("i18n: failed to load message file")
		}
	}

	return &Translator{
		bundle:          bundle,
		defaultLanguage: tag,
		log:             log,
	}
}

func (t *Translator) DefaultLocale() string {
	return t.defaultLanguage.String()
}

// Languages lists the locales that have a message file.
func (t *Translator) Languages() []language.Tag {
	return t.bundle.LanguageTags()
}

// T renders the message identified by key for the given locale.
// If the key/locale is not found, it falls back to the default locale,
// then finally to the key itself.
func (t *Translator) T(locale, key string, data map[string]any) string {
	if key == "" {
		return ""
	}

	languages := []string{}
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, t.defaultLanguage.String())

	localizer := i18n.NewLocalizer(t.bundle, languages...)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		t.log.WithFields(logrus.Fields{"key": key, "locales": languages}).WithError(err).Debug("i18n: localize failed")
		if msg == "" {
			return key
		}
	}
	return msg
}
