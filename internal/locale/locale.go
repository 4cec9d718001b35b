// Package locale provides localized display strings: event labels and the
// count units used when abbreviating large numbers.
package locale

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/talgya/earthsim/internal/ecosystem"
)

// Message keys for count units.
const (
	KeyBillion = "unit.billion"
	KeyMillion = "unit.million"
)

var supported = []language.Tag{language.English, language.Russian}

var matcher = language.NewMatcher(supported)

var messages = mustBuild()

var translations = map[language.Tag]map[string]string{
	language.English: {
		KeyBillion: "B",
		KeyMillion: "M",
	},
	language.Russian: {
		KeyBillion: "млрд",
		KeyMillion: "млн",

		eventKey(ecosystem.EventMeteor):     "Метеорит",
		eventKey(ecosystem.EventPeople):     "Рост населения",
		eventKey(ecosystem.EventWater):      "Добавление воды",
		eventKey(ecosystem.EventVegetation): "Озеленение",
		eventKey(ecosystem.EventHurricane):  "Ураган",
		eventKey(ecosystem.EventWarming):    "Глобальное потепление",
		eventKey(ecosystem.EventPollution):  "Загрязнение",
		eventKey(ecosystem.EventTsunami):    "Цунами",
		eventKey(ecosystem.EventMountains):  "Поднятие гор",
		eventKey(ecosystem.EventReset):      "Перезапуск",
	},
}

func mustBuild() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, k := range ecosystem.EventKinds() {
		if err := b.SetString(language.English, eventKey(k), ecosystem.DefaultLabel(k)); err != nil {
			panic(err)
		}
	}
	for tag, msgs := range translations {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

func eventKey(k ecosystem.EventKind) string {
	return "event." + k.String()
}

// Supported returns the languages with full translations.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Match picks the best supported language for the given BCP 47 or
// Accept-Language value. Unparseable input falls back to English.
func Match(value string) language.Tag {
	value = strings.TrimSpace(value)
	if value == "" {
		return language.English
	}
	tags, _, err := language.ParseAcceptLanguage(value)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := matcher.Match(tags...)
	return supported[idx]
}

// Labels renders display strings in one language. It implements
// ecosystem.Labeler.
type Labels struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns Labels for the supported language closest to tag.
func New(tag language.Tag) Labels {
	_, idx, _ := matcher.Match(tag)
	t := supported[idx]
	return Labels{tag: t, printer: message.NewPrinter(t, message.Catalog(messages))}
}

// Tag is the resolved language.
func (l Labels) Tag() language.Tag {
	return l.tag
}

// Label returns the localized name of an event kind.
func (l Labels) Label(k ecosystem.EventKind) string {
	if l.printer == nil {
		return ecosystem.DefaultLabel(k)
	}
	return l.printer.Sprintf(eventKey(k))
}

// Text returns the localized message for key, or key itself when missing.
func (l Labels) Text(key string) string {
	if l.printer == nil {
		if msg, ok := translations[language.English][key]; ok {
			return msg
		}
		return key
	}
	return l.printer.Sprintf(key)
}
