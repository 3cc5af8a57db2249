package i18n

import (
	"strings"
	"sync/atomic"

	"golang.org/x/text/language"
)

// catalogs holds the user-facing strings per supported language.
// Variables are written as {{name}}.
var catalogs = map[language.Tag]map[string]string{
	language.Korean: {
		"chat.response_failed": "응답 생성에 실패했습니다: {{reason}}",
		"chat.echo_fallback":   "음... 뭐라고 말해야 할지 잘 모르겠어.",
		"toast.memory_added":   "새로운 기억이 추가되었습니다: {{memory}}",
		"image.generating":     "이미지를 생성하는 중...",
		"image.failed":         "이미지 생성에 실패했습니다.",
	},
	language.English: {
		"chat.response_failed": "Failed to generate a response: {{reason}}",
		"chat.echo_fallback":   "Hmm... I'm not sure what to say to that.",
		"toast.memory_added":   "New memory added: {{memory}}",
		"image.generating":     "Generating image...",
		"image.failed":         "Image generation failed.",
	},
}

var supported = []language.Tag{language.Korean, language.English}

var matcher = language.NewMatcher(supported)

// Translator renders catalog entries in the current locale
type Translator struct {
	tag atomic.Value // language.Tag
}

// New returns a translator for locale, falling back to Korean for unknown tags
func New(locale string) *Translator {
	t := &Translator{}
	t.SetLocale(locale)
	return t
}

// SetLocale switches the language used by later calls to T
func (t *Translator) SetLocale(locale string) {
	t.tag.Store(Match(locale))
}

// Locale returns the active language
func (t *Translator) Locale() language.Tag {
	return t.tag.Load().(language.Tag)
}

// T looks up key and substitutes vars. Keys missing from the active catalog
// fall back to English, then to the key itself.
func (t *Translator) T(key string, vars map[string]string) string {
	text, ok := catalogs[t.Locale()][key]
	if !ok {
		if text, ok = catalogs[language.English][key]; !ok {
			return key
		}
	}
	for name, value := range vars {
		text = strings.ReplaceAll(text, "{{"+name+"}}", value)
	}
	return text
}

// Match picks the supported language closest to an Accept-Language style locale
func Match(locale string) language.Tag {
	if strings.TrimSpace(locale) == "" {
		return supported[0]
	}
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return supported[0]
	}
	_, index, conf := matcher.Match(tags...)
	if conf == language.No {
		return supported[0]
	}
	return supported[index]
}
