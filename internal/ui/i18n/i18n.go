// Пакет i18n — переводы страниц UI.
//
// Языки: fr (по умолчанию) и en. Язык запроса кладёт в контекст Middleware,
// страницы получают строки через T(ctx, key). Ключ без перевода ищется
// в каталоге DefaultLang, затем возвращается как есть.
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/text/language"
)

// DefaultLang — язык по умолчанию и язык fallback при отсутствии перевода.
const DefaultLang = "fr"

// languages — поддерживаемые языки, первый — язык по умолчанию для matcher.
var languages = []struct {
	code string
	tag  language.Tag
}{
	{DefaultLang, language.French},
	{"en", language.English},
}

var matcher = func() language.Matcher {
	tags := make([]language.Tag, len(languages))
	for i, l := range languages {
		tags[i] = l.tag
	}
	return language.NewMatcher(tags)
}()

// Languages возвращает коды поддерживаемых языков.
func Languages() []string {
	codes := make([]string, len(languages))
	for i, l := range languages {
		codes[i] = l.code
	}
	return codes
}

// IsSupported сообщает, поддерживается ли язык.
func IsSupported(lang string) bool {
	for _, l := range languages {
		if l.code == lang {
			return true
		}
	}
	return false
}

// MatchLanguage выбирает язык по заголовку Accept-Language.
func MatchLanguage(acceptLanguage string) string {
	_, idx := language.MatchStrings(matcher, acceptLanguage)
	return languages[idx].code
}

type catalog map[string]string

// Bundle — каталоги переводов по языкам.
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[string]catalog
	logger   *slog.Logger
}

// NewBundle создаёт пустой Bundle.
func NewBundle(logger *slog.Logger) *Bundle {
	return &Bundle{catalogs: make(map[string]catalog), logger: logger}
}

// LoadMessages загружает плоский JSON-каталог {"key": "перевод"} языка lang.
func (b *Bundle) LoadMessages(lang string, data []byte) error {
	if !IsSupported(lang) {
		return fmt.Errorf("i18n: язык %q не поддерживается", lang)
	}
	var messages catalog
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("i18n: каталог %s: %w", lang, err)
	}

	b.mu.Lock()
	b.catalogs[lang] = messages
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Debug("Каталог переводов загружен",
			slog.String("lang", lang),
			slog.Int("keys", len(messages)),
		)
	}
	return nil
}

// Missing возвращает ключи каталога DefaultLang, которых нет в каталоге lang.
func (b *Bundle) Missing(lang string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var keys []string
	target := b.catalogs[lang]
	for key := range b.catalogs[DefaultLang] {
		if _, ok := target[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Translate возвращает перевод key на языке lang.
func (b *Bundle) Translate(lang, key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if msg, ok := b.catalogs[lang][key]; ok {
		return msg
	}
	if msg, ok := b.catalogs[DefaultLang][key]; ok {
		return msg
	}
	return key
}

var (
	global     *Bundle
	globalOnce sync.Once
)

// Init создаёт глобальный Bundle, используемый T. Повторные вызовы
// возвращают тот же Bundle.
func Init(logger *slog.Logger) *Bundle {
	globalOnce.Do(func() {
		global = NewBundle(logger)
	})
	return global
}

type contextKey struct{}

// WithLang помещает язык в контекст.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, contextKey{}, lang)
}

// LangFromContext извлекает язык из контекста. По умолчанию DefaultLang.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(contextKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}

// T — перевод ключа на языке запроса. Без Init возвращает ключ.
func T(ctx context.Context, key string) string {
	if global == nil {
		return key
	}
	return global.Translate(LangFromContext(ctx), key)
}
