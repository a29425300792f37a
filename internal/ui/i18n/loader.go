// loader.go — загрузка каталогов переводов из embed.FS.
package i18n

import (
	"fmt"
	"log/slog"
	"strings"
)

// LoadFromEmbedFS загружает locales/<lang>.json для всех поддерживаемых языков.
// Ключи, которых нет в переводе, логируются: на странице они покажутся
// на языке по умолчанию.
func LoadFromEmbedFS(bundle *Bundle, logger *slog.Logger) error {
	for _, lang := range Languages() {
		path := fmt.Sprintf("locales/%s.json", lang)
		data, err := LocaleFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("i18n: не удалось прочитать %s: %w", path, err)
		}
		if err := bundle.LoadMessages(lang, data); err != nil {
			return err
		}
	}

	for _, lang := range Languages() {
		if missing := bundle.Missing(lang); len(missing) > 0 {
			logger.Warn("В каталоге переводов не хватает ключей",
				slog.String("lang", lang),
				slog.String("keys", strings.Join(missing, ",")),
			)
		}
	}

	logger.Info("i18n каталоги загружены", slog.Int("languages", len(Languages())))
	return nil
}
