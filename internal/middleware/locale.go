package middleware

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

type localeKey struct{}

// Locale resolves the request language against the locales the instruction
// presets exist in (ru and en). X-Locale wins over Accept-Language; both
// fall back to the configured default. The result rides the context for
// the facade.
func Locale(defaultLocale string) func(http.Handler) http.Handler {
	def := language.Make(defaultLocale)
	if def.IsRoot() {
		def = language.Russian
	}
	fallback := baseOf(def)
	supported := []language.Tag{def}
	for _, tag := range []language.Tag{language.Russian, language.English} {
		if baseOf(tag) != fallback {
			supported = append(supported, tag)
		}
	}
	matcher := language.NewMatcher(supported)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := resolveLocale(matcher, r, fallback)
			next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), locale)))
		})
	}
}

func resolveLocale(matcher language.Matcher, r *http.Request, fallback string) string {
	header := r.Header.Get("X-Locale")
	if header == "" {
		header = r.Header.Get("Accept-Language")
	}
	if header == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	tag, _, _ := matcher.Match(tags...)
	return baseOf(tag)
}

func baseOf(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

// WithLocale stores the resolved locale. Exposed so the CLI can pin one
// without going through the HTTP stack.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

// LocaleFrom returns the resolved locale, defaulting to ru like the
// instruction presets.
func LocaleFrom(ctx context.Context) string {
	if v, ok := ctx.Value(localeKey{}).(string); ok && v != "" {
		return v
	}
	return "ru"
}
