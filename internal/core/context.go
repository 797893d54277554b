package core

import (
	"context"

	"golang.org/x/text/language"
)

type contextKey string

const (
	ctxKeyLocale   contextKey = "import_locale"
	ctxKeyImportID contextKey = "import_id"
)

// ContextWithLocale sets the language used for import messages in logs.
func ContextWithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, ctxKeyLocale, tag)
}

// LocaleFromContext returns the locale set on ctx, or fallback.
func LocaleFromContext(ctx context.Context, fallback language.Tag) language.Tag {
	if v, ok := ctx.Value(ctxKeyLocale).(language.Tag); ok {
		return v
	}
	return fallback
}

// ContextWithImportID tags ctx with the id of the running import.
func ContextWithImportID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyImportID, id)
}

// ImportIDFromContext extracts the import id from ctx.
func ImportIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyImportID).(string); ok {
		return v
	}
	return ""
}
