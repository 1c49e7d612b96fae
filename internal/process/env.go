package process

import "strings"

// DefaultLocale is injected when the environment carries no locale.
const DefaultLocale = "en_US.UTF-8"

// localeVars control how child processes encode text.
var localeVars = []string{"LC_CTYPE=", "LC_ALL=", "LANG="}

// LocaleEnv returns a copy of environ with LC_CTYPE set to locale when none
// of LC_CTYPE, LC_ALL or LANG is present.
func LocaleEnv(environ []string, locale string) []string {
	result := make([]string, 0, len(environ)+1)
	result = append(result, environ...)
	for _, e := range environ {
		for _, prefix := range localeVars {
			if strings.HasPrefix(e, prefix) {
				return result
			}
		}
	}
	if locale == "" {
		locale = DefaultLocale
	}
	return append(result, "LC_CTYPE="+locale)
}
