package ticker

import (
	"regexp"
	"strings"

	"stock-screener/src/helpers"
)

// MaxLength bounds a canonical ticker.
const MaxLength = 20

// StockholmSuffix is the canonical suffix for Nasdaq Stockholm listings.
const StockholmSuffix = ".ST"

var (
	allowedInput = regexp.MustCompile(`^[A-Z0-9.\-^=: ]+$`)
	canonicalRe  = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9\-=]*(\.[A-Z]{1,3})?$`)
	spaces       = regexp.MustCompile(`\s+`)
)

// Alternate spellings of exchange suffixes, mapped to the canonical one.
var suffixAliases = map[string]string{
	".STO":  StockholmSuffix,
	".XSTO": StockholmSuffix,
	".SE":   StockholmSuffix,
	":STO":  StockholmSuffix,
	".CPH":  ".CO",
	".XCSE": ".CO",
	".HEL":  ".HE",
	".XHEL": ".HE",
	".OSL":  ".OL",
	".XOSL": ".OL",
	".LON":  ".L",
	".XLON": ".L",
}

// Exchange prefixes some feeds put in front of the symbol ("STO:VOLV-B").
var prefixAliases = map[string]string{
	"STO:": StockholmSuffix,
	"CPH:": ".CO",
	"HEL:": ".HE",
	"OSL:": ".OL",
	"LON:": ".L",
}

// -----------------------------------------------------------------------------

// Normalize returns the canonical form of raw. It is idempotent:
// Normalize(Normalize(x)) == Normalize(x) for every accepted x.
func Normalize(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", helpers.NewValidationError("ticker is empty")
	}
	if !allowedInput.MatchString(s) {
		return "", helpers.NewValidationError("ticker %q contains invalid characters", raw)
	}

	suffix := ""
	for prefix, canonical := range prefixAliases {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			suffix = canonical
			break
		}
	}

	for alias, canonical := range suffixAliases {
		if strings.HasSuffix(s, alias) {
			s = strings.TrimSuffix(s, alias)
			suffix = canonical
			break
		}
	}

	// Share classes are written with a dash ("VOLV B" -> "VOLV-B").
	s = spaces.ReplaceAllString(strings.TrimSpace(s), "-")

	if suffix != "" && !strings.HasSuffix(s, suffix) {
		s += suffix
	}

	if len(s) > MaxLength {
		return "", helpers.NewValidationError("ticker %q is longer than %d characters", raw, MaxLength)
	}
	if !canonicalRe.MatchString(s) {
		return "", helpers.NewValidationError("ticker %q is malformed", raw)
	}
	return s, nil
}

// -----------------------------------------------------------------------------

// Split returns the base symbol and the exchange suffix (with dot, may be empty).
func Split(canonical string) (base, suffix string) {
	if i := strings.LastIndex(canonical, "."); i > 0 {
		return canonical[:i], canonical[i:]
	}
	return canonical, ""
}

// -----------------------------------------------------------------------------

// ForYahoo returns the Yahoo Finance spelling. Canonical tickers already use it.
func ForYahoo(canonical string) string {
	return canonical
}

// -----------------------------------------------------------------------------

// ForFinnhub returns the Finnhub spelling, or false for symbols Finnhub
// cannot serve (indices and currency pairs).
func ForFinnhub(canonical string) (string, bool) {
	if strings.HasPrefix(canonical, "^") || strings.Contains(canonical, "=") {
		return "", false
	}
	return canonical, true
}
