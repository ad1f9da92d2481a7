package auth

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAccountIDClaim is used when no account claim is configured.
	DefaultAccountIDClaim = "sub"

	accountIDClaim = "account_id"
	subjectClaim   = "sub"
)

// ExtractAccountID returns the first non-empty value among the primary
// claim, "account_id" and "sub". Empty values (blank strings, zero, false,
// empty objects and arrays) are skipped. A non-empty value of any other type
// is ErrMalformedClaims.
func ExtractAccountID(claims jwt.MapClaims, primary string) (string, error) {
	for _, name := range accountClaimOrder(primary) {
		raw, ok := claims[name]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s, nil
			}
		case float64:
			if v != 0 {
				return strconv.FormatFloat(v, 'f', -1, 64), nil
			}
		case json.Number:
			if f, err := v.Float64(); err != nil || f != 0 {
				return v.String(), nil
			}
		case bool:
			if v {
				return "", fmt.Errorf("%w: claim %q has unsupported type %T", ErrMalformedClaims, name, raw)
			}
		case map[string]any:
			if len(v) > 0 {
				return "", fmt.Errorf("%w: claim %q has unsupported type %T", ErrMalformedClaims, name, raw)
			}
		case []any:
			if len(v) > 0 {
				return "", fmt.Errorf("%w: claim %q has unsupported type %T", ErrMalformedClaims, name, raw)
			}
		default:
			return "", fmt.Errorf("%w: claim %q has unsupported type %T", ErrMalformedClaims, name, raw)
		}
	}
	return "", ErrMissingAccountIdentifier
}

func accountClaimOrder(primary string) []string {
	order := make([]string, 0, 3)
	for _, name := range []string{primary, accountIDClaim, subjectClaim} {
		if name != "" && !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	return order
}
