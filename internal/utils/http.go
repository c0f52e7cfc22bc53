package utils

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
)

// ExtractIDFromParams retrieves a parameter value from the request context and removes file extensions like ".json".
func ExtractIDFromParams(r *http.Request, paramName string) string {
	params := httprouter.ParamsFromContext(r.Context())
	rawID := params.ByName(paramName)
	return strings.TrimSuffix(rawID, ".json")
}

func invalidField(key string) string {
	return fmt.Sprintf("Invalid field value for field %q.", key)
}

// ParseBoolParam reads an optional boolean query parameter. A value that is
// present but not a boolean is reported in fieldErrors.
func ParseBoolParam(params url.Values, key string, fieldErrors map[string][]string) (bool, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := params.Get(key)
	if val == "" {
		return false, fieldErrors
	}

	b, err := strconv.ParseBool(val)
	if err != nil {
		fieldErrors[key] = append(fieldErrors[key], invalidField(key))
	}
	return b, fieldErrors
}

// ParseIntParam reads an optional integer query parameter bounded to
// [min, max]. Absent parameters yield 0.
func ParseIntParam(params url.Values, key string, min, max int, fieldErrors map[string][]string) (int, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := params.Get(key)
	if val == "" {
		return 0, fieldErrors
	}

	n, err := strconv.Atoi(val)
	if err != nil || n < min || n > max {
		fieldErrors[key] = append(fieldErrors[key], invalidField(key))
		return 0, fieldErrors
	}
	return n, fieldErrors
}
