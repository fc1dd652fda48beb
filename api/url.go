package api

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/errors/v5"
)

// BuildURL substitutes path parameters into rawurl and appends the encoded
// query string.
//
// Path parameters match both the ":key" and "{key}" placeholder styles and
// are URL-escaped. Query values follow the backend contract: nil values are
// skipped, slices repeat the key once per element, and maps/structs are
// JSON-stringified under a single key.
func BuildURL(rawurl string, query, pathParams map[string]any) (string, error) {
	u := rawurl

	for key, val := range pathParams {
		escaped := url.PathEscape(fmt.Sprint(val))
		re, err := regexp.Compile(":" + regexp.QuoteMeta(key) + `\b`)
		if err != nil {
			return "", errors.Wrapf(err, "invalid path parameter %q", key)
		}
		u = re.ReplaceAllLiteralString(u, escaped)
		u = strings.ReplaceAll(u, "{"+key+"}", escaped)
	}

	if len(query) == 0 {
		return u, nil
	}

	values := url.Values{}
	for key, val := range query {
		if val == nil {
			continue
		}

		rv := reflect.ValueOf(val)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				values.Add(key, fmt.Sprint(rv.Index(i).Interface()))
			}
		case reflect.Map, reflect.Struct:
			buf, err := json.Marshal(val)
			if err != nil {
				return "", errors.Wrapf(err, "failed to encode query parameter %q", key)
			}
			values.Add(key, string(buf))
		default:
			values.Add(key, fmt.Sprint(val))
		}
	}

	if encoded := values.Encode(); encoded != "" {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + encoded
	}

	return u, nil
}
