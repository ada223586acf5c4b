// Environment references in configuration.
//
// String values may reference environment variables with {NAME} syntax so a
// checked-in config file can point at secrets without containing them:
//
//	[mock]
//	admin_password = "{TEST_ADMIN_PASSWORD}"
//
// Names must start with an uppercase letter, which keeps regex quantifiers
// such as {2} in contract patterns untouched. Unknown references are left as
// written.
package common

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
)

var keyRefPattern = regexp.MustCompile(`\{([A-Z][A-Z0-9_]*)\}`)

// EnvironmentMap returns the process environment as a map
func EnvironmentMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// ReplaceKeyReferences replaces {NAME} references in input with values from
// kvMap. A nil logger disables the warning for unresolved references.
func ReplaceKeyReferences(input string, kvMap map[string]string, logger arbor.ILogger) string {
	if input == "" || !strings.Contains(input, "{") {
		return input
	}

	return keyRefPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := match[1 : len(match)-1]
		if value, exists := kvMap[name]; exists {
			return value
		}
		if logger != nil {
			logger.Warn().
				Str("reference", match).
				Msg("Unresolved reference - variable not set")
		}
		return match
	})
}

// ReplaceInStruct replaces references in every exported string and []string
// field of the struct v points to, descending into nested structs
func ReplaceInStruct(v interface{}, kvMap map[string]string, logger arbor.ILogger) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr {
		return fmt.Errorf("ReplaceInStruct requires a pointer, got %T", v)
	}

	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("ReplaceInStruct requires a struct pointer, got pointer to %v", val.Kind())
	}

	replaceInStructValue(val, kvMap, logger)
	return nil
}

func replaceInStructValue(val reflect.Value, kvMap map[string]string, logger arbor.ILogger) {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			old := field.String()
			if replaced := ReplaceKeyReferences(old, kvMap, logger); replaced != old {
				field.SetString(replaced)
				if logger != nil {
					logger.Debug().Str("field", typ.Field(i).Name).Msg("Resolved reference in config field")
				}
			}

		case reflect.Struct:
			replaceInStructValue(field, kvMap, logger)

		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				replaceInStructValue(field.Elem(), kvMap, logger)
			}

		case reflect.Slice:
			if field.Type().Elem().Kind() != reflect.String {
				continue
			}
			for j := 0; j < field.Len(); j++ {
				elem := field.Index(j)
				elem.SetString(ReplaceKeyReferences(elem.String(), kvMap, logger))
			}
		}
	}
}
