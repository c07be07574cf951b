package capability

import (
	"fmt"
	"sort"

	"github.com/rsclarke/ddnsd/internal/validation"
)

// Validate checks the structure of a decoded token-creation request before
// anything is persisted. Every problem is reported; nothing is dropped or
// defaulted.
func Validate(info map[string]any) validation.Errors {
	var errs validation.Errors

	switch info["type"] {
	case string(Admin), string(Restricted):
	default:
		errs.Add("type", `Type should be either "ADMIN" or "RESTRICTED".`)
	}

	if !isOptionalString(info, "name") {
		errs.Add("name", "Name should be a string, null or not present.")
	}
	if !isOptionalString(info, "description") {
		errs.Add("description", "Description should be a string, null or not present.")
	}

	if raw, ok := info["permissions"]; ok {
		permissions, isObject := raw.(map[string]any)
		if !isObject {
			errs.Add("permissions", "Permissions should be an object.")
		} else {
			validateHostPermissions(permissions, &errs)
		}
	}

	return errs
}

func validateHostPermissions(permissions map[string]any, errs *validation.Errors) {
	raw, ok := permissions["hosts"]
	if !ok {
		return
	}
	hosts, isObject := raw.(map[string]any)
	if !isObject {
		errs.Add("permissions.hosts", "Host permissions should be an object.")
		return
	}

	names := make([]string, 0, len(hosts))
	for name := range hosts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field := fmt.Sprintf("permissions.hosts[%s]", name)
		list, isList := hosts[name].([]any)
		if !isList {
			errs.Add(field, "Host permissions should be a list.")
			continue
		}
		for _, p := range list {
			if s, isString := p.(string); isString && validPermission(Permission(s)) {
				continue
			}
			errs.Add(field, fmt.Sprintf("%q is not a valid permission.", fmt.Sprint(p)))
		}
	}
}

func validPermission(p Permission) bool {
	return p == PermView || p == PermUpdate
}

func isOptionalString(info map[string]any, key string) bool {
	v, ok := info[key]
	if !ok || v == nil {
		return true
	}
	_, isString := v.(string)
	return isString
}
