package command

import (
	"regexp"
	"strings"
)

// commandPattern matches verb(argument). The argument runs from the first
// '(' to the last ')'.
var commandPattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

// Parse splits raw into a verb and an optional argument.
//
// One layer of surrounding double quotes is stripped from the argument.
// Input that does not match verb(...) is returned whole as the verb with no
// argument. Parse never fails.
func Parse(raw string) (verb string, argument string, hasArgument bool) {
	m := commandPattern.FindStringSubmatch(raw)
	if m == nil {
		return raw, "", false
	}

	arg := strings.TrimPrefix(m[2], `"`)
	arg = strings.TrimSuffix(arg, `"`)
	return m[1], arg, true
}
