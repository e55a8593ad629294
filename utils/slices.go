package utils

import "slices"

// AppendUnique appends s to list unless already present and reports whether it did.
func AppendUnique(list []string, s string) ([]string, bool) {
	if slices.Contains(list, s) {
		return list, false
	}
	return append(list, s), true
}

// RemoveValue removes every occurrence of s and reports whether any was removed.
func RemoveValue(list []string, s string) ([]string, bool) {
	n := len(list)
	list = slices.DeleteFunc(list, func(v string) bool { return v == s })
	return list, len(list) != n
}
