package collective

import (
	"regexp"
	"strconv"
)

// JailPath maps a collective id to its internal jailed path under the root
// container path. Pure and injective: distinct ids never produce the same
// path, because the id is the final path segment.
func JailPath(rootPath string, collectiveID int64) string {
	return rootPath + "/" + strconv.FormatInt(collectiveID, 10)
}

// jailPrefixPattern matches the internal jail prefix of any collective in
// any deployment: "appdata_<token>/collectives/<id>/". It is anchored at
// the start of the string, which is what makes the event rewrite
// idempotent: a path that has already been stripped no longer starts with
// the prefix, so a second application is a no-op.
//
// Built from the same namespace constants JailPath builds from, so the two
// sides of the format cannot drift apart.
var jailPrefixPattern = regexp.MustCompile(
	`^` + namespacePrefix + `_[A-Za-z0-9]+/` + appNamespace + `/\d+/`,
)

// StripJailPrefix removes the internal jail prefix from a path, returning
// the tenant-relative remainder. Paths without the prefix are returned
// unchanged.
func StripJailPrefix(path string) string {
	return jailPrefixPattern.ReplaceAllString(path, "")
}
