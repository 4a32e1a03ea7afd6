package metadata

import "strings"

// ExpandURL expands a "github:<owner>/<repo>[/<path>...][#<branch>]"
// shorthand into a raw.githubusercontent.com URL. Strings that don't
// match the shorthand pass through unchanged.
func ExpandURL(s string) string {
	const prefix = "github:"
	if !strings.HasPrefix(s, prefix) {
		return s
	}
	rest := strings.TrimPrefix(s, prefix)

	branch := "main"
	if idx := strings.IndexByte(rest, '#'); idx != -1 {
		branch = rest[idx+1:]
		rest = rest[:idx]
	}

	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return s
	}
	owner, repo := parts[0], parts[1]

	path := "metadata/functions.json"
	if len(parts) == 3 && parts[2] != "" {
		path = parts[2]
	}

	return "https://raw.githubusercontent.com/" + owner + "/" + repo + "/" + branch + "/" + path
}
