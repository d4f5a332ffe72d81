package collector

import "strings"

// SplitRelativePath splits a browser-style relative path ("folder/sub/dir/file.csv")
// into its top folder, the intermediate directory segments joined by "/", and
// the file name.
//
// A path without "/" is a folder name on its own: dir and file are empty.
// Malformed paths are not rejected here; "//x" yields an empty folder name that
// submission validation reports later.
func SplitRelativePath(p string) (folder, dir, file string) {
	segments := strings.Split(p, "/")
	if len(segments) == 1 {
		return p, "", ""
	}
	folder = segments[0]
	file = segments[len(segments)-1]
	dir = strings.Join(segments[1:len(segments)-1], "/")
	return folder, dir, file
}

// joinRelative appends name to a directory prefix using "/" separators.
func joinRelative(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
