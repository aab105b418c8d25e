// Package fileutil provides directory traversal helpers used by covgen.
//
// The package offers two walks over a directory tree:
//
//   - ListDirectories returns every descendant directory of a root. lcov does
//     not recurse into the directories it is given, so the coverage collector
//     names each intermediate and leaf directory explicitly.
//   - ScanFiles returns every regular file below a root, collecting non-fatal
//     access errors instead of aborting. The substring search walks the tree
//     this way.
//
// # Traversal rules
//
//   - The root itself is never part of the result.
//   - Symbolic links are never followed, so a link pointing back up the tree
//     cannot cause a cycle. ListDirectories still lists a link whose target
//     is a directory; ScanFiles ignores links.
//   - MaxDepth bounds recursion (0 = unlimited, 1 = direct children only).
//     WalkOptions.OnTruncate receives each directory dropped by the limit.
//   - Results are sorted so repeated walks of an unchanged tree are identical.
//
// # Usage
//
//	dirs, err := fileutil.ListDirectories("/build/lib/CMakeFiles/CUtils.dir/Csv", fileutil.WalkOptions{
//	    MaxDepth: 64,
//	})
//	if err != nil {
//	    return err
//	}
//	for _, d := range dirs {
//	    args = append(args, "-d", d)
//	}
//
// The package uses only the standard library.
package fileutil
