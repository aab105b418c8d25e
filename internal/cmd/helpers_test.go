package cmd

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

const fakeLcov = `#!/bin/sh
echo "lcov $*" >> "$(dirname "$0")/calls.log"
out=""
input=""
mode=capture
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    --remove) mode=remove; input="$2"; shift 2 ;;
    *) shift ;;
  esac
done
if [ "$mode" = remove ]; then
  cp "$input" "$out"
else
  printf 'TN:\nSF:/src/lib/Foo/foo.c\nDA:1,1\nend_of_record\n' > "$out"
fi
echo "lcov $mode done"
`

const failingLcov = `#!/bin/sh
echo "lcov $*" >> "$(dirname "$0")/calls.log"
echo "geninfo: ERROR: no .gcda files found"
exit 1
`

const fakeGenhtml = `#!/bin/sh
echo "genhtml $*" >> "$(dirname "$0")/calls.log"
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
echo '<html>coverage</html>' > "$out/index.html"
`

// testProject is a temporary CUtils-style project with fake tools.
type testProject struct {
	root string
	bin  string
	home string
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools are not supported on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

// newTestProject creates a project whose .covgen/config.yaml points at fake
// lcov/genhtml scripts. lcov is the collector script body.
func newTestProject(t *testing.T, lcov string) *testProject {
	t.Helper()
	p := &testProject{root: t.TempDir(), bin: t.TempDir(), home: t.TempDir()}
	t.Setenv("COVGEN_HOME", p.home)

	require.NoError(t, os.WriteFile(filepath.Join(p.bin, "lcov"), []byte(lcov), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(p.bin, "genhtml"), []byte(fakeGenhtml), 0755))

	config := "collector: " + filepath.Join(p.bin, "lcov") + "\n" +
		"renderer: " + filepath.Join(p.bin, "genhtml") + "\n"
	require.NoError(t, os.MkdirAll(filepath.Join(p.root, ".covgen"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(p.root, ".covgen", "config.yaml"), []byte(config), 0644))
	return p
}

// addTarget creates the object and output directories for target.
func (p *testProject) addTarget(t *testing.T, target string) {
	t.Helper()
	dirs := []string{
		filepath.Join(p.root, "build", "lib", "CMakeFiles", "CUtils.dir", target, "src"),
		filepath.Join(p.root, "build", "tests", target, "CMakeFiles", target+"Test.dir"),
		filepath.Join(p.root, "tests", target),
	}
	for _, dir := range dirs {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}
}

func (p *testProject) outputDir(target string) string {
	return filepath.Join(p.root, "tests", target)
}

func (p *testProject) calls(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(p.bin, "calls.log"))
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// malformedConfig writes an unparsable config file and returns its path.
func (p *testProject) malformedConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collector: [lcov\n"), 0644))
	return path
}
