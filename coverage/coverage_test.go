package coverage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withData(pct float64, files map[string]float64) *Result {
	return &Result{Success: true, LineCoverage: &pct, Files: files, Packages: map[string]float64{}}
}

func TestMergeKeepsMaxPerFile(t *testing.T) {
	a := withData(50, map[string]float64{"src/a.js": 40, "src/b.js": 60})
	b := withData(55, map[string]float64{"src/a.js": 80, "src/c.js": 30})

	merged := Merge(a, b)
	require.True(t, merged.Success)
	assert.Equal(t, 80.0, merged.Files["src/a.js"])
	assert.Equal(t, 60.0, merged.Files["src/b.js"])
	assert.Equal(t, 30.0, merged.Files["src/c.js"])

	// Overall recomputed as the mean of merged per-file values.
	pct, ok := merged.Percent()
	require.True(t, ok)
	assert.InDelta(t, (80.0+60.0+30.0)/3, pct, 0.01)
}

func TestMergeIsCommutative(t *testing.T) {
	a := withData(50, map[string]float64{"x": 10, "y": 90})
	b := withData(70, map[string]float64{"y": 20, "z": 100})

	ab := Merge(a, b)
	ba := Merge(b, a)
	assert.Equal(t, ab.Files, ba.Files)
	assert.InDelta(t, *ab.LineCoverage, *ba.LineCoverage, 0.001)
}

func TestMergeNeverLowersAFile(t *testing.T) {
	a := withData(90, map[string]float64{"x": 90})
	b := withData(10, map[string]float64{"x": 10})

	merged := Merge(a, b)
	assert.Equal(t, 90.0, merged.Files["x"])
}

func TestMergeWithUnavailableSide(t *testing.T) {
	a := withData(75, map[string]float64{"x": 75})

	merged := Merge(a, Unavailable())
	assert.Equal(t, a.Files, merged.Files)

	merged = Merge(Unavailable(), a)
	assert.Equal(t, a.Files, merged.Files)
}

func TestAggregateFold(t *testing.T) {
	agg := Aggregate{}
	agg.Fold("rust", withData(80, map[string]float64{"src/main.rs": 80}))
	agg.Fold("shell", withData(50, map[string]float64{"scripts/a.sh": 50}))
	agg.Fold("rust", withData(60, map[string]float64{"src/lib.rs": 60}))

	pcts := agg.Percentages()
	require.Len(t, pcts, 2)
	assert.InDelta(t, 70.0, pcts["rust"], 0.01)
	assert.InDelta(t, 50.0, pcts["shell"], 0.01)
}

func TestParseLCOVSingleFile(t *testing.T) {
	content := "TN:\nSF:/project/src/lib.js\nDA:1,1\nDA:2,1\nDA:5,0\nDA:6,0\nLF:4\nLH:2\nend_of_record\n"
	result := ParseLCOV(content, time.Second)

	require.True(t, result.Success)
	pct, ok := result.Percent()
	require.True(t, ok)
	assert.InDelta(t, 50.0, pct, 0.1)
	assert.InDelta(t, 50.0, result.Files["src/lib.js"], 0.1)
}

func TestParseLCOVMultiFile(t *testing.T) {
	content := `SF:/project/src/math.js
LF:2
LH:2
end_of_record
SF:/project/src/utils.js
LF:2
LH:1
end_of_record
SF:/project/src/format.js
LF:2
LH:0
end_of_record
`
	result := ParseLCOV(content, 0)

	require.True(t, result.Success)
	require.Len(t, result.Files, 3)
	assert.InDelta(t, 100.0, result.Files["src/math.js"], 0.1)
	assert.InDelta(t, 50.0, result.Files["src/utils.js"], 0.1)
	assert.InDelta(t, 0.0, result.Files["src/format.js"], 0.1)

	// 3 hit out of 6 found.
	pct, _ := result.Percent()
	assert.InDelta(t, 50.0, pct, 0.1)
}

func TestParseLCOVEmptyInput(t *testing.T) {
	result := ParseLCOV("", 0)
	require.True(t, result.Success)
	assert.False(t, result.HasData())
	assert.Empty(t, result.Files)
}

func TestParseLCOVExcludesNodeModules(t *testing.T) {
	content := `SF:/project/src/app.js
LF:1
LH:1
end_of_record
SF:/project/node_modules/lodash/index.js
LF:2
LH:2
end_of_record
`
	result := ParseLCOV(content, 0)
	require.Len(t, result.Files, 1)
	assert.Contains(t, result.Files, "src/app.js")
}

func TestParseLCOVSectionWithoutEndOfRecordIgnored(t *testing.T) {
	content := "SF:/project/src/open.js\nLF:4\nLH:4\n"
	result := ParseLCOV(content, 0)
	assert.Empty(t, result.Files)
}

func TestNormalizeJSPath(t *testing.T) {
	assert.Equal(t, "src/utils/format.js", NormalizeJSPath("/Users/dev/project/src/utils/format.js"))
	assert.Equal(t, "lib/helpers.js", NormalizeJSPath("/Users/dev/project/lib/helpers.js"))
	assert.Equal(t, "packages/core/src/index.ts", NormalizeJSPath("/Users/dev/project/packages/core/src/index.ts"))
	assert.Equal(t, "helpers.js", NormalizeJSPath("/Users/dev/project/helpers.js"))
	assert.Equal(t, "", NormalizeJSPath("/project/node_modules/lodash/index.js"))
}

func TestExtractJSPackage(t *testing.T) {
	assert.Equal(t, "packages/core", ExtractJSPackage("packages/core/src/index.ts"))
	assert.Equal(t, "apps/web", ExtractJSPackage("apps/web/components/Button.tsx"))
	assert.Equal(t, "libs/shared", ExtractJSPackage("libs/shared/src/utils.js"))
	assert.Equal(t, "root", ExtractJSPackage("src/utils/format.js"))
	assert.Equal(t, "root", ExtractJSPackage("index.js"))
}

func TestParseCobertura(t *testing.T) {
	content := `<?xml version="1.0"?>
<coverage line-rate="0.75">
  <packages>
    <package name="scripts">
      <classes>
        <class filename="/project/scripts/deploy.sh" line-rate="0.80"/>
        <class filename="/project/scripts/build.sh" line-rate="0.70"/>
      </classes>
    </package>
  </packages>
</coverage>`
	result := ParseCobertura(content, time.Second, "/project")

	require.True(t, result.Success)
	pct, ok := result.Percent()
	require.True(t, ok)
	assert.InDelta(t, 75.0, pct, 0.1)
	assert.InDelta(t, 80.0, result.Files["scripts/deploy.sh"], 0.1)
	assert.InDelta(t, 70.0, result.Files["scripts/build.sh"], 0.1)
}

func TestParseCoberturaMalformed(t *testing.T) {
	result := ParseCobertura("not xml at all", 0, "")
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Err)
}

func TestParseGoProfile(t *testing.T) {
	content := `mode: set
example.com/repo/pkg/math/math.go:5.14,7.2 2 1
example.com/repo/pkg/math/math.go:9.14,11.2 2 0
example.com/repo/internal/core/core.go:3.10,5.2 4 1
`
	result := ParseGoProfile(content, 0)

	require.True(t, result.Success)
	assert.InDelta(t, 50.0, result.Files["pkg/math/math.go"], 0.1)
	assert.InDelta(t, 100.0, result.Files["internal/core/core.go"], 0.1)
	assert.InDelta(t, 50.0, result.Packages["pkg/math"], 0.1)
	assert.InDelta(t, 100.0, result.Packages["internal/core"], 0.1)

	// 6 covered of 8 statements overall.
	pct, _ := result.Percent()
	assert.InDelta(t, 75.0, pct, 0.1)
}

func TestParseGoProfileEmpty(t *testing.T) {
	result := ParseGoProfile("mode: set\n", 0)
	require.True(t, result.Success)
	assert.False(t, result.HasData())
}

func TestParseLLVMCovJSON(t *testing.T) {
	content := `{"data":[{"totals":{"lines":{"count":100,"covered":80,"percent":80.0}},
"files":[
{"filename":"/ws/crates/cli/src/main.rs","summary":{"lines":{"count":60,"covered":54,"percent":90.0}}},
{"filename":"/ws/crates/core/src/lib.rs","summary":{"lines":{"count":40,"covered":26,"percent":65.0}}}
]}]}`
	result := ParseLLVMCovJSON(content, 0)

	require.True(t, result.Success)
	pct, _ := result.Percent()
	assert.InDelta(t, 80.0, pct, 0.1)
	assert.InDelta(t, 90.0, result.Files["src/main.rs"], 0.1)
	assert.InDelta(t, 90.0, result.Packages["cli"], 0.1)
	assert.InDelta(t, 65.0, result.Packages["core"], 0.1)
}

func TestParseLLVMCovJSONMalformed(t *testing.T) {
	result := ParseLLVMCovJSON("{broken", 0)
	assert.False(t, result.Success)

	result = ParseLLVMCovJSON(`{"data":[]}`, 0)
	assert.False(t, result.Success)
}

func TestParsePythonCoverageJSON(t *testing.T) {
	content := `{
"meta": {"version": "7.4"},
"files": {
  "src/mypkg/math.py": {"summary": {"covered_lines": 9, "num_statements": 12, "percent_covered": 75.0}},
  "src/mypkg/io.py": {"summary": {"covered_lines": 5, "num_statements": 10, "percent_covered": 50.0}},
  "tests/test_math.py": {"summary": {"covered_lines": 10, "num_statements": 10, "percent_covered": 100.0}}
},
"totals": {"covered_lines": 24, "num_statements": 32, "percent_covered": 75.0}
}`
	result := ParsePythonCoverageJSON(content, 0)

	require.True(t, result.Success)
	pct, _ := result.Percent()
	assert.InDelta(t, 75.0, pct, 0.1)
	assert.InDelta(t, 75.0, result.Files["src/mypkg/math.py"], 0.1)
	assert.InDelta(t, 62.5, result.Packages["mypkg"], 0.1)
	assert.InDelta(t, 100.0, result.Packages["tests"], 0.1)
}

func TestParsePythonCoverageJSONMalformed(t *testing.T) {
	result := ParsePythonCoverageJSON("{broken", 0)
	assert.False(t, result.Success)
}

func TestParsePythonCobertura(t *testing.T) {
	content := `<?xml version="1.0"?>
<coverage line-rate="0.8">
  <packages>
    <package name="mypkg">
      <classes>
        <class filename="src/mypkg/math.py" line-rate="0.75"/>
      </classes>
    </package>
  </packages>
</coverage>`
	result := parsePythonCobertura(content, 0)

	require.True(t, result.Success)
	pct, _ := result.Percent()
	assert.InDelta(t, 80.0, pct, 0.1)
	assert.InDelta(t, 75.0, result.Files["src/mypkg/math.py"], 0.1)
	assert.InDelta(t, 75.0, result.Packages["mypkg"], 0.1)
}

func TestNormalizePythonPath(t *testing.T) {
	cases := map[string]string{
		"/home/u/project/src/mypkg/math.py":                  "src/mypkg/math.py",
		"/home/u/project/tests/test_math.py":                 "tests/test_math.py",
		"/venv/lib/python3.12/site-packages/requests/api.py": "api.py",
		"app/models.py":      "app/models.py",
		"/opt/standalone.py": "standalone.py",
		"module.py":          "module.py",
	}
	for input, want := range cases {
		assert.Equal(t, want, normalizePythonPath(input), input)
	}
}

func TestExtractPythonPackage(t *testing.T) {
	assert.Equal(t, "mypkg", extractPythonPackage("src/mypkg/math.py"))
	assert.Equal(t, "main.py", extractPythonPackage("src/main.py"))
	assert.Equal(t, "tests", extractPythonPackage("tests/test_math.py"))
	assert.Equal(t, "app", extractPythonPackage("app/models.py"))
	assert.Equal(t, "root", extractPythonPackage("module.py"))
}

func TestCollectPythonUnavailable(t *testing.T) {
	result := CollectPython(context.Background(), t.TempDir(), "", false, false)
	require.True(t, result.Success)
	assert.False(t, result.HasData())
}
