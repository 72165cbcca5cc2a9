package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// converterScript emits one typed node per sentence, named after its ::id.
const converterScript = `#!/bin/sh
id=$(sed -n 's/.*::id \([^ ]*\).*/\1/p' | head -n 1)
ns=${id%.sent*}
n=${id##*.sent}
printf '<http://amr.isi.edu/amr_data/%s.sent%s#x> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://amr.isi.edu/rdf/amr-terms#person> .\n' "$ns" "$n"
`

const document = `{"title":"= Test =","sentences":[
{"text":"a","amr":"(x / person)","amr_metadata":"# ::id a1.sent1 ::snt a\n(x / person)"},
{"text":"b","amr":"(x / person)","amr_metadata":"# ::id a1.sent2 ::snt b\n(x / person)"}]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunWithSavedClusters(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	script := writeFile(t, dir, "convert.sh", converterScript)
	doc := writeFile(t, dir, "doc.json", document)
	clusters := writeFile(t, dir, "clusters.json", `{"clusters":{"rel-0":[[0,"x"],[1,"x"]]}}`)
	out := filepath.Join(dir, "graph.nt")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-doc", doc,
		"-converter", "sh " + script,
		"-format", "nt",
		"-clusters", clusters,
		"-out", out,
		"-out-format", "nt",
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	var res summary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.Equal(t, "a1", res.DocumentID)
	assert.True(t, res.Linked)
	assert.Equal(t, 1, res.LinkedClusters)
	assert.Empty(t, res.Errors)
	assert.Equal(t, out, res.Output)

	graph, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(graph), "<http://example.org/cluster/rel-0>")
	assert.Contains(t, string(graph), "<http://amr.isi.edu/amr_data/a1.sent2#x>")
}

func TestRunReportsFailure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	script := writeFile(t, dir, "fail.sh", "#!/bin/sh\necho broken >&2\nexit 1\n")
	doc := writeFile(t, dir, "doc.json", document)
	clusters := writeFile(t, dir, "clusters.json", `{"clusters":{}}`)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-doc", doc,
		"-converter", "sh " + script,
		"-clusters", clusters,
		"-retries", "0",
	}, &stdout, &stderr)
	require.Error(t, err)

	var res summary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.False(t, res.Linked)
	assert.Len(t, res.Errors, 2)
	assert.Contains(t, res.Failure, "insufficient fragments")
}

func TestRunRequiresDocument(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Error(t, run(context.Background(), nil, &stdout, &stderr))
	assert.Error(t, run(context.Background(), []string{"-doc", "s3://bucket"}, &stdout, &stderr))
}
