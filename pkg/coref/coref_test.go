package coref

import (
	"context"
	"encoding/json"
	"os/exec"
	"testing"

	"github.com/OFFIS-RIT/amrlink/pkg/amr"
	"github.com/OFFIS-RIT/amrlink/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClusters(t *testing.T) {
	data := []byte(`{"clusters": {"rel-0": [[0, "x"], [2, "y"]], "rel-1": [[1, "p"]]}}`)

	clusters, err := DecodeClusters(data)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	rel0 := clusters["rel-0"]
	assert.Equal(t, "rel-0", rel0.RelationKey)
	assert.Equal(t, []common.Mention{{SentenceIndex: 0, Variable: "x"}, {SentenceIndex: 2, Variable: "y"}}, rel0.Mentions)
	assert.True(t, rel0.Linkable())
	assert.False(t, clusters["rel-1"].Linkable())
}

func TestDecodeClustersRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `clusters`},
		{name: "mention object", data: `{"clusters": {"r": [{"idx": 0}]}}`},
		{name: "short mention", data: `{"clusters": {"r": [[0]]}}`},
		{name: "index not a number", data: `{"clusters": {"r": [["0", "x"]]}}`},
		{name: "model error", data: `{"error": "cuda out of memory"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClusters([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestStaticResolverCopiesMentions(t *testing.T) {
	r := StaticResolver{"rel-0": {{SentenceIndex: 0, Variable: "x"}, {SentenceIndex: 1, Variable: "y"}}}

	clusters, err := r.Coreference(context.Background(), nil)
	require.NoError(t, err)

	c := clusters["rel-0"]
	c.Mentions[0].Variable = "changed"
	assert.Equal(t, "x", r["rel-0"][0].Variable)
}

func TestExecResolverRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	// the bridge is expected to read the whole request before answering
	script := `cat > /dev/null; printf '{"clusters": {"rel-0": [[0, "p"], [1, "p2"]]}}'`
	r, err := NewExecResolver([]string{"sh", "-c", script}, 0)
	require.NoError(t, err)

	g1, err := amr.Decode("# ::id a1.sent1\n(p / person)", amr.Literal)
	require.NoError(t, err)
	g2, err := amr.Decode("# ::id a1.sent2\n(p2 / person)", amr.Literal)
	require.NoError(t, err)

	clusters, err := r.Coreference(context.Background(), []*amr.Graph{g1, g2})
	require.NoError(t, err)
	require.Contains(t, clusters, "rel-0")
	assert.Len(t, clusters["rel-0"].Mentions, 2)
}

func TestExecResolverFailure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r, err := NewExecResolver([]string{"sh", "-c", "echo 'model missing' >&2; exit 1"}, 0)
	require.NoError(t, err)

	_, err = r.Coreference(context.Background(), nil)
	assert.ErrorContains(t, err, "model missing")
}

func TestRequestEncoding(t *testing.T) {
	data, err := json.Marshal(request{Graphs: []string{"(a / b)"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"graphs": ["(a / b)"]}`, string(data))
}

func TestStaticFromClusters(t *testing.T) {
	clusters, err := DecodeClusters([]byte(`{"clusters": {"rel-0": [[0, "x"], [2, "y"]]}}`))
	require.NoError(t, err)

	r := StaticFromClusters(clusters)
	got, err := r.Coreference(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, clusters, got)
}
