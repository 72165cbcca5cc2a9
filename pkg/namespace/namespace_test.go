package namespace

import (
	"testing"

	"github.com/OFFIS-RIT/amrlink/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		metadata string
		want     common.ArticleNamespace
		wantErr  error
	}{
		{
			name:     "id with sentence text",
			metadata: "# ::id a1.sent1 ::snt \"The boy wants to go.\"\n(w / want-01)",
			want:     "a1",
		},
		{
			name:     "id not on first line",
			metadata: "# ::snt The boy left.\n# ::id nw.wsj_0001.3 ::date 2012\n(l / leave-11)",
			want:     "nw",
		},
		{
			name:     "first match wins",
			metadata: "# ::id first.sent1\n# ::id second.sent2",
			want:     "first",
		},
		{
			name:     "no id field",
			metadata: "# ::snt The boy left.\n(l / leave-11)",
			wantErr:  common.ErrNamespaceNotFound,
		},
		{
			name:     "id without dot",
			metadata: "# ::id a1 ::snt no suffix",
			wantErr:  common.ErrNamespaceNotFound,
		},
		{
			name:     "empty",
			metadata: "",
			wantErr:  common.ErrNamespaceNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.metadata)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	meta := "# ::id doc7.sent4 ::snt x"
	first, err := Resolve(meta)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Resolve(meta)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestParseIDSentenceOrdinal(t *testing.T) {
	id, err := ParseID("# ::id a1.sent3 ::snt x")
	require.NoError(t, err)
	assert.Equal(t, common.ArticleNamespace("a1"), id.Namespace)
	assert.Equal(t, 3, id.Sentence)
	assert.Equal(t, "a1.sent3", id.Raw)

	id, err = ParseID("# ::id nw.12")
	require.NoError(t, err)
	assert.Equal(t, 12, id.Sentence)

	id, err = ParseID("# ::id nw.wsj_0001.3")
	require.NoError(t, err)
	assert.Equal(t, 0, id.Sentence)
}

func TestMentionIRI(t *testing.T) {
	assert.Equal(t, "http://amr.isi.edu/amr_data/a1.sent3#x3", MentionIRI("a1", 2, "x3"))
	assert.Equal(t, "http://amr.isi.edu/amr_data/a1.sent1#b", MentionIRI("a1", 0, "b"))
}

func TestClusterIRI(t *testing.T) {
	assert.Equal(t, "http://example.org/cluster/r1", ClusterIRI("r1"))
	assert.Equal(t, ClusterIRI("rel-0"), ClusterIRI("rel-0"))
	assert.Equal(t, "http://example.org/cluster/rel%200", ClusterIRI("rel 0"))
}

func TestFromTitle(t *testing.T) {
	assert.Equal(t, "RobertBoyle", FromTitle("= Robert Boyle ="))
	assert.Equal(t, "", FromTitle(" == "))
}
