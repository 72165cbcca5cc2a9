package pipeline

import (
	"testing"
	"time"

	"github.com/OFFIS-RIT/amrlink/pkg/coref"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("AMR_CONVERTER_CMD", "python amr-ld/amr_to_rdf.py")
	t.Setenv("AMR_CONVERTER_FORMAT", "ttl")
	t.Setenv("AMR_CONVERTER_TIMEOUT", "5s")
	t.Setenv("AMR_PARALLEL_SENTENCES", "8")
	t.Setenv("COREF_CMD", "python coref.py --model m")

	cfg := ConfigFromEnv()
	assert.Equal(t, []string{"python", "amr-ld/amr_to_rdf.py"}, cfg.ConverterCmd)
	assert.Equal(t, "ttl", cfg.Format)
	assert.Equal(t, 5*time.Second, cfg.SentenceTimeout)
	assert.Equal(t, 8, cfg.ParallelSentences)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, []string{"python", "coref.py", "--model", "m"}, cfg.CorefCmd)
	assert.Equal(t, 10*time.Minute, cfg.CorefTimeout)
}

func TestNewGraphClient(t *testing.T) {
	_, err := NewGraphClient(Config{}, nil)
	assert.Error(t, err)

	_, err = NewGraphClient(Config{ConverterCmd: []string{"convert"}}, nil)
	assert.Error(t, err)

	_, err = NewGraphClient(Config{ConverterCmd: []string{"convert"}, Format: "rdfxml"}, coref.StaticResolver{})
	assert.Error(t, err)

	c, err := NewGraphClient(Config{ConverterCmd: []string{"convert"}, CorefCmd: []string{"coref"}}, nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
