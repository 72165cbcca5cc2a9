// Package coref talks to the coreference model. The model itself runs out of
// process; this package only moves literal AMR graphs in and clusters out.
package coref

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/OFFIS-RIT/amrlink/pkg/amr"
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"
)

// Resolver clusters the mentions of an ordered list of sentence graphs.
// Sentence indices in the result are positions in graphs.
type Resolver interface {
	Coreference(ctx context.Context, graphs []*amr.Graph) (map[string]common.CoreferenceCluster, error)
}

// StaticResolver returns a fixed set of clusters regardless of input.
type StaticResolver map[string][]common.Mention

func (r StaticResolver) Coreference(_ context.Context, _ []*amr.Graph) (map[string]common.CoreferenceCluster, error) {
	out := make(map[string]common.CoreferenceCluster, len(r))
	for key, mentions := range r {
		out[key] = common.CoreferenceCluster{
			RelationKey: key,
			Mentions:    append([]common.Mention(nil), mentions...),
		}
	}
	return out, nil
}

type request struct {
	Graphs []string `json:"graphs"`
}

type response struct {
	Clusters map[string][]wireMention `json:"clusters"`
	Error    string                   `json:"error,omitempty"`
}

// wireMention is encoded as a two element array: [sentence_index, "variable"].
type wireMention common.Mention

func (m *wireMention) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("mention must be [index, variable]: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("mention must have 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &m.SentenceIndex); err != nil {
		return fmt.Errorf("mention index: %w", err)
	}
	if err := json.Unmarshal(raw[1], &m.Variable); err != nil {
		return fmt.Errorf("mention variable: %w", err)
	}
	return nil
}

// ExecResolver runs the inference bridge once per document. The request is
// written as JSON on stdin and the clusters are read as JSON from stdout.
type ExecResolver struct {
	Command string
	Args    []string
	Timeout time.Duration
}

func NewExecResolver(cmdline []string, timeout time.Duration) (*ExecResolver, error) {
	if len(cmdline) == 0 || cmdline[0] == "" {
		return nil, errors.New("coreference command is empty")
	}
	return &ExecResolver{
		Command: cmdline[0],
		Args:    append([]string(nil), cmdline[1:]...),
		Timeout: timeout,
	}, nil
}

func (r *ExecResolver) Coreference(ctx context.Context, graphs []*amr.Graph) (map[string]common.CoreferenceCluster, error) {
	req := request{Graphs: make([]string, len(graphs))}
	for i, g := range graphs {
		if g == nil {
			return nil, fmt.Errorf("graph %d is missing", i)
		}
		req.Graphs[i] = g.Raw
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode coreference request: %w", err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.WaitDelay = 2 * time.Second
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("coreference %s: %w", r.Command, ctxErr)
		}
		if diag := strings.TrimSpace(stderr.String()); diag != "" {
			return nil, fmt.Errorf("coreference %s: %w: %s", r.Command, err, diag)
		}
		return nil, fmt.Errorf("coreference %s: %w", r.Command, err)
	}
	logger.Debug("[Coref] Inference finished", "graphs", len(graphs), "duration", time.Since(start))

	return DecodeClusters(stdout.Bytes())
}

// StaticFromClusters turns decoded clusters back into a StaticResolver, for
// replaying a saved coreference run.
func StaticFromClusters(clusters map[string]common.CoreferenceCluster) StaticResolver {
	out := make(StaticResolver, len(clusters))
	for key, c := range clusters {
		out[key] = append([]common.Mention(nil), c.Mentions...)
	}
	return out
}

// DecodeClusters parses the bridge output.
func DecodeClusters(data []byte) (map[string]common.CoreferenceCluster, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode coreference response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("coreference model: %s", resp.Error)
	}

	out := make(map[string]common.CoreferenceCluster, len(resp.Clusters))
	for key, wire := range resp.Clusters {
		mentions := make([]common.Mention, len(wire))
		for i, m := range wire {
			mentions[i] = common.Mention(m)
		}
		out[key] = common.CoreferenceCluster{RelationKey: key, Mentions: mentions}
	}
	return out, nil
}
