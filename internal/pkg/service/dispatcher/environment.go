package dispatcher

import (
	"encoding/json"

	"github.com/nateagr/tf-yarn/internal/pkg/env"
	"github.com/nateagr/tf-yarn/internal/pkg/service/dispatcher/rendezvous"
	"github.com/nateagr/tf-yarn/internal/pkg/utils/errors"
)

const tfConfigEnvName = "TF_CONFIG"

// tfConfig is the serialized cluster description consumed by the computation.
type tfConfig struct {
	Cluster     rendezvous.ClusterSpec `json:"cluster"`
	Task        tfConfigTask           `json:"task"`
	Environment string                 `json:"environment"`
}

type tfConfigTask struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// taskEnvironment builds the environment delta for the computation.
// The delta is checked against the inherited process environment first,
// a conflicting key aborts the whole operation without mutating anything.
func (d *Dispatcher) taskEnvironment(spec rendezvous.ClusterSpec) (*env.Map, error) {
	cfg := tfConfig{
		Cluster: spec,
		Task:    tfConfigTask{Type: d.task.Type, Index: d.task.Index},
	}

	// Preempt the cluster setup so that all tasks are ready to accept
	// traffic by the time the training session is created. An evaluator
	// does not need the cluster, a parameter server spawns its server
	// regardless of the environment value.
	if d.task.Type != evaluatorTaskType && d.task.Type != psTaskType {
		cfg.Environment = "google"
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.PrefixError(err, "cannot serialize the cluster description")
	}

	delta := env.Empty()
	delta.Set(tfConfigEnvName, string(data))

	// Detect conflicts against a snapshot, nothing is mutated here.
	current, err := env.FromOs()
	if err != nil {
		return nil, err
	}
	if err := current.MergeStrict(delta); err != nil {
		return nil, err
	}

	return delta, nil
}
