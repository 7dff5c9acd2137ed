package rendezvous

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nateagr/tf-yarn/internal/pkg/utils/errors"
)

// TaskKey uniquely names one participant within a run.
type TaskKey struct {
	Type  string
	Index int
}

func (k TaskKey) String() string {
	return fmt.Sprintf("%s_%d", k.Type, k.Index)
}

func (k TaskKey) Validate() error {
	if k.Type == "" {
		return errors.New("task type is not set")
	}
	if k.Index < 0 {
		return errors.Errorf(`task index must not be negative, found %d`, k.Index)
	}
	return nil
}

// ParseTaskKey parses the "<type>_<index>" format,
// the launcher passes the identity in this form, for example "worker_0".
func ParseTaskKey(s string) (TaskKey, error) {
	typ, index, found := strings.Cut(s, "_")
	if !found {
		return TaskKey{}, errors.Errorf(`invalid task "%s": expected "<type>_<index>"`, s)
	}
	i, err := strconv.Atoi(index)
	if err != nil {
		return TaskKey{}, errors.Errorf(`invalid task "%s": index "%s" is not a number`, s, index)
	}
	k := TaskKey{Type: typ, Index: i}
	if err := k.Validate(); err != nil {
		return TaskKey{}, err
	}
	return k, nil
}

// Participant is the value published to the store by one task, per phase.
type Participant struct {
	TaskType  string `json:"taskType"`
	TaskIndex int    `json:"taskIndex"`
	Address   string `json:"address,omitempty"`
}

func (p Participant) TaskKey() TaskKey {
	return TaskKey{Type: p.TaskType, Index: p.TaskIndex}
}

// ClusterSpec maps a task type to the ordered list of "host:port" addresses,
// the position in the list is the task index.
// All participants of a run observe an identical ClusterSpec.
type ClusterSpec map[string][]string

func newClusterSpec(participants map[string]Participant) ClusterSpec {
	byType := make(map[string][]Participant)
	for _, p := range participants {
		byType[p.TaskType] = append(byType[p.TaskType], p)
	}

	out := make(ClusterSpec, len(byType))
	for typ, items := range byType {
		sort.Slice(items, func(i, j int) bool {
			return items[i].TaskIndex < items[j].TaskIndex
		})
		addrs := make([]string, len(items))
		for i, p := range items {
			addrs[i] = p.Address
		}
		out[typ] = addrs
	}
	return out
}

// Addresses returns the addresses of the task type, in the task index order.
func (s ClusterSpec) Addresses(taskType string) []string {
	return s[taskType]
}

// TaskTypes returns all task types in the cluster, sorted.
func (s ClusterSpec) TaskTypes() []string {
	out := make([]string, 0, len(s))
	for typ := range s {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}
