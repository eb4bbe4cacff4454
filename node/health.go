package node

import (
	"context"
	"errors"
	"time"
)

// HealthStatus is the cluster health colour.
type HealthStatus string

const (
	HealthRed    HealthStatus = "red"
	HealthYellow HealthStatus = "yellow"
	HealthGreen  HealthStatus = "green"
)

func (s HealthStatus) rank() int {
	switch s {
	case HealthGreen:
		return 2
	case HealthYellow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as healthy as want.
func (s HealthStatus) AtLeast(want HealthStatus) bool {
	return s.rank() >= want.rank()
}

// HealthRequest parameterises Health.
type HealthRequest struct {
	// WaitForStatus blocks until the cluster reaches this status.
	// Empty returns immediately.
	WaitForStatus HealthStatus
	// Timeout bounds the wait. Zero waits until ctx is done.
	Timeout time.Duration
}

// ClusterHealth describes the node's health.
type ClusterHealth struct {
	ClusterName        string       `json:"cluster_name"`
	Status             HealthStatus `json:"status"`
	TimedOut           bool         `json:"timed_out"`
	NumberOfNodes      int          `json:"number_of_nodes"`
	ActiveIndices      int          `json:"active_indices"`
	UnassignedReplicas int          `json:"unassigned_replicas"`
	FailedIndices      []string     `json:"failed_indices,omitempty"`
}

const healthPollInterval = 100 * time.Millisecond

// Health reports cluster health, optionally waiting for a minimum status.
//
// A single node cannot host replicas, so any index declaring replicas
// keeps the cluster yellow. Indices that failed to reopen make it red.
// When the wait times out the last observed health is returned with
// TimedOut set.
func (n *Node) Health(ctx context.Context, req HealthRequest) (ClusterHealth, error) {
	health, err := n.snapshotHealth()
	if err != nil || req.WaitForStatus == "" || health.Status.AtLeast(req.WaitForStatus) {
		return health, err
	}

	waitCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				health.TimedOut = true
				return health, nil
			}
			return health, waitCtx.Err()
		case <-ticker.C:
			health, err = n.snapshotHealth()
			if err != nil {
				return health, err
			}
			if health.Status.AtLeast(req.WaitForStatus) {
				return health, nil
			}
		}
	}
}

func (n *Node) snapshotHealth() (ClusterHealth, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return ClusterHealth{ClusterName: n.cfg.ClusterName, Status: HealthRed}, ErrNodeClosed
	}

	health := ClusterHealth{
		ClusterName:   n.cfg.ClusterName,
		Status:        HealthGreen,
		NumberOfNodes: 1,
		ActiveIndices: len(n.indices),
	}
	for _, h := range n.indices {
		health.UnassignedReplicas += max(h.meta.Shards, 1) * h.meta.Replicas
	}
	if health.UnassignedReplicas > 0 {
		health.Status = HealthYellow
	}
	if len(n.failed) > 0 {
		health.Status = HealthRed
		health.FailedIndices = append([]string(nil), n.failed...)
	}
	return health, nil
}
