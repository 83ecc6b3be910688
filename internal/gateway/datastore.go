/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package gateway

import (
	"context"
)

// DataStore wraps the primary data-store shard's replication admin tool:
// role determination, freeze (suspend automatic failover), and thaw. No
// fixed wire contract is assumed beyond a small REST facade reachable on
// each node hosting a shard replica, consistent with how the rest of the
// gateway's clients are thin wrappers over a JSON API.
type DataStore struct {
	client *client
}

// ShardRole enumerates a node's role in the data-store shard's replication
// topology.
type ShardRole string

const (
	RoleNone    ShardRole = ""
	RolePrimary ShardRole = "primary"
	RoleSync    ShardRole = "sync"
	RoleAsync   ShardRole = "async"
)

// Role queries the shard role of the data-store instance on nodeID.
func (d *DataStore) Role(ctx context.Context, nodeID string) (ShardRole, error) {
	var resp struct {
		Role string `json:"role"`
	}
	if err := d.client.doJSON(ctx, "datastore.Role", "GET", "/shard/status?server="+nodeID, nil, &resp); err != nil {
		return RoleNone, err
	}
	return ShardRole(resp.Role), nil
}

// Freeze suspends automatic failover decisions on the shard. Only valid
// when nodeID hosts the primary.
func (d *DataStore) Freeze(ctx context.Context, nodeID string) error {
	return d.client.doJSON(ctx, "datastore.Freeze", "POST", "/shard/freeze", map[string]string{"server": nodeID}, nil)
}

// Thaw releases a freeze previously set by Freeze.
func (d *DataStore) Thaw(ctx context.Context, nodeID string) error {
	return d.client.doJSON(ctx, "datastore.Thaw", "POST", "/shard/thaw", map[string]string{"server": nodeID}, nil)
}

// SyncState reports whether the shard has reached steady state in its
// current topology (all replicas caught up, no pending reconfiguration).
func (d *DataStore) SyncState(ctx context.Context, nodeID string) (bool, error) {
	var resp struct {
		Synced bool `json:"synced"`
	}
	if err := d.client.doJSON(ctx, "datastore.SyncState", "GET", "/shard/sync?server="+nodeID, nil, &resp); err != nil {
		return false, err
	}
	return resp.Synced, nil
}
