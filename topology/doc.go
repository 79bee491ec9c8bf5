// Package topology provides node drain signalling for cluster connections.
//
// Operators use it to steer new physical connections away from a Galera node
// before maintenance (SST donation, patching, upgrades) without touching the
// application configuration. Connections that are already open on the node are
// not interrupted; they move away on their next failover.
//
// # Overview
//
// The package provides implementations of the [clusterconn.TopologyWatcher]
// and [clusterconn.TopologyOperator] interfaces:
//   - [clusterconn.TopologyWatcher]: Answers IsDraining for node selection and
//     emits [clusterconn.TopologyUpdate] events when a node's drain state changes.
//   - [clusterconn.TopologyOperator]: Sets drain states programmatically.
//
// # NATS Topology
//
// [NATS] watches a NATS KV bucket for the drain configuration:
//
//	nc, _ := nats.Connect("nats://localhost:4222")
//	js, _ := jetstream.New(nc)
//	kv, _ := js.KeyValue(ctx, "galera-config")
//
//	watcher, _ := topology.NewNATS(kv)
//	watcher.Watch(ctx)
//
//	conn, _ := clusterconn.New(nodes, connector,
//	    clusterconn.WithDrainChecker(watcher),
//	)
//
// # Drain Configuration Format
//
// The NATS KV value is a JSON object listing the nodes to drain:
//
//	{
//	    "drain": ["db2:3306"],
//	    "reason": "SST donor"
//	}
//
// Node names must match the registered addresses exactly. While a node is in
// the list, selection skips it unless every remaining candidate is draining
// too, in which case drained nodes are used rather than failing the call.
//
// # Lifecycle
//
// Drain mode requires explicit operator actions:
//   - Start maintenance: PUT the drain configuration (or run "clusterctl drain")
//   - End maintenance: DELETE the key, or PUT an empty drain list
//
// There is no automatic expiry.
//
// # Local Topology
//
// [Local] is an in-memory implementation for tests and single-process tools:
//
//	local := topology.NewLocal()
//	_ = local.SetDrain(ctx, "db2:3306", true, "maintenance")
//
//	// Later...
//	_ = local.SetDrain(ctx, "db2:3306", false, "")
package topology
