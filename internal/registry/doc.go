// Package registry implements client-side service discovery: instance
// registration and deregistration, heartbeat-driven liveness tracking,
// load-balanced selection among healthy instances, and lifecycle event
// notification for subscribers.
//
// A background sweep demotes instances whose heartbeat lapsed past the
// configured timeout. The sweep never removes instances; only Deregister
// does. All state is in memory and rebuilt on startup.
//
// Usage:
//
//	reg := registry.New(registry.Config{}, nil, log)
//	reg.Start()
//	defer reg.Stop()
//
//	reg.Register("echo", "http://localhost:8081", nil)
//	if inst, ok := reg.GetService("echo"); ok {
//	    // call inst.URL ...
//	    reg.Heartbeat("echo", inst.URL)
//	}
package registry
