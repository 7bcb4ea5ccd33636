// Package engine mounts scenario instances for a host page.
//
// An Engine carries the shared wiring (capability registry, document source,
// scenario overrides, confirmation and navigation handlers). Mount creates an
// Instance that owns its own store, request coordinator and dispatcher, loads
// the initial document, and renders it on demand:
//
//	eng := engine.New(engine.WithSource(src), engine.WithRegistry(reg))
//	inst, err := eng.Mount(ctx, engine.HostConfig{ScenarioKey: "orders"})
//	if err != nil {
//		return err
//	}
//	defer inst.Unmount()
//	html, err := inst.Render(ctx, engine.RenderOptions{})
package engine
