// Package pipeline assembles tasks into invokable units: template rendering,
// model invocation and output normalization composed behind one Invoke call.
// A Builder validates the task before any invoker is constructed, and its
// keyed cache guarantees at most one construction per cache key, even under
// concurrent first use.
package pipeline
