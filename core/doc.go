// Package core holds the shared contracts of taskpipe: the role-tagged
// prompt representation exchanged between task templates and model invokers,
// the error taxonomy surfaced by the public packages, and small identity
// helpers. Higher layers (task, pipeline, memory, chain, tool) depend on
// core; core depends on nothing inside the module so no import cycles can
// form around the contracts.
package core
