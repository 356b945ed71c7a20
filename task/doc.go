// Package task holds the catalogue of supported tasks and their prompt
// templates. A task pairs a closed Kind (assistant, summarizer, translator,
// coder, analyst, creative) with the instruction template and required input
// fields needed to render a core.Prompt for it. Ad-hoc single-input
// templates can be built from free text via DynamicTemplate.
package task
