// Package model defines the provider-agnostic boundary to language models.
//
// Core goals:
//   - Keep the Invoker interface minimal: rendered prompt in, response out
//   - Construct invokers through a Factory so callers control (and tests can
//     observe) when the potentially expensive client setup happens
//   - Facilitate deterministic mocking for tests (Mock)
//
// Providers (OpenAI, Anthropic, Bedrock) implement Invoker in subpackages so
// higher layers remain decoupled from vendor SDKs.
package model
