// Package llm provides the OpenAI-compatible chat client shared by the
// translate, enrich, and script stages.
package llm
