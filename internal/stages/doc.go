// Package stages provides the executor for each pipeline stage. Executors are
// thin adapters: they validate their declared inputs, call one collaborator
// service, and map the result to the stage's typed artifact. All state
// handling stays in the pipeline controller.
package stages
