// Package pipeline coordinates stage execution across the fixed localization
// graph. The controller owns every state transition: user triggers and
// executor outcomes all funnel through the same claim-and-dispatch path, and
// the dispatcher enforces at most one in-flight execution per video and
// stage.
package pipeline
