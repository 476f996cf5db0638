// Package validation evaluates declarative rules against a form-state record.
//
// Rules are stateless: Validate runs every rule in order, without
// short-circuiting, and returns a fresh Errors set. Callers own the returned
// set and decide whether to replace or merge it into the state they render.
package validation
