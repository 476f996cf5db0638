// Package model defines the declarative field specs consumed by the field
// renderer and the sign-in view. A FieldSpec describes one input (its type,
// label, placeholder, options and countdown length); a FormSpec is the ordered
// list of specs a host view renders. Specs are immutable per render and owned
// by the parent view. Values flowing through fields are plain strings or
// numbers held by the parent's form state, never by the field itself.
package model
