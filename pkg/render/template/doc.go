// Package template defines the template rendering seam shared by the field
// components and the sign-in page. The gotemplate subpackage provides the
// pongo2-backed implementation.
package template
