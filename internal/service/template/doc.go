// Package template manages reusable newsletter content.
//
// Templates are either owned by one company or global. Every company can
// read and render global templates; only platform administrators may
// write them. Rendering resolves typed variables, converts Markdown bodies
// to HTML and applies Liquid substitution through the Renderer interface.
package template
