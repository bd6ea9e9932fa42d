// Package patch splices a regenerated section into the document text and the render
// tree at once, or reports why it could not and hands back a full rebuild instead.
package patch
