// Package section builds the canonical section index of a markdown document.
//
// An Index is rebuilt once per revision. The document is cut into chunks at ATX
// heading lines; each heading line and each chunk between headings is rendered on its
// own, so every render node is born knowing which heading it belongs to. A Section
// records both its body line range and its body node IDs from that single pass, and the
// text splice and tree splice of a patch are both derived from it.
package section
