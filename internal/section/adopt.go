package section

import (
	"reflect"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

// Adopt replaces the index's tree with t, which must be structurally identical, and
// rewrites every section's node IDs to t's. Patches use it to keep the identities of
// untouched nodes while proving the spliced tree equals a fresh build of the text.
func (ix *Index) Adopt(t Tree) error {
	if len(t.Nodes) != len(ix.Tree.Nodes) {
		return errors.ConflictError("spliced tree and rebuilt tree differ in length").
			WithContext("spliced", len(t.Nodes)).
			WithContext("rebuilt", len(ix.Tree.Nodes)).
			Build()
	}
	remap := make(map[string]string, len(t.Nodes))
	for i, n := range ix.Tree.Nodes {
		if !reflect.DeepEqual(n.Block, t.Nodes[i].Block) {
			return errors.ConflictError("spliced tree diverges from rebuilt tree").
				WithContext("position", i).
				WithContext("kind", string(n.Kind)).
				Build()
		}
		remap[n.ID] = t.Nodes[i].ID
	}

	for i := range ix.Sections {
		s := &ix.Sections[i]
		s.HeadingNodeID = remap[s.HeadingNodeID]
		ids := make([]string, len(s.BodyNodeIDs))
		for k, id := range s.BodyNodeIDs {
			ids[k] = remap[id]
		}
		s.BodyNodeIDs = ids
	}
	ix.Tree = Tree{Revision: ix.Revision, Nodes: append([]Node(nil), t.Nodes...)}
	return nil
}
