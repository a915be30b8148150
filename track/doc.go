// Package track stitches an edge table into one ordered walk of node ids.
//
// Reconstruct starts at a node and repeatedly extends the walk with the first
// unused way in table order that touches the current node, traversing it
// forward when its first node matches and reversed when its last node does.
// Each way is used at most once, so the walk always terminates. It also stops
// when it arrives back at the start node.
//
// At junctions with several candidates the earliest row wins. CheckLinear
// reports such junctions for callers that want to refuse branching relations.
package track
