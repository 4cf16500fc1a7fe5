// Package io reads and writes projected graphs as JSON.
//
// The format is the one the graph canvas consumes:
//
//	{
//	  "nodes": [
//	    {"id": "alloc:a", "label": "a", "styleKind": "memory", "attributes": {"size": 16}},
//	    {"id": "alloc:b", "label": "b", "styleKind": "memory", "attributes": {}}
//	  ],
//	  "edges": [
//	    {"id": "alloc:b->alloc:a#relates", "source": "alloc:b", "target": "alloc:a", "styleKind": "link"}
//	  ]
//	}
//
// [WriteGraph] and [ExportGraph] write it; [ReadGraph] and [ImportGraph]
// read it back, checking that node ids are unique and that every edge
// endpoint names a node. Numbers in attributes keep their literal form, so a
// graph survives export and re-import unchanged.
//
// [WriteJSON] writes any value in the same indented style; the CLI uses it
// for pipeline outcomes.
package io
